package entities

import "time"

type SyncOutcome string

const (
	SyncInserted SyncOutcome = "inserted"
	SyncUpdated  SyncOutcome = "updated"
	SyncSkipped  SyncOutcome = "skipped"
)

type SyncFailure struct {
	Entity EntityKind
	Key    string
	Error  string
}

type EntitySyncStats struct {
	Entity   EntityKind
	Scanned  int
	Inserted int
	Updated  int
	Skipped  int
	Failed   int
}

// SyncReport summarizes a reconciliation pass. Per-record failures are
// collected here instead of aborting the pass.
type SyncReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Entities   []EntitySyncStats
	Failures   []SyncFailure
}

func (s *EntitySyncStats) Record(outcome SyncOutcome) {
	switch outcome {
	case SyncInserted:
		s.Inserted++
	case SyncUpdated:
		s.Updated++
	case SyncSkipped:
		s.Skipped++
	}
}

func (r *SyncReport) Fail(stats *EntitySyncStats, key string, err error) {
	stats.Failed++
	r.Failures = append(r.Failures, SyncFailure{
		Entity: stats.Entity,
		Key:    key,
		Error:  err.Error(),
	})
}

func (r SyncReport) Stats(entity EntityKind) EntitySyncStats {
	for _, item := range r.Entities {
		if item.Entity == entity {
			return item
		}
	}
	return EntitySyncStats{Entity: entity}
}
