package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	application "github.com/TADABA21/voting-app/contexts/election/voting-engine/application"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/services"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

// Reconciler re-synchronizes every local record with the secondary store.
type Reconciler struct {
	Store  ports.RecordStore
	Sink   MirrorSink
	Clock  ports.Clock
	Logger *slog.Logger
}

// FullSync runs voters, candidates, students, then ballots. Per-record
// failures land in the report; only cancellation stops the pass early.
// Running it again converges on the same remote rows.
func (r Reconciler) FullSync(ctx context.Context, actor entities.Identity) (entities.SyncReport, error) {
	if err := services.RequireAdmin(actor); err != nil {
		return entities.SyncReport{}, err
	}
	return r.Run(ctx)
}

// Run is FullSync for trusted callers such as the worker process.
func (r Reconciler) Run(ctx context.Context) (entities.SyncReport, error) {
	logger := application.ResolveLogger(r.Logger)
	if r.Sink.Remote == nil {
		return entities.SyncReport{}, fmt.Errorf("%w: secondary store is not configured", domainerrors.ErrUnavailable)
	}
	report := entities.SyncReport{StartedAt: r.now()}

	for _, entity := range entities.SyncOrder {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		stats := entities.EntitySyncStats{Entity: entity}
		r.syncEntity(ctx, &report, &stats)
		report.Entities = append(report.Entities, stats)

		logger.Info("mirror entity sync finished",
			"event", "voting_reconcile_entity_finished",
			"module", application.ModuleName,
			"layer", "worker",
			"entity", entity,
			"scanned", stats.Scanned,
			"inserted", stats.Inserted,
			"updated", stats.Updated,
			"skipped", stats.Skipped,
			"failed", stats.Failed,
		)
	}
	report.FinishedAt = r.now()

	logger.Info("mirror reconciliation finished",
		"event", "voting_reconcile_finished",
		"module", application.ModuleName,
		"layer", "worker",
		"failures", len(report.Failures),
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)
	return report, nil
}

func (r Reconciler) syncEntity(ctx context.Context, report *entities.SyncReport, stats *entities.EntitySyncStats) {
	switch stats.Entity {
	case entities.EntityVoter:
		items, err := r.Store.FindVoters(ctx, ports.VoterFilter{})
		syncAll(ctx, report, stats, items, err,
			func(v entities.Voter) string { return v.Email },
			r.Sink.upsertVoter,
		)
	case entities.EntityCandidate:
		items, err := r.Store.FindCandidates(ctx, ports.CandidateFilter{})
		syncAll(ctx, report, stats, items, err,
			func(c entities.Candidate) string { return c.Name + "/" + c.Position },
			r.Sink.upsertCandidate,
		)
	case entities.EntityStudent:
		items, err := r.Store.FindStudents(ctx, ports.StudentFilter{})
		syncAll(ctx, report, stats, items, err,
			func(s entities.Student) string { return s.Email },
			r.Sink.upsertStudent,
		)
	case entities.EntityBallot:
		items, err := r.Store.FindBallots(ctx, ports.BallotFilter{})
		syncAll(ctx, report, stats, items, err,
			func(b entities.Ballot) string { return b.BallotID },
			r.Sink.upsertBallot,
		)
	}
}

func syncAll[T any](
	ctx context.Context,
	report *entities.SyncReport,
	stats *entities.EntitySyncStats,
	items []T,
	listErr error,
	key func(T) string,
	upsert func(context.Context, T) (entities.SyncOutcome, error),
) {
	if listErr != nil {
		report.Fail(stats, "*", listErr)
		return
	}
	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		stats.Scanned++
		outcome, err := upsert(ctx, item)
		if err != nil {
			report.Fail(stats, key(item), err)
			continue
		}
		stats.Record(outcome)
	}
}

func (r Reconciler) now() time.Time {
	if r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock.Now().UTC()
}
