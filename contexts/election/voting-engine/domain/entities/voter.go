package entities

import "time"

// EntityKind names a record type that is mirrored to the secondary store.
type EntityKind string

const (
	EntityVoter     EntityKind = "voter"
	EntityStudent   EntityKind = "student"
	EntityCandidate EntityKind = "candidate"
	EntityBallot    EntityKind = "ballot"
)

// SyncOrder is the dependency order used by reconciliation: ballots reference
// voters and candidates, so they run last.
var SyncOrder = []EntityKind{EntityVoter, EntityCandidate, EntityStudent, EntityBallot}

// Voter is a registered account. PasswordHash never leaves the service.
type Voter struct {
	VoterID      string
	Email        string
	PasswordHash string
	HasVoted     bool
	IsAdmin      bool
	MirrorID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated caller, resolved from a bearer token and
// passed explicitly into every protected operation.
type Identity struct {
	VoterID   string
	Email     string
	IsAdmin   bool
	ExpiresAt time.Time
}
