package ports

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	"github.com/TADABA21/voting-app/internal/shared/events"
)

// Store-level errors. Adapters translate driver failures into these so use
// cases never depend on a driver.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicate      = errors.New("unique constraint violated")
	ErrEmptyFilter    = errors.New("delete requires a filter")
	ErrReferenced     = errors.New("record is still referenced")
)

// VoterFilter selects voters. Zero fields are ignored; an empty filter
// selects every voter.
type VoterFilter struct {
	VoterID  string
	Email    string
	IsAdmin  *bool
	HasVoted *bool
}

type VoterPatch struct {
	PasswordHash *string
	HasVoted     *bool
	IsAdmin      *bool
}

type VoterRepository interface {
	InsertVoter(ctx context.Context, voter entities.Voter) error
	FindVoters(ctx context.Context, filter VoterFilter) ([]entities.Voter, error)
	FindVoter(ctx context.Context, filter VoterFilter) (entities.Voter, error)
	UpdateVoter(ctx context.Context, voterID string, patch VoterPatch, updatedAt time.Time) error
	CountVoters(ctx context.Context, filter VoterFilter) (int64, error)
	// PromoteIfNoAdmin promotes voterID only while zero admins exist, as one
	// conditional write. It reports whether the promotion happened.
	PromoteIfNoAdmin(ctx context.Context, voterID string, updatedAt time.Time) (bool, error)
}

type StudentFilter struct {
	StudentID    string
	Email        string
	IsRegistered *bool
}

type StudentPatch struct {
	IsRegistered *bool
}

type StudentRepository interface {
	InsertStudent(ctx context.Context, student entities.Student) error
	FindStudents(ctx context.Context, filter StudentFilter) ([]entities.Student, error)
	FindStudent(ctx context.Context, filter StudentFilter) (entities.Student, error)
	UpdateStudent(ctx context.Context, studentID string, patch StudentPatch, updatedAt time.Time) error
	DeleteStudents(ctx context.Context, filter StudentFilter) ([]entities.Student, error)
	CountStudents(ctx context.Context, filter StudentFilter) (int64, error)
}

// CandidateFilter matches Name and Position case-insensitively after
// trimming, always as exact values.
type CandidateFilter struct {
	CandidateID string
	Name        string
	Position    string
}

type CandidateRepository interface {
	InsertCandidate(ctx context.Context, candidate entities.Candidate) error
	FindCandidates(ctx context.Context, filter CandidateFilter) ([]entities.Candidate, error)
	FindCandidate(ctx context.Context, filter CandidateFilter) (entities.Candidate, error)
	// DeleteCandidates fails with ErrReferenced while any ballot points at a
	// matched candidate and then deletes nothing.
	DeleteCandidates(ctx context.Context, filter CandidateFilter) ([]entities.Candidate, error)
	CountCandidates(ctx context.Context, filter CandidateFilter) (int64, error)
}

type BallotFilter struct {
	BallotID    string
	VoterID     string
	CandidateID string
}

type BallotRepository interface {
	// CastBallot inserts the ballot and sets the voter's HasVoted flag
	// atomically. A second ballot for the same voter fails with ErrDuplicate.
	CastBallot(ctx context.Context, ballot entities.Ballot) error
	FindBallots(ctx context.Context, filter BallotFilter) ([]entities.Ballot, error)
	FindBallot(ctx context.Context, filter BallotFilter) (entities.Ballot, error)
	CountBallots(ctx context.Context, filter BallotFilter) (int64, error)
	// CountBallotsByCandidate returns vote counts keyed by candidate id.
	CountBallotsByCandidate(ctx context.Context) (map[string]int64, error)
	// ResetBallots deletes every ballot and clears HasVoted on every voter in
	// one transaction, returning the deleted ballots and the reset voter ids.
	ResetBallots(ctx context.Context, updatedAt time.Time) ([]entities.Ballot, []string, error)
}

type MirrorIDWriter interface {
	// SetMirrorID records the remote id only while the local one is empty.
	SetMirrorID(ctx context.Context, entity entities.EntityKind, recordID string, mirrorID string) (bool, error)
	// ReplaceMirrorID swaps a remote id that no longer resolves for its
	// replacement, only while the stored id still equals staleID.
	ReplaceMirrorID(ctx context.Context, entity entities.EntityKind, recordID string, staleID string, mirrorID string) (bool, error)
}

// RecordStore is the full record store surface the service composes.
type RecordStore interface {
	VoterRepository
	StudentRepository
	CandidateRepository
	BallotRepository
	MirrorIDWriter
}

// RemoteRow is one record as written to the secondary store. Key holds the
// natural-key columns and is a subset of Fields.
type RemoteRow struct {
	Table  string
	Key    map[string]any
	Fields map[string]any
}

var ErrRemoteRowMissing = errors.New("remote row missing")

// MirrorRemote is the secondary store. Implementations generate remote ids.
type MirrorRemote interface {
	Insert(ctx context.Context, row RemoteRow) (string, error)
	Update(ctx context.Context, table string, remoteID string, fields map[string]any) error
	FindID(ctx context.Context, table string, key map[string]any) (string, bool, error)
	Delete(ctx context.Context, table string, remoteID string) error
}

// MirrorChange asks the sink to propagate one record. RemoteID is only used
// for deletes, where the local record is already gone.
type MirrorChange struct {
	Entity   entities.EntityKind `json:"entity"`
	RecordID string              `json:"record_id"`
	RemoteID string              `json:"remote_id,omitempty"`
	Deleted  bool                `json:"deleted,omitempty"`
}

// MirrorPublisher hands changes to the asynchronous mirror path. It never
// fails the caller.
type MirrorPublisher interface {
	PublishMirrorChanges(ctx context.Context, changes ...MirrorChange)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns domain ErrInvalidCredential on mismatch.
	Compare(hash string, password string) error
}

type TokenIssuer interface {
	Issue(identity entities.Identity, issuedAt time.Time) (string, time.Time, error)
	Verify(token string, now time.Time) (entities.Identity, error)
}

type StudentRow struct {
	Row           int
	Email         string
	StudentNumber string
	Name          string
	Department    string
}

type StudentSheetParser interface {
	ParseStudents(r io.Reader) ([]StudentRow, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = events.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// Secondary store tables and the bus topic for mirror changes.
const (
	RemoteTableVoters     = "users"
	RemoteTableStudents   = "students"
	RemoteTableCandidates = "candidates"
	RemoteTableBallots    = "votes"

	MirrorChangedTopic     = "election.mirror.changed"
	MirrorChangedEventType = "mirror.changed"
)
