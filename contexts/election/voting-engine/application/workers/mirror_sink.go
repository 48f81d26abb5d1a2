package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	application "github.com/TADABA21/voting-app/contexts/election/voting-engine/application"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

// MirrorSink replicates local records to the secondary store. The secondary
// store is not authoritative: Propagate swallows every failure, and only
// reconciliation reports them.
type MirrorSink struct {
	Store  ports.RecordStore
	Remote ports.MirrorRemote
	Logger *slog.Logger
}

// Propagate applies one change and never returns an error.
func (s MirrorSink) Propagate(ctx context.Context, change ports.MirrorChange) {
	logger := application.ResolveLogger(s.Logger)
	if change.Deleted {
		if err := s.Delete(ctx, change.Entity, change.RemoteID); err != nil {
			logger.Warn("mirror delete failed",
				"event", "voting_mirror_delete_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"entity", change.Entity,
				"record_id", change.RecordID,
				"remote_id", change.RemoteID,
				"error", err.Error(),
			)
		}
		return
	}

	outcome, err := s.Upsert(ctx, change.Entity, change.RecordID)
	if err != nil {
		logger.Warn("mirror upsert failed",
			"event", "voting_mirror_upsert_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"entity", change.Entity,
			"record_id", change.RecordID,
			"error", err.Error(),
		)
		return
	}
	logger.Debug("mirror upsert applied",
		"event", "voting_mirror_upsert_applied",
		"module", application.ModuleName,
		"layer", "worker",
		"entity", change.Entity,
		"record_id", change.RecordID,
		"outcome", outcome,
	)
}

// Upsert loads the current local record and mirrors it. A record that no
// longer exists locally is skipped.
func (s MirrorSink) Upsert(ctx context.Context, entity entities.EntityKind, recordID string) (entities.SyncOutcome, error) {
	var err error
	switch entity {
	case entities.EntityVoter:
		var voter entities.Voter
		if voter, err = s.Store.FindVoter(ctx, ports.VoterFilter{VoterID: recordID}); err == nil {
			return s.upsertVoter(ctx, voter)
		}
	case entities.EntityStudent:
		var student entities.Student
		if student, err = s.Store.FindStudent(ctx, ports.StudentFilter{StudentID: recordID}); err == nil {
			return s.upsertStudent(ctx, student)
		}
	case entities.EntityCandidate:
		var candidate entities.Candidate
		if candidate, err = s.Store.FindCandidate(ctx, ports.CandidateFilter{CandidateID: recordID}); err == nil {
			return s.upsertCandidate(ctx, candidate)
		}
	case entities.EntityBallot:
		var ballot entities.Ballot
		if ballot, err = s.Store.FindBallot(ctx, ports.BallotFilter{BallotID: recordID}); err == nil {
			return s.upsertBallot(ctx, ballot)
		}
	default:
		return "", fmt.Errorf("unknown mirror entity %q", entity)
	}
	if errors.Is(err, ports.ErrRecordNotFound) {
		return entities.SyncSkipped, nil
	}
	return "", err
}

// Delete removes the remote row. Without a remote id the record was never
// mirrored and there is nothing to remove.
func (s MirrorSink) Delete(ctx context.Context, entity entities.EntityKind, remoteID string) error {
	if remoteID == "" {
		return nil
	}
	table, ok := remoteTable(entity)
	if !ok {
		return fmt.Errorf("unknown mirror entity %q", entity)
	}
	if err := s.Remote.Delete(ctx, table, remoteID); err != nil && !errors.Is(err, ports.ErrRemoteRowMissing) {
		return err
	}
	return nil
}

func (s MirrorSink) upsertVoter(ctx context.Context, voter entities.Voter) (entities.SyncOutcome, error) {
	return s.upsert(ctx, entities.EntityVoter, voter.VoterID, voter.MirrorID, voterRow(voter))
}

func (s MirrorSink) upsertStudent(ctx context.Context, student entities.Student) (entities.SyncOutcome, error) {
	return s.upsert(ctx, entities.EntityStudent, student.StudentID, student.MirrorID, studentRow(student))
}

func (s MirrorSink) upsertCandidate(ctx context.Context, candidate entities.Candidate) (entities.SyncOutcome, error) {
	return s.upsert(ctx, entities.EntityCandidate, candidate.CandidateID, candidate.MirrorID, candidateRow(candidate))
}

// upsertBallot only mirrors a ballot once both its voter and candidate carry
// remote ids; otherwise it is left for a later reconciliation pass.
func (s MirrorSink) upsertBallot(ctx context.Context, ballot entities.Ballot) (entities.SyncOutcome, error) {
	voter, err := s.Store.FindVoter(ctx, ports.VoterFilter{VoterID: ballot.VoterID})
	if err != nil {
		if errors.Is(err, ports.ErrRecordNotFound) {
			return entities.SyncSkipped, nil
		}
		return "", err
	}
	candidate, err := s.Store.FindCandidate(ctx, ports.CandidateFilter{CandidateID: ballot.CandidateID})
	if err != nil {
		if errors.Is(err, ports.ErrRecordNotFound) {
			return entities.SyncSkipped, nil
		}
		return "", err
	}
	if voter.MirrorID == "" || candidate.MirrorID == "" {
		return entities.SyncSkipped, nil
	}
	row := ballotRow(ballot, voter.MirrorID, candidate.MirrorID)
	return s.upsert(ctx, entities.EntityBallot, ballot.BallotID, ballot.MirrorID, row)
}

// upsert updates by the stored remote id when there is one, falling back to
// a natural-key lookup so repeated runs converge on a single remote row. A
// stored id whose row has gone is replaced by the id of the row found or
// inserted in its place, so later deletes reach the live row.
func (s MirrorSink) upsert(
	ctx context.Context,
	entity entities.EntityKind,
	recordID string,
	mirrorID string,
	row ports.RemoteRow,
) (entities.SyncOutcome, error) {
	if mirrorID != "" {
		err := s.Remote.Update(ctx, row.Table, mirrorID, row.Fields)
		if err == nil {
			return entities.SyncUpdated, nil
		}
		if !errors.Is(err, ports.ErrRemoteRowMissing) {
			return "", err
		}
	}

	remoteID, found, err := s.Remote.FindID(ctx, row.Table, row.Key)
	if err != nil {
		return "", err
	}
	outcome := entities.SyncUpdated
	if found {
		if err := s.Remote.Update(ctx, row.Table, remoteID, row.Fields); err != nil {
			return "", err
		}
	} else {
		remoteID, err = s.Remote.Insert(ctx, row)
		if err != nil {
			return "", err
		}
		outcome = entities.SyncInserted
	}

	if mirrorID == remoteID {
		return outcome, nil
	}
	if mirrorID == "" {
		_, err = s.Store.SetMirrorID(ctx, entity, recordID, remoteID)
	} else {
		_, err = s.Store.ReplaceMirrorID(ctx, entity, recordID, mirrorID, remoteID)
	}
	if errors.Is(err, ports.ErrRecordNotFound) {
		// The local record was deleted while this row was written; its delete
		// change carried the old id, so the row would otherwise be orphaned.
		if delErr := s.Remote.Delete(ctx, row.Table, remoteID); delErr != nil && !errors.Is(delErr, ports.ErrRemoteRowMissing) {
			return "", fmt.Errorf("remove orphaned remote row: %w", delErr)
		}
		return entities.SyncSkipped, nil
	}
	if err != nil {
		return outcome, fmt.Errorf("persist mirror id: %w", err)
	}
	return outcome, nil
}
