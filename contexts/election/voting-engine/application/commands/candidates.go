package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "github.com/TADABA21/voting-app/contexts/election/voting-engine/application"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/services"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

// AddCandidateCommand is the admin input for a new candidate. An empty
// position falls back to the configured default.
type AddCandidateCommand struct {
	Name     string
	Position string
	ImageURL string
}

// DeleteCandidateCommand selects one candidate by name, narrowed by position
// when given.
type DeleteCandidateCommand struct {
	Name     string
	Position string
}

// CandidateUseCase manages the candidate list.
type CandidateUseCase struct {
	Candidates      ports.CandidateRepository
	Ballots         ports.BallotRepository
	Clock           ports.Clock
	IDGen           ports.IDGenerator
	Mirror          ports.MirrorPublisher
	DefaultPosition string
	Logger          *slog.Logger
}

// AddCandidate creates a candidate unique per normalized name and position.
func (uc CandidateUseCase) AddCandidate(ctx context.Context, actor entities.Identity, cmd AddCandidateCommand) (entities.Candidate, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := services.RequireAdmin(actor); err != nil {
		return entities.Candidate{}, err
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return entities.Candidate{}, domainerrors.ErrInvalidInput
	}
	position := services.ResolvePosition(cmd.Position, uc.defaultPosition())

	candidateID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Candidate{}, err
	}
	now := currentTime(uc.Clock)
	candidate := entities.Candidate{
		CandidateID: candidateID,
		Name:        name,
		Position:    position,
		ImageURL:    strings.TrimSpace(cmd.ImageURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.Candidates.InsertCandidate(ctx, candidate); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return entities.Candidate{}, domainerrors.ErrDuplicateCandidate
		}
		return entities.Candidate{}, err
	}
	publishMirror(ctx, uc.Mirror, upsertChange(entities.EntityCandidate, candidate.CandidateID))

	logger.Info("candidate added",
		"event", "voting_candidate_added",
		"module", application.ModuleName,
		"layer", "application",
		"candidate_id", candidate.CandidateID,
		"position", candidate.Position,
		"actor_id", actor.VoterID,
	)
	return candidate, nil
}

// DeleteCandidate removes exactly one candidate matched by normalized name
// (and position when given). The store refuses to remove a candidate that any
// ballot references, so a vote racing the delete either lands first and blocks
// it or fails to find the candidate.
func (uc CandidateUseCase) DeleteCandidate(ctx context.Context, actor entities.Identity, cmd DeleteCandidateCommand) (entities.Candidate, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := services.RequireAdmin(actor); err != nil {
		return entities.Candidate{}, err
	}
	if strings.TrimSpace(cmd.Name) == "" {
		return entities.Candidate{}, domainerrors.ErrInvalidInput
	}

	matches, err := uc.Candidates.FindCandidates(ctx, ports.CandidateFilter{Name: cmd.Name, Position: cmd.Position})
	if err != nil {
		return entities.Candidate{}, err
	}
	if len(matches) == 0 {
		return entities.Candidate{}, candidateNotFound(ctx, uc.Candidates, cmd.Name)
	}
	if len(matches) > 1 {
		return entities.Candidate{}, domainerrors.ErrAmbiguousCandidate
	}
	candidate := matches[0]

	deleted, err := uc.Candidates.DeleteCandidates(ctx, ports.CandidateFilter{CandidateID: candidate.CandidateID})
	if errors.Is(err, ports.ErrReferenced) {
		votes, countErr := uc.Ballots.CountBallots(ctx, ports.BallotFilter{CandidateID: candidate.CandidateID})
		if countErr != nil {
			return entities.Candidate{}, countErr
		}
		logger.Warn("candidate delete blocked by ballots",
			"event", "voting_candidate_delete_has_votes",
			"module", application.ModuleName,
			"layer", "application",
			"candidate_id", candidate.CandidateID,
			"votes", votes,
		)
		return entities.Candidate{}, &domainerrors.CandidateHasVotesError{Name: candidate.Name, Votes: votes}
	}
	if err != nil {
		return entities.Candidate{}, err
	}
	if len(deleted) == 0 {
		return entities.Candidate{}, candidateNotFound(ctx, uc.Candidates, cmd.Name)
	}
	if deleted[0].MirrorID != "" {
		publishMirror(ctx, uc.Mirror, deleteChange(entities.EntityCandidate, candidate.CandidateID, deleted[0].MirrorID))
	}

	logger.Info("candidate deleted",
		"event", "voting_candidate_deleted",
		"module", application.ModuleName,
		"layer", "application",
		"candidate_id", candidate.CandidateID,
		"actor_id", actor.VoterID,
	)
	return deleted[0], nil
}

func (uc CandidateUseCase) defaultPosition() string {
	if strings.TrimSpace(uc.DefaultPosition) == "" {
		return entities.DefaultPosition
	}
	return uc.DefaultPosition
}
