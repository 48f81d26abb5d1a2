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

// SubmitVoteCommand names the candidate by display name. Position is only
// needed when the name is used for more than one position.
type SubmitVoteCommand struct {
	CandidateName string
	Position      string
}

// SubmitVoteResult returns the stored ballot and the candidate it counts for.
type SubmitVoteResult struct {
	Ballot    entities.Ballot
	Candidate entities.Candidate
}

// ResetBallotsResult reports how many ballots were wiped and voters reset.
type ResetBallotsResult struct {
	DeletedBallots int
	ResetVoters    int
}

// BallotUseCase casts and resets ballots. Store constraints decide every race;
// the use case only translates their outcome.
type BallotUseCase struct {
	Voters     ports.VoterRepository
	Candidates ports.CandidateRepository
	Ballots    ports.BallotRepository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Mirror     ports.MirrorPublisher
	Logger     *slog.Logger
}

// SubmitVote casts the caller's only ballot. The store's unique ballot-per-
// voter constraint is the final word: a duplicate insert is reported as
// AlreadyVoted, never as a generic failure.
func (uc BallotUseCase) SubmitVote(ctx context.Context, identity entities.Identity, cmd SubmitVoteCommand) (SubmitVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := services.RequireIdentity(identity); err != nil {
		return SubmitVoteResult{}, err
	}
	if strings.TrimSpace(cmd.CandidateName) == "" {
		return SubmitVoteResult{}, domainerrors.ErrInvalidInput
	}

	voter, err := uc.Voters.FindVoter(ctx, ports.VoterFilter{VoterID: identity.VoterID})
	if err != nil {
		return SubmitVoteResult{}, translateNotFound(err, domainerrors.ErrVoterNotFound)
	}
	if voter.HasVoted {
		return SubmitVoteResult{}, domainerrors.ErrAlreadyVoted
	}
	if _, err := uc.Ballots.FindBallot(ctx, ports.BallotFilter{VoterID: voter.VoterID}); err == nil {
		uc.repairHasVoted(ctx, voter)
		return SubmitVoteResult{}, domainerrors.ErrAlreadyVoted
	} else if !errors.Is(err, ports.ErrRecordNotFound) {
		return SubmitVoteResult{}, err
	}

	candidate, err := uc.resolveCandidate(ctx, cmd.CandidateName, cmd.Position)
	if err != nil {
		return SubmitVoteResult{}, err
	}

	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	ballot := entities.Ballot{
		BallotID:    ballotID,
		VoterID:     voter.VoterID,
		CandidateID: candidate.CandidateID,
		CastAt:      currentTime(uc.Clock),
	}
	if err := uc.Ballots.CastBallot(ctx, ballot); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			logger.Warn("concurrent ballot rejected by store",
				"event", "voting_ballot_duplicate_rejected",
				"module", application.ModuleName,
				"layer", "application",
				"voter_id", voter.VoterID,
			)
			return SubmitVoteResult{}, domainerrors.ErrAlreadyVoted
		}
		if errors.Is(err, ports.ErrRecordNotFound) {
			_, findErr := uc.Candidates.FindCandidate(ctx, ports.CandidateFilter{CandidateID: candidate.CandidateID})
			if errors.Is(findErr, ports.ErrRecordNotFound) {
				return SubmitVoteResult{}, candidateNotFound(ctx, uc.Candidates, candidate.Name)
			}
		}
		return SubmitVoteResult{}, translateNotFound(err, domainerrors.ErrVoterNotFound)
	}
	publishMirror(ctx, uc.Mirror,
		upsertChange(entities.EntityVoter, voter.VoterID),
		upsertChange(entities.EntityBallot, ballot.BallotID),
	)

	logger.Info("ballot cast",
		"event", "voting_ballot_cast",
		"module", application.ModuleName,
		"layer", "application",
		"ballot_id", ballot.BallotID,
		"voter_id", voter.VoterID,
		"candidate_id", candidate.CandidateID,
		"position", candidate.Position,
	)
	return SubmitVoteResult{Ballot: ballot, Candidate: candidate}, nil
}

// ResetBallots wipes every ballot and clears every HasVoted flag as one
// store transaction.
func (uc BallotUseCase) ResetBallots(ctx context.Context, actor entities.Identity) (ResetBallotsResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := services.RequireAdmin(actor); err != nil {
		return ResetBallotsResult{}, err
	}

	deleted, resetVoters, err := uc.Ballots.ResetBallots(ctx, currentTime(uc.Clock))
	if err != nil {
		logger.Error("ballot reset failed",
			"event", "voting_ballots_reset_failed",
			"module", application.ModuleName,
			"layer", "application",
			"error", err.Error(),
		)
		return ResetBallotsResult{}, err
	}

	changes := make([]ports.MirrorChange, 0, len(deleted)+len(resetVoters))
	for _, ballot := range deleted {
		if ballot.MirrorID != "" {
			changes = append(changes, deleteChange(entities.EntityBallot, ballot.BallotID, ballot.MirrorID))
		}
	}
	for _, voterID := range resetVoters {
		changes = append(changes, upsertChange(entities.EntityVoter, voterID))
	}
	publishMirror(ctx, uc.Mirror, changes...)

	logger.Info("ballots reset",
		"event", "voting_ballots_reset",
		"module", application.ModuleName,
		"layer", "application",
		"actor_id", actor.VoterID,
		"deleted_ballots", len(deleted),
		"reset_voters", len(resetVoters),
	)
	return ResetBallotsResult{DeletedBallots: len(deleted), ResetVoters: len(resetVoters)}, nil
}

// repairHasVoted fixes a voter whose ballot exists without the flag. The
// caller still reports AlreadyVoted, so a failed repair is only logged.
func (uc BallotUseCase) repairHasVoted(ctx context.Context, voter entities.Voter) {
	logger := application.ResolveLogger(uc.Logger)
	err := uc.Voters.UpdateVoter(ctx, voter.VoterID, ports.VoterPatch{HasVoted: boolPtr(true)}, currentTime(uc.Clock))
	if err != nil {
		logger.Error("has_voted repair failed",
			"event", "voting_has_voted_repair_failed",
			"module", application.ModuleName,
			"layer", "application",
			"voter_id", voter.VoterID,
			"error", err.Error(),
		)
		return
	}
	publishMirror(ctx, uc.Mirror, upsertChange(entities.EntityVoter, voter.VoterID))
	logger.Warn("has_voted flag repaired from existing ballot",
		"event", "voting_has_voted_repaired",
		"module", application.ModuleName,
		"layer", "application",
		"voter_id", voter.VoterID,
	)
}

func (uc BallotUseCase) resolveCandidate(ctx context.Context, name string, position string) (entities.Candidate, error) {
	matches, err := uc.Candidates.FindCandidates(ctx, ports.CandidateFilter{Name: name, Position: position})
	if err != nil {
		return entities.Candidate{}, err
	}
	switch len(matches) {
	case 0:
		return entities.Candidate{}, candidateNotFound(ctx, uc.Candidates, name)
	case 1:
		return matches[0], nil
	default:
		return entities.Candidate{}, domainerrors.ErrAmbiguousCandidate
	}
}

func candidateNotFound(ctx context.Context, candidates ports.CandidateRepository, name string) error {
	all, err := candidates.FindCandidates(ctx, ports.CandidateFilter{})
	if err != nil {
		return err
	}
	available := make([]string, 0, len(all))
	for _, candidate := range all {
		available = append(available, candidate.Name+" ("+candidate.Position+")")
	}
	return &domainerrors.CandidateNotFoundError{Name: strings.TrimSpace(name), Available: available}
}
