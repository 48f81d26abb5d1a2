package queries

import (
	"context"
	"errors"
	"sort"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/services"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

type BootstrapStatus struct {
	NeedsBootstrap bool
	AdminCount     int64
}

type DirectoryUseCase struct {
	Voters     ports.VoterRepository
	Students   ports.StudentRepository
	Candidates ports.CandidateRepository
}

func (uc DirectoryUseCase) ListCandidates(ctx context.Context) ([]entities.Candidate, error) {
	items, err := uc.Candidates.FindCandidates(ctx, ports.CandidateFilter{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		left, right := services.NormalizeKey(items[i].Position), services.NormalizeKey(items[j].Position)
		if left == right {
			return services.NormalizeKey(items[i].Name) < services.NormalizeKey(items[j].Name)
		}
		return left < right
	})
	return items, nil
}

func (uc DirectoryUseCase) ListStudents(ctx context.Context, actor entities.Identity) ([]entities.Student, error) {
	if err := services.RequireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := uc.Students.FindStudents(ctx, ports.StudentFilter{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Email < items[j].Email })
	return items, nil
}

// ListVoters returns every voter, or only those who have voted.
func (uc DirectoryUseCase) ListVoters(ctx context.Context, actor entities.Identity, onlyVoted bool) ([]entities.Voter, error) {
	if err := services.RequireAdmin(actor); err != nil {
		return nil, err
	}
	filter := ports.VoterFilter{}
	if onlyVoted {
		voted := true
		filter.HasVoted = &voted
	}
	items, err := uc.Voters.FindVoters(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Email < items[j].Email })
	return items, nil
}

func (uc DirectoryUseCase) BootstrapStatus(ctx context.Context) (BootstrapStatus, error) {
	admin := true
	count, err := uc.Voters.CountVoters(ctx, ports.VoterFilter{IsAdmin: &admin})
	if err != nil {
		return BootstrapStatus{}, err
	}
	return BootstrapStatus{NeedsBootstrap: count == 0, AdminCount: count}, nil
}

// CurrentVoter loads the caller's own voter record for the session check.
func (uc DirectoryUseCase) CurrentVoter(ctx context.Context, identity entities.Identity) (entities.Voter, error) {
	if err := services.RequireIdentity(identity); err != nil {
		return entities.Voter{}, err
	}
	voter, err := uc.Voters.FindVoter(ctx, ports.VoterFilter{VoterID: identity.VoterID})
	if errors.Is(err, ports.ErrRecordNotFound) {
		return entities.Voter{}, domainerrors.ErrVoterNotFound
	}
	return voter, err
}
