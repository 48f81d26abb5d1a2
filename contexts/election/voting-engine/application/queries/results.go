package queries

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	application "github.com/TADABA21/voting-app/contexts/election/voting-engine/application"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/services"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

const (
	GroupByPosition  = "position"
	GroupByCandidate = "candidate"
)

type VoteCountsResult struct {
	Counts      map[string]int64
	TotalVotes  int64
	TotalVoters int64
}

type ResultsUseCase struct {
	Candidates ports.CandidateRepository
	Ballots    ports.BallotRepository
	Voters     ports.VoterRepository
	Logger     *slog.Logger
}

// Tally counts ballots per candidate. Every candidate is seeded at zero
// before aggregated counts are folded in, so zero-vote candidates are listed.
func (uc ResultsUseCase) Tally(ctx context.Context, groupBy string) (entities.Tally, error) {
	groupBy = strings.ToLower(strings.TrimSpace(groupBy))
	if groupBy == "" {
		groupBy = GroupByPosition
	}
	if groupBy != GroupByPosition && groupBy != GroupByCandidate {
		return entities.Tally{}, domainerrors.ErrInvalidGroupBy
	}

	rows, total, err := uc.candidateTallies(ctx)
	if err != nil {
		application.ResolveLogger(uc.Logger).Error("tally failed",
			"event", "voting_tally_failed",
			"module", application.ModuleName,
			"layer", "application",
			"error", err.Error(),
		)
		return entities.Tally{}, err
	}

	tally := entities.Tally{GroupBy: groupBy, TotalVotes: total}
	if groupBy == GroupByCandidate {
		sortByVotes(rows)
		tally.Candidates = rows
		return tally, nil
	}

	byPosition := make(map[string]*entities.PositionTally)
	order := make([]string, 0)
	for _, row := range rows {
		key := services.NormalizeKey(row.Position)
		group, ok := byPosition[key]
		if !ok {
			group = &entities.PositionTally{Position: row.Position}
			byPosition[key] = group
			order = append(order, key)
		}
		group.Candidates = append(group.Candidates, row)
		group.TotalVotes += row.Votes
	}
	sort.Strings(order)
	tally.Positions = make([]entities.PositionTally, 0, len(order))
	for _, key := range order {
		group := byPosition[key]
		sortByVotes(group.Candidates)
		tally.Positions = append(tally.Positions, *group)
	}
	return tally, nil
}

// VoteCounts is the admin view keyed by candidate name.
func (uc ResultsUseCase) VoteCounts(ctx context.Context, actor entities.Identity) (VoteCountsResult, error) {
	if err := services.RequireAdmin(actor); err != nil {
		return VoteCountsResult{}, err
	}
	rows, total, err := uc.candidateTallies(ctx)
	if err != nil {
		return VoteCountsResult{}, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Name] += row.Votes
	}
	voters, err := uc.Voters.CountVoters(ctx, ports.VoterFilter{})
	if err != nil {
		return VoteCountsResult{}, err
	}
	return VoteCountsResult{Counts: counts, TotalVotes: total, TotalVoters: voters}, nil
}

func (uc ResultsUseCase) candidateTallies(ctx context.Context) ([]entities.CandidateTally, int64, error) {
	candidates, err := uc.Candidates.FindCandidates(ctx, ports.CandidateFilter{})
	if err != nil {
		return nil, 0, err
	}
	counts, err := uc.Ballots.CountBallotsByCandidate(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]entities.CandidateTally, 0, len(candidates))
	var total int64
	for _, candidate := range candidates {
		votes := counts[candidate.CandidateID]
		total += votes
		rows = append(rows, entities.CandidateTally{
			CandidateID: candidate.CandidateID,
			Name:        candidate.Name,
			Position:    candidate.Position,
			ImageURL:    candidate.ImageURL,
			Votes:       votes,
		})
	}
	return rows, total, nil
}

func sortByVotes(rows []entities.CandidateTally) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Votes == rows[j].Votes {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Votes > rows[j].Votes
	})
}
