package postgresadapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepository(db, nil)
}

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func seedVoter(t *testing.T, repo *Repository, id string, email string) entities.Voter {
	t.Helper()
	voter := entities.Voter{VoterID: id, Email: email, PasswordHash: "hash", CreatedAt: testNow, UpdatedAt: testNow}
	if err := repo.InsertVoter(context.Background(), voter); err != nil {
		t.Fatalf("insert voter %s: %v", email, err)
	}
	return voter
}

func seedCandidate(t *testing.T, repo *Repository, id string, name string, position string) entities.Candidate {
	t.Helper()
	candidate := entities.Candidate{CandidateID: id, Name: name, Position: position, CreatedAt: testNow, UpdatedAt: testNow}
	if err := repo.InsertCandidate(context.Background(), candidate); err != nil {
		t.Fatalf("insert candidate %s: %v", name, err)
	}
	return candidate
}

func TestVoterEmailIsUnique(t *testing.T) {
	repo := newTestRepository(t)
	seedVoter(t, repo, "v1", "ada@school.edu")

	err := repo.InsertVoter(context.Background(), entities.Voter{VoterID: "v2", Email: "ADA@school.edu", PasswordHash: "x"})
	if !errors.Is(err, ports.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	voter, err := repo.FindVoter(context.Background(), ports.VoterFilter{Email: " Ada@School.edu "})
	if err != nil {
		t.Fatalf("find voter: %v", err)
	}
	if voter.VoterID != "v1" {
		t.Fatalf("unexpected voter %+v", voter)
	}
	if _, err := repo.FindVoter(context.Background(), ports.VoterFilter{Email: "ghost@school.edu"}); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCandidateNaturalKeyIsCaseInsensitive(t *testing.T) {
	repo := newTestRepository(t)
	seedCandidate(t, repo, "c1", "Ada", "President")

	err := repo.InsertCandidate(context.Background(), entities.Candidate{CandidateID: "c2", Name: " ada ", Position: "PRESIDENT"})
	if !errors.Is(err, ports.ErrDuplicate) {
		t.Fatalf("expected duplicate candidate, got %v", err)
	}
	seedCandidate(t, repo, "c3", "Ada", "Treasurer")

	matches, err := repo.FindCandidates(context.Background(), ports.CandidateFilter{Name: "ADA"})
	if err != nil {
		t.Fatalf("find candidates: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches across positions, got %d", len(matches))
	}
}

func TestCastBallotOncePerVoter(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedVoter(t, repo, "v1", "ada@school.edu")
	seedCandidate(t, repo, "c1", "Grace", "President")

	if err := repo.CastBallot(ctx, entities.Ballot{BallotID: "b1", VoterID: "v1", CandidateID: "c1", CastAt: testNow}); err != nil {
		t.Fatalf("cast ballot: %v", err)
	}
	err := repo.CastBallot(ctx, entities.Ballot{BallotID: "b2", VoterID: "v1", CandidateID: "c1", CastAt: testNow})
	if !errors.Is(err, ports.ErrDuplicate) {
		t.Fatalf("expected duplicate ballot, got %v", err)
	}

	voter, err := repo.FindVoter(ctx, ports.VoterFilter{VoterID: "v1"})
	if err != nil {
		t.Fatalf("find voter: %v", err)
	}
	if !voter.HasVoted {
		t.Fatalf("expected has_voted to be set with the ballot")
	}
	counts, err := repo.CountBallotsByCandidate(ctx)
	if err != nil {
		t.Fatalf("count ballots: %v", err)
	}
	if counts["c1"] != 1 {
		t.Fatalf("expected one ballot for c1, got %v", counts)
	}
}

func TestResetBallotsClearsFlags(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedVoter(t, repo, "v1", "ada@school.edu")
	seedVoter(t, repo, "v2", "bob@school.edu")
	seedCandidate(t, repo, "c1", "Grace", "President")
	for _, voterID := range []string{"v1", "v2"} {
		if err := repo.CastBallot(ctx, entities.Ballot{BallotID: "b-" + voterID, VoterID: voterID, CandidateID: "c1", CastAt: testNow}); err != nil {
			t.Fatalf("cast ballot: %v", err)
		}
	}

	deleted, resetVoters, err := repo.ResetBallots(ctx, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(deleted) != 2 || len(resetVoters) != 2 {
		t.Fatalf("unexpected reset result: %d ballots, %v voters", len(deleted), resetVoters)
	}
	voted := true
	remaining, err := repo.CountVoters(ctx, ports.VoterFilter{HasVoted: &voted})
	if err != nil {
		t.Fatalf("count voters: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected no voter flagged after reset, got %d", remaining)
	}
	ballots, err := repo.CountBallots(ctx, ports.BallotFilter{})
	if err != nil || ballots != 0 {
		t.Fatalf("expected no ballots after reset, got %d %v", ballots, err)
	}
}

func TestPromoteIfNoAdmin(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedVoter(t, repo, "v1", "ada@school.edu")
	seedVoter(t, repo, "v2", "bob@school.edu")

	promoted, err := repo.PromoteIfNoAdmin(ctx, "v1", testNow)
	if err != nil || !promoted {
		t.Fatalf("expected first promotion, got %v %v", promoted, err)
	}
	promoted, err = repo.PromoteIfNoAdmin(ctx, "v2", testNow)
	if err != nil || promoted {
		t.Fatalf("expected second promotion to be refused, got %v %v", promoted, err)
	}
	if _, err := repo.PromoteIfNoAdmin(ctx, "missing", testNow); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("expected not found for missing voter, got %v", err)
	}
}

func TestSetMirrorIDIsSetOnce(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedVoter(t, repo, "v1", "ada@school.edu")

	set, err := repo.SetMirrorID(ctx, entities.EntityVoter, "v1", "remote-1")
	if err != nil || !set {
		t.Fatalf("expected mirror id to be set, got %v %v", set, err)
	}
	set, err = repo.SetMirrorID(ctx, entities.EntityVoter, "v1", "remote-2")
	if err != nil || set {
		t.Fatalf("expected second set to be ignored, got %v %v", set, err)
	}
	voter, err := repo.FindVoter(ctx, ports.VoterFilter{VoterID: "v1"})
	if err != nil {
		t.Fatalf("find voter: %v", err)
	}
	if voter.MirrorID != "remote-1" {
		t.Fatalf("expected original mirror id, got %q", voter.MirrorID)
	}
}

func TestDeleteRequiresFilter(t *testing.T) {
	repo := newTestRepository(t)
	if _, err := repo.DeleteCandidates(context.Background(), ports.CandidateFilter{}); !errors.Is(err, ports.ErrEmptyFilter) {
		t.Fatalf("expected empty filter error, got %v", err)
	}
	if _, err := repo.DeleteStudents(context.Background(), ports.StudentFilter{}); !errors.Is(err, ports.ErrEmptyFilter) {
		t.Fatalf("expected empty filter error, got %v", err)
	}
}

func TestDeleteCandidatesRefusesReferencedCandidate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedVoter(t, repo, "v1", "ada@school.edu")
	seedCandidate(t, repo, "c1", "Grace", "President")
	seedCandidate(t, repo, "c2", "Linus", "President")
	if err := repo.CastBallot(ctx, entities.Ballot{BallotID: "b1", VoterID: "v1", CandidateID: "c1", CastAt: testNow}); err != nil {
		t.Fatalf("cast ballot: %v", err)
	}

	deleted, err := repo.DeleteCandidates(ctx, ports.CandidateFilter{CandidateID: "c1"})
	if !errors.Is(err, ports.ErrReferenced) || len(deleted) != 0 {
		t.Fatalf("expected referenced error, got %v (deleted %d)", err, len(deleted))
	}
	if _, err := repo.FindCandidate(ctx, ports.CandidateFilter{CandidateID: "c1"}); err != nil {
		t.Fatalf("expected candidate to survive: %v", err)
	}
	if deleted, err := repo.DeleteCandidates(ctx, ports.CandidateFilter{CandidateID: "c2"}); err != nil || len(deleted) != 1 {
		t.Fatalf("expected unreferenced candidate deleted, got %v", err)
	}
}

func TestBallotForeignKeyRejectsMissingCandidate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedVoter(t, repo, "v1", "ada@school.edu")

	err := repo.CastBallot(ctx, entities.Ballot{BallotID: "b1", VoterID: "v1", CandidateID: "gone", CastAt: testNow})
	if !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("expected not found for missing candidate, got %v", err)
	}
	voter, err := repo.FindVoter(ctx, ports.VoterFilter{VoterID: "v1"})
	if err != nil {
		t.Fatalf("find voter: %v", err)
	}
	if voter.HasVoted {
		t.Fatalf("expected has_voted to stay false")
	}
}

func TestReplaceMirrorIDRequiresStaleMatch(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedCandidate(t, repo, "c1", "Grace", "President")
	if _, err := repo.SetMirrorID(ctx, entities.EntityCandidate, "c1", "r1"); err != nil {
		t.Fatalf("set mirror id: %v", err)
	}
	if replaced, err := repo.ReplaceMirrorID(ctx, entities.EntityCandidate, "c1", "other", "r2"); err != nil || replaced {
		t.Fatalf("expected mismatched stale id to be ignored, got %v %v", replaced, err)
	}
	if replaced, err := repo.ReplaceMirrorID(ctx, entities.EntityCandidate, "c1", "r1", "r2"); err != nil || !replaced {
		t.Fatalf("expected replacement, got %v %v", replaced, err)
	}
	if _, err := repo.ReplaceMirrorID(ctx, entities.EntityCandidate, "missing", "r1", "r2"); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
