package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/adapters/memory"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/adapters/security"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

type recordingMirror struct {
	changes []ports.MirrorChange
}

func (m *recordingMirror) PublishMirrorChanges(_ context.Context, changes ...ports.MirrorChange) {
	m.changes = append(m.changes, changes...)
}

// failingStudentStore rejects the registration flag update.
type failingStudentStore struct {
	*memory.Store
}

func (s failingStudentStore) UpdateStudent(context.Context, string, ports.StudentPatch, time.Time) error {
	return errors.New("student table unavailable")
}

// voteBeforeDeleteStore lands a ballot for the candidate just before the
// delete reaches the store.
type voteBeforeDeleteStore struct {
	*memory.Store
	ballot entities.Ballot
}

func (s voteBeforeDeleteStore) DeleteCandidates(ctx context.Context, filter ports.CandidateFilter) ([]entities.Candidate, error) {
	if err := s.Store.CastBallot(ctx, s.ballot); err != nil {
		return nil, err
	}
	return s.Store.DeleteCandidates(ctx, filter)
}

// deleteBeforeVoteStore removes the candidate just before the ballot reaches
// the store.
type deleteBeforeVoteStore struct {
	*memory.Store
	candidateID string
}

func (s deleteBeforeVoteStore) CastBallot(ctx context.Context, ballot entities.Ballot) error {
	if _, err := s.Store.DeleteCandidates(ctx, ports.CandidateFilter{CandidateID: s.candidateID}); err != nil {
		return err
	}
	return s.Store.CastBallot(ctx, ballot)
}

type fixture struct {
	store  *memory.Store
	mirror *recordingMirror
	tokens *security.JWTIssuer
	hasher security.BcryptHasher
}

func newFixture(t *testing.T, students ...string) fixture {
	t.Helper()
	store := memory.NewStore()
	for _, email := range students {
		if err := store.InsertStudent(context.Background(), entities.Student{StudentID: "s-" + email, Email: email}); err != nil {
			t.Fatalf("seed student: %v", err)
		}
	}
	tokens, err := security.NewJWTIssuer("test-secret", time.Hour, "")
	if err != nil {
		t.Fatalf("jwt issuer: %v", err)
	}
	return fixture{
		store:  store,
		mirror: &recordingMirror{},
		tokens: tokens,
		hasher: security.BcryptHasher{Cost: security.MinBcryptCost},
	}
}

func (f fixture) registration(adminEmail string) RegistrationUseCase {
	return RegistrationUseCase{
		Voters:              f.store,
		Students:            f.store,
		Hasher:              f.hasher,
		Clock:               f.store,
		IDGen:               f.store,
		Mirror:              f.mirror,
		BootstrapAdminEmail: adminEmail,
	}
}

func (f fixture) admins(adminEmail string) AdminUseCase {
	return AdminUseCase{
		Voters:              f.store,
		Hasher:              f.hasher,
		Tokens:              f.tokens,
		Clock:               f.store,
		Mirror:              f.mirror,
		BootstrapAdminEmail: adminEmail,
	}
}

func (f fixture) ballots() BallotUseCase {
	return BallotUseCase{
		Voters:     f.store,
		Candidates: f.store,
		Ballots:    f.store,
		Clock:      f.store,
		IDGen:      f.store,
		Mirror:     f.mirror,
	}
}

func TestRegisterKeepsVoterWhenStudentFlagFails(t *testing.T) {
	f := newFixture(t, "a@x.edu")
	uc := f.registration("")
	uc.Students = failingStudentStore{Store: f.store}

	result, err := uc.Register(context.Background(), RegisterCommand{Email: "a@x.edu", Password: "pw123456"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.Student.IsRegistered {
		t.Fatalf("student flag must reflect the failed update")
	}
	if _, err := f.store.FindVoter(context.Background(), ports.VoterFilter{Email: "a@x.edu"}); err != nil {
		t.Fatalf("expected voter to exist: %v", err)
	}
	if len(f.mirror.changes) != 1 || f.mirror.changes[0].Entity != entities.EntityVoter {
		t.Fatalf("expected only the voter to be mirrored, got %+v", f.mirror.changes)
	}
}

func TestSubmitVoteRepairsStaleFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.InsertVoter(ctx, entities.Voter{VoterID: "v1", Email: "a@x.edu"}); err != nil {
		t.Fatalf("insert voter: %v", err)
	}
	if err := f.store.InsertCandidate(ctx, entities.Candidate{CandidateID: "c1", Name: "Alice", Position: "President"}); err != nil {
		t.Fatalf("insert candidate: %v", err)
	}
	if err := f.store.CastBallot(ctx, entities.Ballot{BallotID: "b1", VoterID: "v1", CandidateID: "c1"}); err != nil {
		t.Fatalf("cast ballot: %v", err)
	}
	stale := false
	if err := f.store.UpdateVoter(ctx, "v1", ports.VoterPatch{HasVoted: &stale}, time.Now()); err != nil {
		t.Fatalf("clear flag: %v", err)
	}

	_, err := f.ballots().SubmitVote(ctx, entities.Identity{VoterID: "v1"}, SubmitVoteCommand{CandidateName: "Alice"})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	voter, _ := f.store.FindVoter(ctx, ports.VoterFilter{VoterID: "v1"})
	if !voter.HasVoted {
		t.Fatalf("expected has_voted to be repaired")
	}
	count, _ := f.store.CountBallots(ctx, ports.BallotFilter{})
	if count != 1 {
		t.Fatalf("expected a single ballot, got %d", count)
	}
}

func TestSubmitVoteUnknownCandidateListsAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.InsertVoter(ctx, entities.Voter{VoterID: "v1", Email: "a@x.edu"}); err != nil {
		t.Fatalf("insert voter: %v", err)
	}
	for _, c := range []entities.Candidate{
		{CandidateID: "c1", Name: "Alice", Position: "President"},
		{CandidateID: "c2", Name: "Alice", Position: "Treasurer"},
	} {
		if err := f.store.InsertCandidate(ctx, c); err != nil {
			t.Fatalf("insert candidate: %v", err)
		}
	}
	identity := entities.Identity{VoterID: "v1"}

	_, err := f.ballots().SubmitVote(ctx, identity, SubmitVoteCommand{CandidateName: "Zed"})
	var notFound *domainerrors.CandidateNotFoundError
	if !errors.As(err, &notFound) || len(notFound.Available) != 2 {
		t.Fatalf("expected candidate not found with two options, got %v", err)
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("candidate not found must be a not found error")
	}

	_, err = f.ballots().SubmitVote(ctx, identity, SubmitVoteCommand{CandidateName: "alice"})
	if !errors.Is(err, domainerrors.ErrAmbiguousCandidate) {
		t.Fatalf("expected ambiguous candidate, got %v", err)
	}
	if _, err := f.ballots().SubmitVote(ctx, identity, SubmitVoteCommand{CandidateName: "alice", Position: "treasurer"}); err != nil {
		t.Fatalf("vote with position: %v", err)
	}
}

func TestExplicitBootstrapOnlyWhileNoAdmin(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	ctx := context.Background()
	registration := f.registration("")
	for _, email := range []string{"a@x.edu", "b@x.edu"} {
		if _, err := registration.Register(ctx, RegisterCommand{Email: email, Password: "pw123456"}); err != nil {
			t.Fatalf("register %s: %v", email, err)
		}
	}
	admins := f.admins("")

	if _, err := admins.BootstrapAdmin(ctx, BootstrapAdminCommand{Email: "a@x.edu", Password: "wrong-password"}); !errors.Is(err, domainerrors.ErrInvalidCredential) {
		t.Fatalf("expected invalid credential, got %v", err)
	}
	result, err := admins.BootstrapAdmin(ctx, BootstrapAdminCommand{Email: "a@x.edu", Password: "pw123456"})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !result.Promoted || !result.Voter.IsAdmin || result.Token == "" {
		t.Fatalf("unexpected bootstrap result %+v", result)
	}
	if _, err := admins.BootstrapAdmin(ctx, BootstrapAdminCommand{Email: "b@x.edu", Password: "pw123456"}); !errors.Is(err, domainerrors.ErrAdminExists) {
		t.Fatalf("expected admin exists, got %v", err)
	}
}

func TestEnsureBootstrapAdminNeverCreatesAccounts(t *testing.T) {
	f := newFixture(t, "admin@x.edu")
	ctx := context.Background()
	admins := f.admins("admin@x.edu")

	promoted, err := admins.EnsureBootstrapAdmin(ctx)
	if err != nil || promoted {
		t.Fatalf("expected no-op without a voter, got %v %v", promoted, err)
	}
	count, _ := f.store.CountVoters(ctx, ports.VoterFilter{})
	if count != 0 {
		t.Fatalf("startup hook must not create voters, got %d", count)
	}

	if err := f.store.InsertVoter(ctx, entities.Voter{VoterID: "v1", Email: "admin@x.edu"}); err != nil {
		t.Fatalf("insert voter: %v", err)
	}
	promoted, err = admins.EnsureBootstrapAdmin(ctx)
	if err != nil || !promoted {
		t.Fatalf("expected promotion, got %v %v", promoted, err)
	}
	promoted, err = admins.EnsureBootstrapAdmin(ctx)
	if err != nil || promoted {
		t.Fatalf("expected second run to be a no-op, got %v %v", promoted, err)
	}
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	voter := entities.Identity{VoterID: "v1"}

	if _, err := f.admins("").Promote(ctx, voter, "b@x.edu"); !errors.Is(err, domainerrors.ErrAdminRequired) {
		t.Fatalf("expected admin required, got %v", err)
	}
	if _, err := f.ballots().ResetBallots(ctx, voter); !errors.Is(err, domainerrors.ErrAdminRequired) {
		t.Fatalf("expected admin required, got %v", err)
	}
	if _, err := f.ballots().ResetBallots(ctx, entities.Identity{}); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestBulkAddStudentsReportsRows(t *testing.T) {
	f := newFixture(t, "existing@x.edu")
	uc := StudentUseCase{Students: f.store, Clock: f.store, IDGen: f.store, Mirror: f.mirror}
	admin := entities.Identity{VoterID: "admin", IsAdmin: true}

	result, err := uc.BulkAddStudents(context.Background(), admin, []ports.StudentRow{
		{Row: 2, Email: "new@x.edu", Name: "New"},
		{Row: 3, Email: "EXISTING@x.edu"},
		{Row: 4, Email: "broken"},
	})
	if err != nil {
		t.Fatalf("bulk add: %v", err)
	}
	if result.Added != 1 || result.Skipped != 1 || len(result.Errors) != 1 {
		t.Fatalf("unexpected bulk result %+v", result)
	}
	if result.Errors[0].Row != 4 {
		t.Fatalf("expected row 4 to fail, got %+v", result.Errors[0])
	}
}

func seedVoterAndCandidate(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	if err := store.InsertVoter(ctx, entities.Voter{VoterID: "v1", Email: "a@x.edu"}); err != nil {
		t.Fatalf("insert voter: %v", err)
	}
	if err := store.InsertCandidate(ctx, entities.Candidate{CandidateID: "c1", Name: "Alice", Position: "President"}); err != nil {
		t.Fatalf("insert candidate: %v", err)
	}
}

func TestDeleteCandidateBlockedByVoteCastDuringDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedVoterAndCandidate(t, f.store)
	uc := CandidateUseCase{
		Candidates: voteBeforeDeleteStore{
			Store:  f.store,
			ballot: entities.Ballot{BallotID: "b1", VoterID: "v1", CandidateID: "c1", CastAt: time.Now()},
		},
		Ballots: f.store,
		Clock:   f.store,
		IDGen:   f.store,
		Mirror:  f.mirror,
	}
	admin := entities.Identity{VoterID: "admin", Email: "admin@x.edu", IsAdmin: true}

	_, err := uc.DeleteCandidate(ctx, admin, DeleteCandidateCommand{Name: "Alice"})
	var hasVotes *domainerrors.CandidateHasVotesError
	if !errors.As(err, &hasVotes) || hasVotes.Votes != 1 {
		t.Fatalf("expected candidate with one vote to be kept, got %v", err)
	}
	if _, err := f.store.FindCandidate(ctx, ports.CandidateFilter{CandidateID: "c1"}); err != nil {
		t.Fatalf("expected candidate to survive: %v", err)
	}
	if len(f.mirror.changes) != 0 {
		t.Fatalf("expected no mirror delete, got %+v", f.mirror.changes)
	}
}

func TestSubmitVoteForCandidateDeletedDuringVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedVoterAndCandidate(t, f.store)
	uc := f.ballots()
	uc.Ballots = deleteBeforeVoteStore{Store: f.store, candidateID: "c1"}

	_, err := uc.SubmitVote(ctx, entities.Identity{VoterID: "v1"}, SubmitVoteCommand{CandidateName: "Alice"})
	if !errors.Is(err, domainerrors.ErrCandidateNotFound) {
		t.Fatalf("expected candidate not found, got %v", err)
	}
	voter, _ := f.store.FindVoter(ctx, ports.VoterFilter{VoterID: "v1"})
	if voter.HasVoted {
		t.Fatalf("expected voter to remain eligible")
	}
	count, _ := f.store.CountBallots(ctx, ports.BallotFilter{})
	if count != 0 {
		t.Fatalf("expected no ballot, got %d", count)
	}
}

func TestRegisterGrantsAdminToConfiguredIdentityWhenAdminExists(t *testing.T) {
	f := newFixture(t, "admin@x.edu", "b@x.edu")
	ctx := context.Background()
	if err := f.store.InsertVoter(ctx, entities.Voter{VoterID: "other", Email: "other@x.edu", IsAdmin: true}); err != nil {
		t.Fatalf("insert admin: %v", err)
	}
	uc := f.registration("admin@x.edu")

	configured, err := uc.Register(ctx, RegisterCommand{Email: "Admin@x.edu", Password: "pw123456"})
	if err != nil {
		t.Fatalf("register configured admin: %v", err)
	}
	if !configured.Voter.IsAdmin {
		t.Fatalf("expected configured identity to be an admin")
	}
	plain, err := uc.Register(ctx, RegisterCommand{Email: "b@x.edu", Password: "pw123456"})
	if err != nil {
		t.Fatalf("register voter: %v", err)
	}
	if plain.Voter.IsAdmin {
		t.Fatalf("expected ordinary voter not to be an admin")
	}
}
