package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/services"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"

	"github.com/google/uuid"
)

// Store is the in-memory record store. The mutex plays the role of the
// database's constraint checks: every uniqueness rule the Postgres schema
// declares is enforced here under the write lock.
type Store struct {
	mu sync.RWMutex

	voters     map[string]entities.Voter
	students   map[string]entities.Student
	candidates map[string]entities.Candidate
	ballots    map[string]entities.Ballot

	voterByEmail   map[string]string
	studentByEmail map[string]string
	candidateByKey map[string]string
	ballotByVoter  map[string]string
	now            func() time.Time
}

func NewStore() *Store {
	return &Store{
		voters:         make(map[string]entities.Voter),
		students:       make(map[string]entities.Student),
		candidates:     make(map[string]entities.Candidate),
		ballots:        make(map[string]entities.Ballot),
		voterByEmail:   make(map[string]string),
		studentByEmail: make(map[string]string),
		candidateByKey: make(map[string]string),
		ballotByVoter:  make(map[string]string),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the store clock for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func candidateKey(name string, position string) string {
	return services.NormalizeKey(name) + "\x00" + services.NormalizeKey(position)
}

func (s *Store) InsertVoter(_ context.Context, voter entities.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := services.NormalizeKey(voter.Email)
	if _, exists := s.voterByEmail[email]; exists {
		return ports.ErrDuplicate
	}
	if _, exists := s.voters[voter.VoterID]; exists {
		return ports.ErrDuplicate
	}
	voter.Email = email
	s.voters[voter.VoterID] = voter
	s.voterByEmail[email] = voter.VoterID
	return nil
}

func (s *Store) FindVoters(_ context.Context, filter ports.VoterFilter) ([]entities.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchVoters(filter), nil
}

func (s *Store) FindVoter(ctx context.Context, filter ports.VoterFilter) (entities.Voter, error) {
	items, _ := s.FindVoters(ctx, filter)
	if len(items) == 0 {
		return entities.Voter{}, ports.ErrRecordNotFound
	}
	return items[0], nil
}

func (s *Store) CountVoters(_ context.Context, filter ports.VoterFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matchVoters(filter))), nil
}

func (s *Store) UpdateVoter(_ context.Context, voterID string, patch ports.VoterPatch, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	voter, ok := s.voters[voterID]
	if !ok {
		return ports.ErrRecordNotFound
	}
	if patch.PasswordHash != nil {
		voter.PasswordHash = *patch.PasswordHash
	}
	if patch.HasVoted != nil {
		voter.HasVoted = *patch.HasVoted
	}
	if patch.IsAdmin != nil {
		voter.IsAdmin = *patch.IsAdmin
	}
	voter.UpdatedAt = updatedAt
	s.voters[voterID] = voter
	return nil
}

func (s *Store) PromoteIfNoAdmin(_ context.Context, voterID string, updatedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	voter, ok := s.voters[voterID]
	if !ok {
		return false, ports.ErrRecordNotFound
	}
	for _, item := range s.voters {
		if item.IsAdmin {
			return false, nil
		}
	}
	voter.IsAdmin = true
	voter.UpdatedAt = updatedAt
	s.voters[voterID] = voter
	return true, nil
}

func (s *Store) matchVoters(filter ports.VoterFilter) []entities.Voter {
	email := services.NormalizeKey(filter.Email)
	items := make([]entities.Voter, 0)
	for _, voter := range s.voters {
		if filter.VoterID != "" && voter.VoterID != filter.VoterID {
			continue
		}
		if email != "" && voter.Email != email {
			continue
		}
		if filter.IsAdmin != nil && voter.IsAdmin != *filter.IsAdmin {
			continue
		}
		if filter.HasVoted != nil && voter.HasVoted != *filter.HasVoted {
			continue
		}
		items = append(items, voter)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items
}

func (s *Store) InsertStudent(_ context.Context, student entities.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := services.NormalizeKey(student.Email)
	if _, exists := s.studentByEmail[email]; exists {
		return ports.ErrDuplicate
	}
	student.Email = email
	s.students[student.StudentID] = student
	s.studentByEmail[email] = student.StudentID
	return nil
}

func (s *Store) FindStudents(_ context.Context, filter ports.StudentFilter) ([]entities.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchStudents(filter), nil
}

func (s *Store) FindStudent(ctx context.Context, filter ports.StudentFilter) (entities.Student, error) {
	items, _ := s.FindStudents(ctx, filter)
	if len(items) == 0 {
		return entities.Student{}, ports.ErrRecordNotFound
	}
	return items[0], nil
}

func (s *Store) CountStudents(_ context.Context, filter ports.StudentFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matchStudents(filter))), nil
}

func (s *Store) UpdateStudent(_ context.Context, studentID string, patch ports.StudentPatch, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.students[studentID]
	if !ok {
		return ports.ErrRecordNotFound
	}
	if patch.IsRegistered != nil {
		student.IsRegistered = *patch.IsRegistered
	}
	student.UpdatedAt = updatedAt
	s.students[studentID] = student
	return nil
}

func (s *Store) DeleteStudents(_ context.Context, filter ports.StudentFilter) ([]entities.Student, error) {
	if filter == (ports.StudentFilter{}) {
		return nil, ports.ErrEmptyFilter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := s.matchStudents(filter)
	for _, student := range deleted {
		delete(s.students, student.StudentID)
		delete(s.studentByEmail, student.Email)
	}
	return deleted, nil
}

func (s *Store) matchStudents(filter ports.StudentFilter) []entities.Student {
	email := services.NormalizeKey(filter.Email)
	items := make([]entities.Student, 0)
	for _, student := range s.students {
		if filter.StudentID != "" && student.StudentID != filter.StudentID {
			continue
		}
		if email != "" && student.Email != email {
			continue
		}
		if filter.IsRegistered != nil && student.IsRegistered != *filter.IsRegistered {
			continue
		}
		items = append(items, student)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Email < items[j].Email })
	return items
}

func (s *Store) InsertCandidate(_ context.Context, candidate entities.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := candidateKey(candidate.Name, candidate.Position)
	if _, exists := s.candidateByKey[key]; exists {
		return ports.ErrDuplicate
	}
	s.candidates[candidate.CandidateID] = candidate
	s.candidateByKey[key] = candidate.CandidateID
	return nil
}

func (s *Store) FindCandidates(_ context.Context, filter ports.CandidateFilter) ([]entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchCandidates(filter), nil
}

func (s *Store) FindCandidate(ctx context.Context, filter ports.CandidateFilter) (entities.Candidate, error) {
	items, _ := s.FindCandidates(ctx, filter)
	if len(items) == 0 {
		return entities.Candidate{}, ports.ErrRecordNotFound
	}
	return items[0], nil
}

func (s *Store) CountCandidates(_ context.Context, filter ports.CandidateFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matchCandidates(filter))), nil
}

func (s *Store) DeleteCandidates(_ context.Context, filter ports.CandidateFilter) ([]entities.Candidate, error) {
	if filter == (ports.CandidateFilter{}) {
		return nil, ports.ErrEmptyFilter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := s.matchCandidates(filter)
	for _, candidate := range deleted {
		for _, ballot := range s.ballots {
			if ballot.CandidateID == candidate.CandidateID {
				return nil, ports.ErrReferenced
			}
		}
	}
	for _, candidate := range deleted {
		delete(s.candidates, candidate.CandidateID)
		delete(s.candidateByKey, candidateKey(candidate.Name, candidate.Position))
	}
	return deleted, nil
}

func (s *Store) matchCandidates(filter ports.CandidateFilter) []entities.Candidate {
	name := services.NormalizeKey(filter.Name)
	position := services.NormalizeKey(filter.Position)
	items := make([]entities.Candidate, 0)
	for _, candidate := range s.candidates {
		if filter.CandidateID != "" && candidate.CandidateID != filter.CandidateID {
			continue
		}
		if name != "" && services.NormalizeKey(candidate.Name) != name {
			continue
		}
		if position != "" && services.NormalizeKey(candidate.Position) != position {
			continue
		}
		items = append(items, candidate)
	}
	sort.Slice(items, func(i, j int) bool {
		return candidateKey(items[i].Name, items[i].Position) < candidateKey(items[j].Name, items[j].Position)
	})
	return items
}

func (s *Store) CastBallot(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ballotByVoter[ballot.VoterID]; exists {
		return ports.ErrDuplicate
	}
	voter, ok := s.voters[ballot.VoterID]
	if !ok {
		return ports.ErrRecordNotFound
	}
	if _, ok := s.candidates[ballot.CandidateID]; !ok {
		return ports.ErrRecordNotFound
	}
	s.ballots[ballot.BallotID] = ballot
	s.ballotByVoter[ballot.VoterID] = ballot.BallotID
	voter.HasVoted = true
	voter.UpdatedAt = ballot.CastAt
	s.voters[voter.VoterID] = voter
	return nil
}

func (s *Store) FindBallots(_ context.Context, filter ports.BallotFilter) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchBallots(filter), nil
}

func (s *Store) FindBallot(ctx context.Context, filter ports.BallotFilter) (entities.Ballot, error) {
	items, _ := s.FindBallots(ctx, filter)
	if len(items) == 0 {
		return entities.Ballot{}, ports.ErrRecordNotFound
	}
	return items[0], nil
}

func (s *Store) CountBallots(_ context.Context, filter ports.BallotFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matchBallots(filter))), nil
}

func (s *Store) CountBallotsByCandidate(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int64)
	for _, ballot := range s.ballots {
		counts[ballot.CandidateID]++
	}
	return counts, nil
}

func (s *Store) ResetBallots(_ context.Context, updatedAt time.Time) ([]entities.Ballot, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := make([]entities.Ballot, 0, len(s.ballots))
	for _, ballot := range s.ballots {
		deleted = append(deleted, ballot)
	}
	resetVoters := make([]string, 0)
	for id, voter := range s.voters {
		if !voter.HasVoted {
			continue
		}
		voter.HasVoted = false
		voter.UpdatedAt = updatedAt
		s.voters[id] = voter
		resetVoters = append(resetVoters, id)
	}
	s.ballots = make(map[string]entities.Ballot)
	s.ballotByVoter = make(map[string]string)
	sort.Strings(resetVoters)
	return deleted, resetVoters, nil
}

func (s *Store) matchBallots(filter ports.BallotFilter) []entities.Ballot {
	items := make([]entities.Ballot, 0)
	for _, ballot := range s.ballots {
		if filter.BallotID != "" && ballot.BallotID != filter.BallotID {
			continue
		}
		if filter.VoterID != "" && ballot.VoterID != filter.VoterID {
			continue
		}
		if filter.CandidateID != "" && ballot.CandidateID != filter.CandidateID {
			continue
		}
		items = append(items, ballot)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CastAt.Before(items[j].CastAt) })
	return items
}

func (s *Store) SetMirrorID(_ context.Context, entity entities.EntityKind, recordID string, mirrorID string) (bool, error) {
	return s.swapMirrorID(entity, recordID, "", mirrorID)
}

func (s *Store) ReplaceMirrorID(_ context.Context, entity entities.EntityKind, recordID string, staleID string, mirrorID string) (bool, error) {
	if staleID == "" {
		return false, fmt.Errorf("replace mirror id for %s %q: stale id is empty", entity, recordID)
	}
	return s.swapMirrorID(entity, recordID, staleID, mirrorID)
}

func (s *Store) swapMirrorID(entity entities.EntityKind, recordID string, expected string, mirrorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch entity {
	case entities.EntityVoter:
		item, ok := s.voters[recordID]
		if !ok {
			return false, ports.ErrRecordNotFound
		}
		if item.MirrorID != expected {
			return false, nil
		}
		item.MirrorID = mirrorID
		s.voters[recordID] = item
	case entities.EntityStudent:
		item, ok := s.students[recordID]
		if !ok {
			return false, ports.ErrRecordNotFound
		}
		if item.MirrorID != expected {
			return false, nil
		}
		item.MirrorID = mirrorID
		s.students[recordID] = item
	case entities.EntityCandidate:
		item, ok := s.candidates[recordID]
		if !ok {
			return false, ports.ErrRecordNotFound
		}
		if item.MirrorID != expected {
			return false, nil
		}
		item.MirrorID = mirrorID
		s.candidates[recordID] = item
	case entities.EntityBallot:
		item, ok := s.ballots[recordID]
		if !ok {
			return false, ports.ErrRecordNotFound
		}
		if item.MirrorID != expected {
			return false, nil
		}
		item.MirrorID = mirrorID
		s.ballots[recordID] = item
	default:
		return false, fmt.Errorf("unknown entity %q", entity)
	}
	return true, nil
}

var _ ports.RecordStore = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
