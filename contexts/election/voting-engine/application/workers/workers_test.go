package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/adapters/memory"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

func seedElection(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	if err := store.InsertVoter(ctx, entities.Voter{VoterID: "v1", Email: "a@x.edu", PasswordHash: "secret-hash"}); err != nil {
		t.Fatalf("insert voter: %v", err)
	}
	if err := store.InsertStudent(ctx, entities.Student{StudentID: "s1", Email: "a@x.edu", IsRegistered: true}); err != nil {
		t.Fatalf("insert student: %v", err)
	}
	if err := store.InsertCandidate(ctx, entities.Candidate{CandidateID: "c1", Name: "Alice", Position: "President"}); err != nil {
		t.Fatalf("insert candidate: %v", err)
	}
	if err := store.CastBallot(ctx, entities.Ballot{BallotID: "b1", VoterID: "v1", CandidateID: "c1"}); err != nil {
		t.Fatalf("cast ballot: %v", err)
	}
}

func TestReconcilerConvergesOnRerun(t *testing.T) {
	store := memory.NewStore()
	remote := memory.NewRemote()
	seedElection(t, store)
	reconciler := Reconciler{Store: store, Sink: MirrorSink{Store: store, Remote: remote}, Clock: store}

	first, err := reconciler.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	for _, entity := range entities.SyncOrder {
		if got := first.Stats(entity).Inserted; got != 1 {
			t.Fatalf("expected one %s insert, got %d", entity, got)
		}
	}

	second, err := reconciler.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for _, entity := range entities.SyncOrder {
		stats := second.Stats(entity)
		if stats.Inserted != 0 || stats.Updated != 1 {
			t.Fatalf("expected %s to be updated in place, got %+v", entity, stats)
		}
	}
	if remote.Inserts() != 4 {
		t.Fatalf("expected 4 remote rows overall, got %d", remote.Inserts())
	}

	for _, row := range remote.Rows(ports.RemoteTableVoters) {
		if _, leaked := row["password_hash"]; leaked {
			t.Fatalf("credentials must never reach the mirror")
		}
	}
	ballot, _ := store.FindBallot(context.Background(), ports.BallotFilter{BallotID: "b1"})
	voter, _ := store.FindVoter(context.Background(), ports.VoterFilter{VoterID: "v1"})
	row := remote.Rows(ports.RemoteTableBallots)[ballot.MirrorID]
	if row["user_id"] != voter.MirrorID {
		t.Fatalf("expected mirrored ballot to reference the mirrored voter, got %v", row)
	}
}

func TestReconcilerAdoptsExistingRemoteRows(t *testing.T) {
	store := memory.NewStore()
	remote := memory.NewRemote()
	seedElection(t, store)
	existing, err := remote.Insert(context.Background(), voterRow(entities.Voter{Email: "a@x.edu"}))
	if err != nil {
		t.Fatalf("seed remote: %v", err)
	}
	reconciler := Reconciler{Store: store, Sink: MirrorSink{Store: store, Remote: remote}}

	report, err := reconciler.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats := report.Stats(entities.EntityVoter); stats.Inserted != 0 || stats.Updated != 1 {
		t.Fatalf("expected the existing remote voter to be adopted, got %+v", stats)
	}
	voter, _ := store.FindVoter(context.Background(), ports.VoterFilter{VoterID: "v1"})
	if voter.MirrorID != existing {
		t.Fatalf("expected mirror id %s, got %s", existing, voter.MirrorID)
	}
}

func TestReconcilerCollectsFailures(t *testing.T) {
	store := memory.NewStore()
	remote := memory.NewRemote()
	seedElection(t, store)
	remote.FailWith(errors.New("connection refused"))
	reconciler := Reconciler{Store: store, Sink: MirrorSink{Store: store, Remote: remote}}

	report, err := reconciler.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Failures) != 3 {
		t.Fatalf("expected voter, candidate and student failures, got %+v", report.Failures)
	}
	// Ballots wait for their voter and candidate to be mirrored.
	if stats := report.Stats(entities.EntityBallot); stats.Skipped != 1 || stats.Failed != 0 {
		t.Fatalf("expected the ballot to be skipped, got %+v", stats)
	}
}

func TestReconcilerWithoutRemote(t *testing.T) {
	store := memory.NewStore()
	reconciler := Reconciler{Store: store, Sink: MirrorSink{Store: store}}

	if _, err := reconciler.Run(context.Background()); !errors.Is(err, domainerrors.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := reconciler.FullSync(context.Background(), entities.Identity{VoterID: "v1"}); !errors.Is(err, domainerrors.ErrAdminRequired) {
		t.Fatalf("expected admin required, got %v", err)
	}
}

func TestSinkDeleteToleratesMissingRows(t *testing.T) {
	store := memory.NewStore()
	remote := memory.NewRemote()
	sink := MirrorSink{Store: store, Remote: remote}

	if err := sink.Delete(context.Background(), entities.EntityCandidate, ""); err != nil {
		t.Fatalf("delete without remote id: %v", err)
	}
	if err := sink.Delete(context.Background(), entities.EntityCandidate, "gone"); err != nil {
		t.Fatalf("delete of a missing row: %v", err)
	}
	outcome, err := sink.Upsert(context.Background(), entities.EntityVoter, "missing")
	if err != nil || outcome != entities.SyncSkipped {
		t.Fatalf("expected skipped for missing local record, got %q %v", outcome, err)
	}
}

type capturingSubscriber struct {
	topic   string
	handler func(context.Context, ports.EventEnvelope) error
}

func (s *capturingSubscriber) Subscribe(
	_ context.Context,
	topic string,
	_ string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	s.topic = topic
	s.handler = handler
	return nil
}

func TestMirrorConsumerAppliesChanges(t *testing.T) {
	store := memory.NewStore()
	remote := memory.NewRemote()
	seedElection(t, store)
	subscriber := &capturingSubscriber{}
	consumer := MirrorConsumer{Subscriber: subscriber, Sink: MirrorSink{Store: store, Remote: remote}}

	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if subscriber.topic != ports.MirrorChangedTopic {
		t.Fatalf("unexpected topic %q", subscriber.topic)
	}

	data, _ := json.Marshal(ports.MirrorChange{Entity: entities.EntityCandidate, RecordID: "c1"})
	err := subscriber.handler(context.Background(), ports.EventEnvelope{
		EventID:   "e1",
		EventType: ports.MirrorChangedEventType,
		Data:      data,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(remote.Rows(ports.RemoteTableCandidates)) != 1 {
		t.Fatalf("expected the candidate to be mirrored")
	}

	if err := subscriber.handler(context.Background(), ports.EventEnvelope{EventID: "e2", EventType: "other"}); err != nil {
		t.Fatalf("unexpected event types are ignored, got %v", err)
	}
	err = subscriber.handler(context.Background(), ports.EventEnvelope{
		EventID:   "e3",
		EventType: ports.MirrorChangedEventType,
		Data:      json.RawMessage(`{"entity":"voter"}`),
	})
	if err == nil {
		t.Fatalf("expected a change without record id to be rejected")
	}
}

func TestReconcilerReplacesDeadRemoteIDs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	remote := memory.NewRemote()
	seedElection(t, store)
	sink := MirrorSink{Store: store, Remote: remote}
	reconciler := Reconciler{Store: store, Sink: sink, Clock: store}
	if _, err := reconciler.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	before, _ := store.FindCandidate(ctx, ports.CandidateFilter{CandidateID: "c1"})
	voterBefore, _ := store.FindVoter(ctx, ports.VoterFilter{VoterID: "v1"})
	if err := remote.Delete(ctx, ports.RemoteTableCandidates, before.MirrorID); err != nil {
		t.Fatalf("remove remote candidate: %v", err)
	}
	if err := remote.Delete(ctx, ports.RemoteTableVoters, voterBefore.MirrorID); err != nil {
		t.Fatalf("remove remote voter: %v", err)
	}

	if _, err := reconciler.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	after, _ := store.FindCandidate(ctx, ports.CandidateFilter{CandidateID: "c1"})
	if after.MirrorID == before.MirrorID {
		t.Fatalf("expected dead candidate id %q to be replaced", before.MirrorID)
	}
	if _, ok := remote.Rows(ports.RemoteTableCandidates)[after.MirrorID]; !ok {
		t.Fatalf("expected local id %q to name the live remote row", after.MirrorID)
	}
	voterAfter, _ := store.FindVoter(ctx, ports.VoterFilter{VoterID: "v1"})
	ballot, _ := store.FindBallot(ctx, ports.BallotFilter{BallotID: "b1"})
	row := remote.Rows(ports.RemoteTableBallots)[ballot.MirrorID]
	if row["user_id"] != voterAfter.MirrorID || row["candidate_id"] != after.MirrorID {
		t.Fatalf("expected ballot to follow the replaced ids, got %v", row)
	}

	if err := sink.Delete(ctx, entities.EntityCandidate, after.MirrorID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rows := remote.Rows(ports.RemoteTableCandidates); len(rows) != 0 {
		t.Fatalf("expected no remote candidate rows, got %d", len(rows))
	}
}

// vanishingStudentStore deletes the student just before its mirror id is
// recorded.
type vanishingStudentStore struct {
	*memory.Store
}

func (s vanishingStudentStore) SetMirrorID(ctx context.Context, entity entities.EntityKind, recordID string, mirrorID string) (bool, error) {
	if entity == entities.EntityStudent {
		if _, err := s.Store.DeleteStudents(ctx, ports.StudentFilter{StudentID: recordID}); err != nil {
			return false, err
		}
	}
	return s.Store.SetMirrorID(ctx, entity, recordID, mirrorID)
}

func TestSinkRemovesRowForRecordDeletedDuringUpsert(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	remote := memory.NewRemote()
	if err := store.InsertStudent(ctx, entities.Student{StudentID: "s1", Email: "a@x.edu"}); err != nil {
		t.Fatalf("insert student: %v", err)
	}
	sink := MirrorSink{Store: vanishingStudentStore{Store: store}, Remote: remote}

	outcome, err := sink.Upsert(ctx, entities.EntityStudent, "s1")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if outcome != entities.SyncSkipped {
		t.Fatalf("expected skipped outcome, got %q", outcome)
	}
	if rows := remote.Rows(ports.RemoteTableStudents); len(rows) != 0 {
		t.Fatalf("expected orphaned student row to be removed, got %d", len(rows))
	}
}

func TestInlineMirrorIgnoresCallerCancellation(t *testing.T) {
	store := memory.NewStore()
	remote := memory.NewRemote()
	seedElection(t, store)
	mirror := InlineMirror{Sink: MirrorSink{Store: store, Remote: remote}, Timeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mirror.PublishMirrorChanges(ctx, ports.MirrorChange{Entity: entities.EntityCandidate, RecordID: "c1"})

	if len(remote.Rows(ports.RemoteTableCandidates)) != 1 {
		t.Fatalf("expected the candidate to be mirrored after the request was cancelled")
	}
}

// stalledRemote blocks every lookup until its context ends.
type stalledRemote struct {
	*memory.Remote
}

func (r stalledRemote) FindID(ctx context.Context, table string, key map[string]any) (string, bool, error) {
	<-ctx.Done()
	return "", false, ctx.Err()
}

func TestInlineMirrorBoundsSlowRemote(t *testing.T) {
	store := memory.NewStore()
	seedElection(t, store)
	mirror := InlineMirror{
		Sink:    MirrorSink{Store: store, Remote: stalledRemote{Remote: memory.NewRemote()}},
		Timeout: 20 * time.Millisecond,
	}

	started := time.Now()
	mirror.PublishMirrorChanges(context.Background(), ports.MirrorChange{Entity: entities.EntityCandidate, RecordID: "c1"})
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("expected the timeout to cut off the stalled remote, took %s", elapsed)
	}
	candidate, err := store.FindCandidate(context.Background(), ports.CandidateFilter{CandidateID: "c1"})
	if err != nil {
		t.Fatalf("find candidate: %v", err)
	}
	if candidate.MirrorID != "" {
		t.Fatalf("expected no mirror id after a timed out upsert, got %q", candidate.MirrorID)
	}
}
