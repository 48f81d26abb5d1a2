package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	application "github.com/TADABA21/voting-app/contexts/election/voting-engine/application"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

const defaultMirrorConsumerGroup = "voting-mirror-sink-cg"

// MirrorConsumer drains mirror changes from the event bus into the sink.
// It runs on the subscriber's own context, detached from the request that
// produced the change.
type MirrorConsumer struct {
	Subscriber    ports.EventSubscriber
	Sink          MirrorSink
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c MirrorConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = defaultMirrorConsumerGroup
	}
	return c.Subscriber.Subscribe(ctx, ports.MirrorChangedTopic, group, c.handle)
}

func (c MirrorConsumer) handle(ctx context.Context, event ports.EventEnvelope) error {
	if event.EventType != ports.MirrorChangedEventType {
		application.ResolveLogger(c.Logger).Debug("ignoring unexpected event type",
			"event", "voting_mirror_event_ignored",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
		return nil
	}
	var change ports.MirrorChange
	if err := json.Unmarshal(event.Data, &change); err != nil {
		return fmt.Errorf("decode mirror change payload: %w", err)
	}
	if change.RecordID == "" && change.RemoteID == "" {
		return fmt.Errorf("mirror change %s missing record_id", event.EventID)
	}
	c.Sink.Propagate(ctx, change)
	return nil
}

// InlineMirror propagates changes on the caller's goroutine, in order. It
// backs setups that run without an event bus. The work is detached from the
// caller's cancellation and capped by Timeout, so a slow secondary store
// delays a request by at most Timeout and never fails it.
type InlineMirror struct {
	Sink    MirrorSink
	Timeout time.Duration
}

func (m InlineMirror) PublishMirrorChanges(ctx context.Context, changes ...ports.MirrorChange) {
	ctx = context.WithoutCancel(ctx)
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	for _, change := range changes {
		m.Sink.Propagate(ctx, change)
	}
}

var _ ports.MirrorPublisher = InlineMirror{}
