package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "github.com/TADABA21/voting-app/contexts/election/voting-engine/application"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"

	"github.com/google/uuid"
)

const defaultSourceService = "voting-app"

// MirrorPublisher puts mirror changes on the event bus. Publishing never
// fails the caller; a lost change is repaired by the next full sync.
type MirrorPublisher struct {
	Publisher ports.EventPublisher
	Source    string
	Clock     ports.Clock
	Logger    *slog.Logger
}

func (p MirrorPublisher) PublishMirrorChanges(ctx context.Context, changes ...ports.MirrorChange) {
	if p.Publisher == nil {
		return
	}
	logger := application.ResolveLogger(p.Logger)
	for _, change := range changes {
		event, err := p.envelope(change)
		if err != nil {
			logger.Warn("mirror change could not be encoded",
				"event", "voting_mirror_publish_encode_failed",
				"module", application.ModuleName,
				"layer", "adapter",
				"entity", change.Entity,
				"record_id", change.RecordID,
				"error", err.Error(),
			)
			continue
		}
		if err := p.Publisher.Publish(ctx, ports.MirrorChangedTopic, event); err != nil {
			logger.Warn("mirror change publish failed",
				"event", "voting_mirror_publish_failed",
				"module", application.ModuleName,
				"layer", "adapter",
				"entity", change.Entity,
				"record_id", change.RecordID,
				"event_id", event.EventID,
				"error", err.Error(),
			)
		}
	}
}

func (p MirrorPublisher) envelope(change ports.MirrorChange) (ports.EventEnvelope, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	source := p.Source
	if source == "" {
		source = defaultSourceService
	}
	occurredAt := time.Now().UTC()
	if p.Clock != nil {
		occurredAt = p.Clock.Now().UTC()
	}
	return ports.EventEnvelope{
		EventID:        uuid.NewString(),
		EventType:      ports.MirrorChangedEventType,
		SourceService:  source,
		OccurredAt:     occurredAt,
		EntityType:     string(change.Entity),
		EntityID:       change.RecordID,
		PayloadVersion: 1,
		Data:           data,
	}, nil
}

var _ ports.MirrorPublisher = MirrorPublisher{}
