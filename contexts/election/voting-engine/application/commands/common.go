package commands

import (
	"context"
	"errors"
	"time"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

func currentTime(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

func publishMirror(ctx context.Context, publisher ports.MirrorPublisher, changes ...ports.MirrorChange) {
	if publisher == nil || len(changes) == 0 {
		return
	}
	publisher.PublishMirrorChanges(ctx, changes...)
}

func upsertChange(entity entities.EntityKind, recordID string) ports.MirrorChange {
	return ports.MirrorChange{Entity: entity, RecordID: recordID}
}

func deleteChange(entity entities.EntityKind, recordID string, remoteID string) ports.MirrorChange {
	return ports.MirrorChange{Entity: entity, RecordID: recordID, RemoteID: remoteID, Deleted: true}
}

// translateNotFound swaps the store's not-found error for a domain error.
func translateNotFound(err error, domainErr error) error {
	if errors.Is(err, ports.ErrRecordNotFound) {
		return domainErr
	}
	return err
}

func boolPtr(value bool) *bool {
	return &value
}
