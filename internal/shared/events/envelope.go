package events

import (
	"encoding/json"
	"time"
)

// Envelope is the event shape carried on the in-process bus.
type Envelope struct {
	EventID        string          `json:"event_id"`
	EventType      string          `json:"event_type"`
	SourceService  string          `json:"source_service"`
	OccurredAt     time.Time       `json:"occurred_at"`
	EntityType     string          `json:"entity_type"`
	EntityID       string          `json:"entity_id"`
	PayloadVersion int             `json:"payload_version"`
	Data           json.RawMessage `json:"data"`
}
