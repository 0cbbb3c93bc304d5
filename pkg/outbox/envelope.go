package outbox

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the envelope version written for new events.
const SchemaVersion = 1

// ActorRef identifies the station that produced the event.
type ActorRef struct {
	Station string `json:"station"`
	Role    string `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
