package types

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/enums"
	"github.com/okanvural/pickflow-backend/pkg/outbox"
)

// Envelope represents the canonical analytics Pub/Sub envelope.
type Envelope struct {
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Actor         *outbox.ActorRef          `json:"actor,omitempty"`
	Payload       json.RawMessage           `json:"payload"`
}

// ActorStation returns the station code recorded on the envelope, nil when absent.
func (e Envelope) ActorStation() *string {
	if e.Actor == nil {
		return nil
	}
	station := strings.TrimSpace(e.Actor.Station)
	if station == "" {
		return nil
	}
	return &station
}

// ActorRole returns the station role recorded on the envelope, nil when absent.
func (e Envelope) ActorRole() *string {
	if e.Actor == nil {
		return nil
	}
	role := strings.TrimSpace(e.Actor.Role)
	if role == "" {
		return nil
	}
	return &role
}
