package router

import (
	"fmt"

	"github.com/okanvural/pickflow-backend/internal/analytics/types"
	analyticswriter "github.com/okanvural/pickflow-backend/internal/analytics/writer"
)

// baseFulfillmentRow fills the columns shared by every lifecycle fact;
// handlers set the event-specific columns before inserting.
func baseFulfillmentRow(envelope types.Envelope, orderNo string, payload any) (types.FulfillmentEventRow, error) {
	payloadJSON, err := analyticswriter.EncodeJSON(payload)
	if err != nil {
		return types.FulfillmentEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	return types.FulfillmentEventRow{
		EventID:      envelope.EventID,
		EventType:    string(envelope.EventType),
		OccurredAt:   envelope.OccurredAt.UTC(),
		OrderNo:      orderNo,
		ActorStation: envelope.ActorStation(),
		Payload:      payloadJSON,
	}, nil
}
