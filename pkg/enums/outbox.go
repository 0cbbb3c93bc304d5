package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type_enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregateBackorder OutboxAggregateType = "backorder"
	AggregateShipment  OutboxAggregateType = "shipment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateBackorder,
	AggregateShipment,
}

// IsValid reports whether the value matches the canonical aggregate_type_enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type_enum in Postgres.
type OutboxEventType string

const (
	EventOrderPickingStarted OutboxEventType = "order_picking_started"
	EventOrderShipped        OutboxEventType = "order_shipped"
	EventOrderAbandoned      OutboxEventType = "order_abandoned"
	EventScanRecorded        OutboxEventType = "scan_recorded"
	EventBackorderCreated    OutboxEventType = "backorder_created"
	EventBackorderFulfilled  OutboxEventType = "backorder_fulfilled"
	EventTripClosed          OutboxEventType = "trip_closed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPickingStarted,
	EventOrderShipped,
	EventOrderAbandoned,
	EventScanRecorded,
	EventBackorderCreated,
	EventBackorderFulfilled,
	EventTripClosed,
}

// IsValid reports whether the value matches the canonical event_type_enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
