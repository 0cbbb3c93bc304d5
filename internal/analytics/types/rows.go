package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// ScanEventRow mirrors the scan_events BigQuery schema.
type ScanEventRow struct {
	EventID      string             `bigquery:"event_id"`
	OccurredAt   time.Time          `bigquery:"occurred_at"`
	OrderID      *string            `bigquery:"order_id"`
	OrderNo      string             `bigquery:"order_no"`
	ItemCode     string             `bigquery:"item_code"`
	RawCode      *string            `bigquery:"raw_code"`
	Resolution   *string            `bigquery:"resolution"`
	QtyBefore    *float64           `bigquery:"qty_before"`
	QtyAfter     *float64           `bigquery:"qty_after"`
	QtyAdded     *float64           `bigquery:"qty_added"`
	LockWaitMS   *int64             `bigquery:"lock_wait_ms"`
	ActorStation *string            `bigquery:"actor_station"`
	ActorRole    *string            `bigquery:"actor_role"`
	Payload      cbigquery.NullJSON `bigquery:"payload"`
}

// FulfillmentEventRow mirrors the fulfillment_events BigQuery schema. One wide
// row per lifecycle event; columns that do not apply to the event stay null.
type FulfillmentEventRow struct {
	EventID      string             `bigquery:"event_id"`
	EventType    string             `bigquery:"event_type"`
	OccurredAt   time.Time          `bigquery:"occurred_at"`
	OrderID      *string            `bigquery:"order_id"`
	OrderNo      string             `bigquery:"order_no"`
	ShipmentID   *string            `bigquery:"shipment_id"`
	BackorderID  *string            `bigquery:"backorder_id"`
	ItemCode     *string            `bigquery:"item_code"`
	WarehouseID  *string            `bigquery:"warehouse_id"`
	TripDate     *time.Time         `bigquery:"trip_date"`
	LineCount    *int64             `bigquery:"line_count"`
	LinesShipped *int64             `bigquery:"lines_shipped"`
	LinesShort   *int64             `bigquery:"lines_short"`
	PackageCount *int64             `bigquery:"package_count"`
	PkgsLoaded   *int64             `bigquery:"pkgs_loaded"`
	Qty          *float64           `bigquery:"qty"`
	Shortfall    *bool              `bigquery:"shortfall"`
	Manual       *bool              `bigquery:"manual"`
	ActorStation *string            `bigquery:"actor_station"`
	Payload      cbigquery.NullJSON `bigquery:"payload"`
}
