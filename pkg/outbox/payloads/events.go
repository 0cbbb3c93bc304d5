package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPickingStartedEvent signals an order entering the pick queue.
type OrderPickingStartedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	OrderNo   string    `json:"order_no"`
	TripDate  time.Time `json:"trip_date"`
	LineCount int       `json:"line_count"`
}

// ScanRecordedEvent carries one successful scan accumulation.
type ScanRecordedEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	OrderNo    string          `json:"order_no"`
	ItemCode   string          `json:"item_code"`
	RawCode    string          `json:"raw_code"`
	QtyBefore  decimal.Decimal `json:"qty_before"`
	QtyAfter   decimal.Decimal `json:"qty_after"`
	QtyAdded   decimal.Decimal `json:"qty_added"`
	Resolution string          `json:"resolution"`
	LockWaitMS int64           `json:"lock_wait_ms"`
}

// OrderShippedEvent surfaces the aggregated fulfillment facts when an order completes.
type OrderShippedEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	OrderNo      string    `json:"order_no"`
	TripDate     time.Time `json:"trip_date"`
	ShipmentID   uuid.UUID `json:"shipment_id"`
	LinesShipped int       `json:"lines_shipped"`
	LinesShort   int       `json:"lines_short"`
	PackageCount int       `json:"package_count"`
	Shortfall    bool      `json:"shortfall"`
}

// OrderAbandonedEvent is emitted when a picking order is returned to the planning pool.
type OrderAbandonedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	OrderNo string    `json:"order_no"`
	Reason  string    `json:"reason,omitempty"`
}

// BackorderCreatedEvent describes a shortfall line recorded at completion.
type BackorderCreatedEvent struct {
	BackorderID uuid.UUID       `json:"backorder_id"`
	OrderNo     string          `json:"order_no"`
	ItemCode    string          `json:"item_code"`
	WarehouseID string          `json:"warehouse_id"`
	QtyMissing  decimal.Decimal `json:"qty_missing"`
}

// BackorderFulfilledEvent is emitted when a backorder line is scanned to completion.
type BackorderFulfilledEvent struct {
	BackorderID uuid.UUID       `json:"backorder_id"`
	OrderNo     string          `json:"order_no"`
	ItemCode    string          `json:"item_code"`
	QtyScanned  decimal.Decimal `json:"qty_scanned"`
}

// TripClosedEvent reports a shipment closing, whether by the last package load or manually.
type TripClosedEvent struct {
	ShipmentID uuid.UUID `json:"shipment_id"`
	OrderNo    string    `json:"order_no"`
	TripDate   time.Time `json:"trip_date"`
	PkgsTotal  int       `json:"pkgs_total"`
	PkgsLoaded int       `json:"pkgs_loaded"`
	Manual     bool      `json:"manual"`
}
