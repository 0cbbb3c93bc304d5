package picking

import (
	"time"

	"github.com/okanvural/pickflow-backend/internal/barcode"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScanInput is one barcode scan at a pick station. Qty is the scanner
// increment before the alias multiplier; zero means one.
type ScanInput struct {
	OrderID      uuid.UUID
	RawCode      string
	Qty          decimal.Decimal
	ActorStation string
	ActorRole    enums.ActorRole
}

// ScanResult reports the accumulation the scan produced.
type ScanResult struct {
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNo      string          `json:"order_no"`
	ItemCode     string          `json:"item_code"`
	RawCode      string          `json:"raw_code"`
	Rule         barcode.Rule    `json:"rule"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	QtyAdded     decimal.Decimal `json:"qty_added"`
	QtyBefore    decimal.Decimal `json:"qty_before"`
	QtyAfter     decimal.Decimal `json:"qty_after"`
	QtyOrdered   decimal.Decimal `json:"qty_ordered"`
	QtyRemaining decimal.Decimal `json:"qty_remaining"`
	LockWaitMS   int64           `json:"lock_wait_ms"`
}

// CompleteInput closes out an order. AcceptShortfall acknowledges that
// under-picked lines become backorders.
type CompleteInput struct {
	OrderID         uuid.UUID
	PackageCount    int
	AcceptShortfall bool
	ActorStation    string
	ActorRole       enums.ActorRole
}

// CompletionLine is the per-line outcome of a completion.
type CompletionLine struct {
	ItemCode    string          `json:"item_code"`
	WarehouseID string          `json:"warehouse_id"`
	QtyOrdered  decimal.Decimal `json:"qty_ordered"`
	QtySent     decimal.Decimal `json:"qty_sent"`
	QtyMissing  decimal.Decimal `json:"qty_missing"`
	Backordered bool            `json:"backordered"`
}

// CompletionResult reports what shipped and what fell to backorder.
type CompletionResult struct {
	OrderID           uuid.UUID        `json:"order_id"`
	OrderNo           string           `json:"order_no"`
	ShipmentID        uuid.UUID        `json:"shipment_id"`
	TripDate          time.Time        `json:"trip_date"`
	PackageCount      int              `json:"package_count"`
	Lines             []CompletionLine `json:"lines"`
	LinesShipped      int              `json:"lines_shipped"`
	BackordersCreated int              `json:"backorders_created"`
	Shortfall         bool             `json:"shortfall"`
}

// AbandonInput returns a picking order to the planning pool.
type AbandonInput struct {
	OrderID      uuid.UUID
	Reason       string
	ActorStation string
	ActorRole    enums.ActorRole
}

// AbandonResult reports the abandoned order and the queue rows removed.
type AbandonResult struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrderNo        string    `json:"order_no"`
	EntriesRemoved int64     `json:"entries_removed"`
}
