package orders

import (
	"time"

	"github.com/okanvural/pickflow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSummary exposes the header fields returned in the order list.
type OrderSummary struct {
	ID           uuid.UUID         `json:"id"`
	OrderNo      string            `json:"order_no"`
	TripDate     time.Time         `json:"trip_date"`
	CustomerCode *string           `json:"customer_code,omitempty"`
	CustomerName *string           `json:"customer_name,omitempty"`
	Region       *string           `json:"region,omitempty"`
	Status       enums.OrderStatus `json:"status"`
	LineCount    int               `json:"line_count"`
	CreatedAt    time.Time         `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// LineProgress is one order line merged with its scanned quantity. QtySent is
// zero when the queue row does not exist yet.
type LineProgress struct {
	ItemCode      string          `json:"item_code"`
	LineNo        int             `json:"line_no"`
	Description   *string         `json:"description,omitempty"`
	WarehouseID   string          `json:"warehouse_id"`
	ShelfLocation *string         `json:"shelf_location,omitempty"`
	Unit          *string         `json:"unit,omitempty"`
	QtyOrdered    decimal.Decimal `json:"qty_ordered"`
	QtySent       decimal.Decimal `json:"qty_sent"`
	Version       int64           `json:"version"`
	LastActor     *string         `json:"last_actor,omitempty"`
}

// OrderDetail is the full view of one order: header, lines, and progress.
type OrderDetail struct {
	ID           uuid.UUID         `json:"id"`
	OrderNo      string            `json:"order_no"`
	TripDate     time.Time         `json:"trip_date"`
	CustomerCode *string           `json:"customer_code,omitempty"`
	CustomerName *string           `json:"customer_name,omitempty"`
	Region       *string           `json:"region,omitempty"`
	Address      *string           `json:"address,omitempty"`
	InvoiceNo    *string           `json:"invoice_no,omitempty"`
	Status       enums.OrderStatus `json:"status"`
	PackageCount *int              `json:"package_count,omitempty"`
	CompletedBy  *string           `json:"completed_by,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Lines        []LineProgress    `json:"lines"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// QueueSnapshot is the raw pick queue state for one order.
type QueueSnapshot struct {
	OrderID uuid.UUID    `json:"order_id"`
	Entries []QueueEntry `json:"entries"`
}

// QueueEntry is one accumulator row as the station UI consumes it.
type QueueEntry struct {
	ItemCode  string          `json:"item_code"`
	QtySent   decimal.Decimal `json:"qty_sent"`
	Version   int64           `json:"version"`
	LastActor *string         `json:"last_actor,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}
