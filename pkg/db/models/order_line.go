package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is one ordered item. Lines are immutable once the order enters
// Picking; scanned progress lives on PickQueueEntry, not here.
type OrderLine struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_order_lines_order_item"`
	ItemCode      string          `gorm:"column:item_code;type:text;not null;uniqueIndex:idx_order_lines_order_item"`
	LineNo        int             `gorm:"column:line_no;not null;default:0"`
	Description   *string         `gorm:"column:description"`
	WarehouseID   string          `gorm:"column:warehouse_id;type:text;not null;default:'0'"`
	ShelfLocation *string         `gorm:"column:shelf_location"`
	Unit          *string         `gorm:"column:unit"`
	QtyOrdered    decimal.Decimal `gorm:"column:qty_ordered;type:numeric(12,3);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
