package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Backorder tracks the shortfall left when an order completes with a line
// under-picked. It is fulfilled out-of-band; closing it never reopens the
// order.
type Backorder struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNo     string          `gorm:"column:order_no;type:text;not null;uniqueIndex:idx_backorders_order_item"`
	ItemCode    string          `gorm:"column:item_code;type:text;not null;uniqueIndex:idx_backorders_order_item"`
	LineID      *uuid.UUID      `gorm:"column:line_id;type:uuid"`
	WarehouseID string          `gorm:"column:warehouse_id;type:text;not null;default:'0'"`
	QtyMissing  decimal.Decimal `gorm:"column:qty_missing;type:numeric(12,3);not null"`
	QtyScanned  decimal.Decimal `gorm:"column:qty_scanned;type:numeric(12,3);not null;default:0"`
	ScannedBy   *string         `gorm:"column:scanned_by"`
	Fulfilled   bool            `gorm:"column:fulfilled;not null;default:false"`
	FulfilledAt *time.Time      `gorm:"column:fulfilled_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
