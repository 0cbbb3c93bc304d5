package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentLine is the authoritative record of what actually shipped for an
// order+item on a trip. Written once by completion; never recomputed from the
// queue afterwards.
type ShipmentLine struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID  uuid.UUID       `gorm:"column:shipment_id;type:uuid;not null;uniqueIndex:idx_shipment_lines_shipment_item"`
	ItemCode    string          `gorm:"column:item_code;type:text;not null;uniqueIndex:idx_shipment_lines_shipment_item"`
	OrderNo     string          `gorm:"column:order_no;type:text;not null;index"`
	TripDate    time.Time       `gorm:"column:trip_date;type:date;not null"`
	WarehouseID string          `gorm:"column:warehouse_id;type:text;not null;default:'0'"`
	QtyInvoiced decimal.Decimal `gorm:"column:qty_invoiced;type:numeric(12,3);not null;default:0"`
	QtySent     decimal.Decimal `gorm:"column:qty_sent;type:numeric(12,3);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
