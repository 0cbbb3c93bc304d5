package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BarcodeAlias maps an arbitrary printed barcode to an item code with a
// quantity multiplier. warehouse_id scopes the alias; a null scope matches
// any warehouse.
type BarcodeAlias struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Barcode     string          `gorm:"column:barcode;type:text;not null;index"`
	ItemCode    string          `gorm:"column:item_code;type:text;not null"`
	WarehouseID *string         `gorm:"column:warehouse_id"`
	Multiplier  decimal.Decimal `gorm:"column:multiplier;type:numeric(12,3);not null;default:1"`
	CreatedBy   *string         `gorm:"column:created_by"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
