package models

import (
	"time"

	"github.com/google/uuid"
)

// ShipmentHeader is one trip for one order: the package totals and loading
// state written at completion. pkgs_original keeps the first-submitted total
// across re-upserts so a corrected package count stays auditable.
type ShipmentHeader struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TripDate     time.Time         `gorm:"column:trip_date;type:date;not null;uniqueIndex:idx_shipment_headers_trip_order"`
	OrderNo      string            `gorm:"column:order_no;type:text;not null;uniqueIndex:idx_shipment_headers_trip_order"`
	CustomerCode *string           `gorm:"column:customer_code"`
	CustomerName *string           `gorm:"column:customer_name"`
	Region       *string           `gorm:"column:region"`
	InvoiceRoot  *string           `gorm:"column:invoice_root;index"`
	PkgsTotal    int               `gorm:"column:pkgs_total;not null"`
	PkgsOriginal int               `gorm:"column:pkgs_original;not null"`
	PkgsLoaded   int               `gorm:"column:pkgs_loaded;not null;default:0"`
	Closed       bool              `gorm:"column:closed;not null;default:false"`
	EnRoute      bool              `gorm:"column:en_route;not null;default:false"`
	CreatedBy    *string           `gorm:"column:created_by"`
	Packages     []ShipmentPackage `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
	Lines        []ShipmentLine    `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
