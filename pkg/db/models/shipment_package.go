package models

import (
	"time"

	"github.com/google/uuid"
)

// ShipmentPackage is one physical package on a trip, numbered 1..pkgs_total.
// Loading marks are idempotent; a loaded row is never deleted by a re-upsert
// of the header.
type ShipmentPackage struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID uuid.UUID  `gorm:"column:shipment_id;type:uuid;not null;uniqueIndex:idx_shipment_packages_shipment_pkg"`
	PkgNo      int        `gorm:"column:pkg_no;not null;uniqueIndex:idx_shipment_packages_shipment_pkg"`
	Loaded     bool       `gorm:"column:loaded;not null;default:false"`
	LoadedBy   *string    `gorm:"column:loaded_by"`
	LoadedAt   *time.Time `gorm:"column:loaded_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
