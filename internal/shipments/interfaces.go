package shipments

import (
	"context"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// HeaderUpsert carries the fields completion writes into a trip header. On a
// repeat upsert pkgs_original and pkgs_loaded are preserved and the trip is
// reopened for loading.
type HeaderUpsert struct {
	TripDate     time.Time
	OrderNo      string
	CustomerCode *string
	CustomerName *string
	Region       *string
	InvoiceRoot  *string
	PkgsTotal    int
	CreatedBy    string
}

// LineUpsert carries one shipped line. QtySent overwrites any prior value for
// the same (shipment, item) so a retried completion lands on the same totals.
type LineUpsert struct {
	ShipmentID  uuid.UUID
	OrderNo     string
	TripDate    time.Time
	ItemCode    string
	WarehouseID string
	QtyInvoiced decimal.Decimal
	QtySent     decimal.Decimal
}

// Repository defines persistence for trip headers, shipped lines, and the
// per-package loading state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertHeader(ctx context.Context, input HeaderUpsert) (*models.ShipmentHeader, error)
	SyncPackages(ctx context.Context, shipmentID uuid.UUID, total int) error
	UpsertLine(ctx context.Context, input LineUpsert) error
	FindHeader(ctx context.Context, shipmentID uuid.UUID) (*models.ShipmentHeader, error)
	FindHeaderForUpdate(ctx context.Context, shipmentID uuid.UUID) (*models.ShipmentHeader, error)
	FindOpenByInvoiceRoot(ctx context.Context, root string) (*models.ShipmentHeader, error)
	ListHeadersByTripRange(ctx context.Context, from, to time.Time) ([]models.ShipmentHeader, error)
	FindLines(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentLine, error)
	FindPackages(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentPackage, error)
	FindPackageForUpdate(ctx context.Context, shipmentID uuid.UUID, pkgNo int) (*models.ShipmentPackage, error)
	MarkPackageLoaded(ctx context.Context, packageID uuid.UUID, actor string) (bool, error)
	UpdateHeader(ctx context.Context, shipmentID uuid.UUID, updates map[string]any) error
}
