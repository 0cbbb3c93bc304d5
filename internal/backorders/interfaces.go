package backorders

import (
	"context"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ShortfallUpsert carries one under-picked line as completion records it.
// QtyMissing overwrites any prior value for the same (order, item) so a
// retried completion lands on the same shortfall.
type ShortfallUpsert struct {
	OrderNo     string
	ItemCode    string
	LineID      *uuid.UUID
	WarehouseID string
	QtyMissing  decimal.Decimal
}

// ListQuery filters the backorder listing.
type ListQuery struct {
	Fulfilled *bool
	OrderNo   string
	Limit     int
	Cursor    *pagination.Cursor
}

// Repository defines persistence for backorder rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertShortfall(ctx context.Context, input ShortfallUpsert) (*models.Backorder, error)
	Find(ctx context.Context, backorderID uuid.UUID) (*models.Backorder, error)
	FindForUpdate(ctx context.Context, backorderID uuid.UUID) (*models.Backorder, error)
	List(ctx context.Context, params ListQuery) ([]models.Backorder, *pagination.Cursor, error)
	Update(ctx context.Context, backorderID uuid.UUID, updates map[string]any) error
}
