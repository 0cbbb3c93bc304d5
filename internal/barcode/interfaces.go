package barcode

import (
	"context"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the barcode alias xref.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByBarcode(ctx context.Context, barcode string) ([]models.BarcodeAlias, error)
	Create(ctx context.Context, alias *models.BarcodeAlias) (*models.BarcodeAlias, error)
	List(ctx context.Context, query ListAliasesQuery) ([]models.BarcodeAlias, error)
}

// AliasSource is the read side the resolver consumes.
type AliasSource interface {
	FindByBarcode(ctx context.Context, barcode string) ([]models.BarcodeAlias, error)
}
