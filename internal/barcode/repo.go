package barcode

import (
	"context"
	"strings"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"gorm.io/gorm"
)

const defaultAliasListLimit = 50

// ListAliasesQuery filters the alias admin listing.
type ListAliasesQuery struct {
	Barcode     string
	ItemCode    string
	WarehouseID *string
	Limit       int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an alias repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByBarcode returns every alias row for a barcode. Scoped rows come
// before unscoped ones so callers can walk them in precedence order.
func (r *repository) FindByBarcode(ctx context.Context, barcode string) ([]models.BarcodeAlias, error) {
	var aliases []models.BarcodeAlias
	err := r.db.WithContext(ctx).
		Where("barcode = ?", strings.ToUpper(barcode)).
		Order("warehouse_id IS NULL, warehouse_id ASC, created_at ASC").
		Find(&aliases).Error
	if err != nil {
		return nil, err
	}
	return aliases, nil
}

func (r *repository) Create(ctx context.Context, alias *models.BarcodeAlias) (*models.BarcodeAlias, error) {
	if err := r.db.WithContext(ctx).Create(alias).Error; err != nil {
		return nil, err
	}
	return alias, nil
}

func (r *repository) List(ctx context.Context, query ListAliasesQuery) ([]models.BarcodeAlias, error) {
	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = defaultAliasListLimit
	}

	q := r.db.WithContext(ctx).Model(&models.BarcodeAlias{})
	if query.Barcode != "" {
		q = q.Where("barcode = ?", strings.ToUpper(query.Barcode))
	}
	if query.ItemCode != "" {
		q = q.Where("item_code = ?", strings.ToUpper(query.ItemCode))
	}
	if query.WarehouseID != nil {
		q = q.Where("warehouse_id = ?", *query.WarehouseID)
	}

	var aliases []models.BarcodeAlias
	if err := q.Order("barcode ASC, warehouse_id ASC").Limit(limit).Find(&aliases).Error; err != nil {
		return nil, err
	}
	return aliases, nil
}
