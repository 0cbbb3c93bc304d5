package backorders

import (
	"context"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a backorders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func lockedForUpdate(query *gorm.DB) *gorm.DB {
	if query.Dialector.Name() == "postgres" {
		return query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

// UpsertShortfall inserts or rewrites the shortfall for (order_no, item_code).
// Scan progress on an existing row survives; only the missing quantity and
// line reference are replaced.
func (r *repository) UpsertShortfall(ctx context.Context, input ShortfallUpsert) (*models.Backorder, error) {
	row := models.Backorder{
		ID:          uuid.New(),
		OrderNo:     input.OrderNo,
		ItemCode:    input.ItemCode,
		LineID:      input.LineID,
		WarehouseID: input.WarehouseID,
		QtyMissing:  input.QtyMissing,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_no"}, {Name: "item_code"}},
			DoUpdates: clause.Assignments(map[string]any{
				"qty_missing":  input.QtyMissing,
				"line_id":      input.LineID,
				"warehouse_id": input.WarehouseID,
				"updated_at":   time.Now(),
			}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}

	var backorder models.Backorder
	err = r.db.WithContext(ctx).
		Where("order_no = ? AND item_code = ?", input.OrderNo, input.ItemCode).
		First(&backorder).Error
	if err != nil {
		return nil, err
	}
	return &backorder, nil
}

func (r *repository) Find(ctx context.Context, backorderID uuid.UUID) (*models.Backorder, error) {
	var backorder models.Backorder
	err := r.db.WithContext(ctx).
		Where("id = ?", backorderID).
		First(&backorder).Error
	if err != nil {
		return nil, err
	}
	return &backorder, nil
}

func (r *repository) FindForUpdate(ctx context.Context, backorderID uuid.UUID) (*models.Backorder, error) {
	var backorder models.Backorder
	err := lockedForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", backorderID).
		First(&backorder).Error
	if err != nil {
		return nil, err
	}
	return &backorder, nil
}

func (r *repository) List(ctx context.Context, params ListQuery) ([]models.Backorder, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Backorder{})
	if params.Fulfilled != nil {
		query = query.Where("fulfilled = ?", *params.Fulfilled)
	}
	if params.OrderNo != "" {
		query = query.Where("order_no = ?", params.OrderNo)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Backorder
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[limit-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

func (r *repository) Update(ctx context.Context, backorderID uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Backorder{}).
		Where("id = ?", backorderID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
