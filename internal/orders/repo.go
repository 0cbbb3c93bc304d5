package orders

import (
	"context"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	"github.com/okanvural/pickflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListOrdersQuery carries the filters and page window for the order list.
type ListOrdersQuery struct {
	Status       *enums.OrderStatus
	TripDateFrom *time.Time
	TripDateTo   *time.Time
	Query        string
	Limit        int
	Cursor       *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// lockedForUpdate adds a row lock on dialects that support it. The sqlite
// test harness runs the same queries without locking.
func lockedForUpdate(query *gorm.DB) *gorm.DB {
	if query.Dialector.Name() == "postgres" {
		return query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := lockedForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("order_no = ?", orderNo).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("line_no ASC, item_code ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) ListOrders(ctx context.Context, params ListOrdersQuery) ([]OrderSummary, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.TripDateFrom != nil {
		query = query.Where("trip_date >= ?", *params.TripDateFrom)
	}
	if params.TripDateTo != nil {
		query = query.Where("trip_date <= ?", *params.TripDateTo)
	}
	if params.Query != "" {
		query = query.Where("order_no LIKE ?", params.Query+"%")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&orders).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(orders) > limit {
		orders = orders[:limit]
		last := orders[limit-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	if len(orders) == 0 {
		return []OrderSummary{}, nil, nil
	}

	counts, err := r.lineCounts(ctx, orders)
	if err != nil {
		return nil, nil, err
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for _, order := range orders {
		summaries = append(summaries, OrderSummary{
			ID:           order.ID,
			OrderNo:      order.OrderNo,
			TripDate:     order.TripDate,
			CustomerCode: order.CustomerCode,
			CustomerName: order.CustomerName,
			Region:       order.Region,
			Status:       order.Status,
			LineCount:    counts[order.ID],
			CreatedAt:    order.CreatedAt,
		})
	}
	return summaries, next, nil
}

func (r *repository) lineCounts(ctx context.Context, orders []models.Order) (map[uuid.UUID]int, error) {
	ids := make([]uuid.UUID, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}

	type lineCountRow struct {
		OrderID uuid.UUID
		Total   int
	}
	var rows []lineCountRow
	err := r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Select("order_id, COUNT(*) AS total").
		Where("order_id IN ?", ids).
		Group("order_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.OrderID] = row.Total
	}
	return counts, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

// SeedQueueEntries inserts a zero-quantity accumulator row per item code,
// skipping codes that already have one. Re-running it never resets progress.
func (r *repository) SeedQueueEntries(ctx context.Context, orderID uuid.UUID, itemCodes []string) error {
	if len(itemCodes) == 0 {
		return nil
	}
	entries := make([]models.PickQueueEntry, 0, len(itemCodes))
	for _, code := range itemCodes {
		entries = append(entries, models.PickQueueEntry{
			OrderID:  orderID,
			ItemCode: code,
			QtySent:  decimal.Zero,
		})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "item_code"}},
			DoNothing: true,
		}).
		Create(&entries).Error
}

func (r *repository) FindQueueEntries(ctx context.Context, orderID uuid.UUID) ([]models.PickQueueEntry, error) {
	var entries []models.PickQueueEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("item_code ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindQueueEntryForUpdate(ctx context.Context, orderID uuid.UUID, itemCode string) (*models.PickQueueEntry, error) {
	var entry models.PickQueueEntry
	err := lockedForUpdate(r.db.WithContext(ctx)).
		Where("order_id = ? AND item_code = ?", orderID, itemCode).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateQueueEntryQty writes the accumulated quantity and bumps the row
// version. The caller computes qty under the row lock.
func (r *repository) UpdateQueueEntryQty(ctx context.Context, orderID uuid.UUID, itemCode string, qty decimal.Decimal, actor string) error {
	result := r.db.WithContext(ctx).
		Model(&models.PickQueueEntry{}).
		Where("order_id = ? AND item_code = ?", orderID, itemCode).
		Updates(map[string]any{
			"qty_sent":   qty,
			"version":    gorm.Expr("version + 1"),
			"last_actor": actor,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteQueueEntries(ctx context.Context, orderID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.PickQueueEntry{})
	return result.RowsAffected, result.Error
}

// DeleteStaleQueueEntries removes accumulator rows whose order is no longer
// in picking. Shipped and abandoned orders clear their own rows; this sweeps
// anything left behind by a crashed completion.
func (r *repository) DeleteStaleQueueEntries(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("order_id IN (?)", r.db.Model(&models.Order{}).Select("id").Where("status <> ?", enums.OrderStatusPicking)).
		Delete(&models.PickQueueEntry{})
	return result.RowsAffected, result.Error
}

// DeleteOrphanQueueEntries removes accumulator rows whose order row is gone.
// SQLite deployments run without enforced foreign keys, so a deleted order
// can strand its entries.
func (r *repository) DeleteOrphanQueueEntries(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("order_id NOT IN (?)", r.db.Model(&models.Order{}).Select("id")).
		Delete(&models.PickQueueEntry{})
	return result.RowsAffected, result.Error
}
