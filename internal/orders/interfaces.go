package orders

import (
	"context"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository defines persistence operations for order headers, order lines,
// and the pick queue rows that carry scan progress.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
	FindOrderLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error)
	ListOrders(ctx context.Context, params ListOrdersQuery) ([]OrderSummary, *pagination.Cursor, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	SeedQueueEntries(ctx context.Context, orderID uuid.UUID, itemCodes []string) error
	FindQueueEntries(ctx context.Context, orderID uuid.UUID) ([]models.PickQueueEntry, error)
	FindQueueEntryForUpdate(ctx context.Context, orderID uuid.UUID, itemCode string) (*models.PickQueueEntry, error)
	UpdateQueueEntryQty(ctx context.Context, orderID uuid.UUID, itemCode string, qty decimal.Decimal, actor string) error
	DeleteQueueEntries(ctx context.Context, orderID uuid.UUID) (int64, error)
	DeleteStaleQueueEntries(ctx context.Context) (int64, error)
	DeleteOrphanQueueEntries(ctx context.Context) (int64, error)
}
