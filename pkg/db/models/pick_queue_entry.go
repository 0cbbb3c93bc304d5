package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PickQueueEntry accumulates scanned quantity for one (order, item) key while
// the order is Picking. qty_sent only moves through the scan accumulator and
// is monotonically non-decreasing until the order completes or is abandoned.
type PickQueueEntry struct {
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;primaryKey"`
	ItemCode  string          `gorm:"column:item_code;type:text;primaryKey"`
	QtySent   decimal.Decimal `gorm:"column:qty_sent;type:numeric(12,3);not null;default:0"`
	Version   int64           `gorm:"column:version;not null;default:0"`
	LastActor *string         `gorm:"column:last_actor"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
