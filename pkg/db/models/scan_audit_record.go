package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okanvural/pickflow-backend/pkg/enums"
)

// ScanAuditRecord is the append-only trail of lock attempts, scans, and
// completion outcomes. Rows are never updated; the retention job is the only
// writer besides the insert path.
type ScanAuditRecord struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Operation   enums.AuditOperation `gorm:"column:operation;type:audit_operation_enum;not null"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	OrderNo     string               `gorm:"column:order_no;type:text;not null"`
	ItemCode    *string              `gorm:"column:item_code"`
	QtyBefore   *decimal.Decimal     `gorm:"column:qty_before;type:numeric(12,3)"`
	QtyAfter    *decimal.Decimal     `gorm:"column:qty_after;type:numeric(12,3)"`
	Outcome     enums.AuditOutcome   `gorm:"column:outcome;type:audit_outcome_enum;not null"`
	LockWaitMS  int64                `gorm:"column:lock_wait_ms;not null;default:0"`
	Actor       string               `gorm:"column:actor;type:text;not null"`
	WarehouseID *string              `gorm:"column:warehouse_id"`
	Details     *string              `gorm:"column:details"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime;index"`
}
