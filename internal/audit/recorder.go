package audit

import (
	"context"
	"fmt"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is one audit fact as the scan and completion paths produce it.
type Entry struct {
	Operation   enums.AuditOperation
	OrderID     uuid.UUID
	OrderNo     string
	ItemCode    *string
	QtyBefore   *decimal.Decimal
	QtyAfter    *decimal.Decimal
	Outcome     enums.AuditOutcome
	LockWaitMS  int64
	Actor       string
	WarehouseID *string
	Details     *string
}

// Recorder appends audit records on its own connection, never inside the
// caller's transaction. A failed write is logged and swallowed; the business
// operation must not fail because its trail did.
type Recorder struct {
	repo Repository
	logg *logger.Logger
}

// NewRecorder builds an audit recorder.
func NewRecorder(repo Repository, logg *logger.Logger) (*Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Recorder{repo: repo, logg: logg}, nil
}

// Record writes one audit row. Callers fire it on every branch of a scan or
// completion, including rolled-back ones.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	record := &models.ScanAuditRecord{
		Operation:   entry.Operation,
		OrderID:     entry.OrderID,
		OrderNo:     entry.OrderNo,
		ItemCode:    entry.ItemCode,
		QtyBefore:   entry.QtyBefore,
		QtyAfter:    entry.QtyAfter,
		Outcome:     entry.Outcome,
		LockWaitMS:  entry.LockWaitMS,
		Actor:       entry.Actor,
		WarehouseID: entry.WarehouseID,
		Details:     entry.Details,
	}
	if err := r.repo.Insert(ctx, record); err != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"operation": entry.Operation,
			"order_no":  entry.OrderNo,
			"outcome":   entry.Outcome,
		})
		r.logg.Error(logCtx, "audit record write failed", err)
	}
}
