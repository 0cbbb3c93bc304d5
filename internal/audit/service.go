package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service serves the floor activity feed.
type Service interface {
	ListActivity(ctx context.Context, input ListActivityInput) (*ActivityList, error)
}

type service struct {
	repo Repository
}

// ListActivityInput filters the activity feed. Empty filters list everything
// newest first.
type ListActivityInput struct {
	OrderNo   string
	Operation string
	Outcome   string
	Since     *time.Time
	Limit     int
	Cursor    string
}

// ActivityRecord is the API shape of one audit row.
type ActivityRecord struct {
	ID          uuid.UUID            `json:"id"`
	Operation   enums.AuditOperation `json:"operation"`
	OrderID     uuid.UUID            `json:"order_id"`
	OrderNo     string               `json:"order_no"`
	ItemCode    *string              `json:"item_code,omitempty"`
	QtyBefore   *decimal.Decimal     `json:"qty_before,omitempty"`
	QtyAfter    *decimal.Decimal     `json:"qty_after,omitempty"`
	Outcome     enums.AuditOutcome   `json:"outcome"`
	LockWaitMS  int64                `json:"lock_wait_ms"`
	Actor       string               `json:"actor"`
	WarehouseID *string              `json:"warehouse_id,omitempty"`
	Details     *string              `json:"details,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// ActivityList wraps the paginated records plus the next page cursor.
type ActivityList struct {
	Records    []ActivityRecord `json:"records"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// NewService builds the audit read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListActivity(ctx context.Context, input ListActivityInput) (*ActivityList, error) {
	query := ListQuery{
		OrderNo: input.OrderNo,
		Since:   input.Since,
		Limit:   input.Limit,
	}

	if input.Operation != "" {
		operation, err := enums.ParseAuditOperation(input.Operation)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid operation filter")
		}
		query.Operation = &operation
	}
	if input.Outcome != "" {
		outcome, err := enums.ParseAuditOutcome(input.Outcome)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid outcome filter")
		}
		query.Outcome = &outcome
	}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	records, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit records")
	}

	list := &ActivityList{Records: make([]ActivityRecord, 0, len(records))}
	for _, record := range records {
		list.Records = append(list.Records, activityRecord(record))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func activityRecord(record models.ScanAuditRecord) ActivityRecord {
	return ActivityRecord{
		ID:          record.ID,
		Operation:   record.Operation,
		OrderID:     record.OrderID,
		OrderNo:     record.OrderNo,
		ItemCode:    record.ItemCode,
		QtyBefore:   record.QtyBefore,
		QtyAfter:    record.QtyAfter,
		Outcome:     record.Outcome,
		LockWaitMS:  record.LockWaitMS,
		Actor:       record.Actor,
		WarehouseID: record.WarehouseID,
		Details:     record.Details,
		CreatedAt:   record.CreatedAt,
	}
}
