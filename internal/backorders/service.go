package backorders

import (
	"context"
	"fmt"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/dblock"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/metrics"
	"github.com/okanvural/pickflow-backend/pkg/outbox"
	"github.com/okanvural/pickflow-backend/pkg/outbox/payloads"
	"github.com/okanvural/pickflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the out-of-band backorder close-out operations.
type Service interface {
	List(ctx context.Context, input ListInput) (*BackorderList, error)
	Scan(ctx context.Context, input ScanInput) (*ScanResult, error)
	Fulfill(ctx context.Context, input FulfillInput) (*BackorderView, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	locks       dblock.Manager
	outbox      outboxPublisher
	picking     *metrics.PickingMetrics
	logg        *logger.Logger
	lockTimeout time.Duration
}

// ListInput filters the backorder listing. State is open, fulfilled, or all;
// empty means open.
type ListInput struct {
	State   string
	OrderNo string
	Limit   int
	Cursor  string
}

// ScanInput is one warehouse scan against an open backorder.
type ScanInput struct {
	BackorderID  uuid.UUID
	Qty          decimal.Decimal
	ActorStation string
	ActorRole    enums.ActorRole
}

// FulfillInput closes a backorder without scanning the remainder.
type FulfillInput struct {
	BackorderID  uuid.UUID
	ActorStation string
	ActorRole    enums.ActorRole
}

// BackorderView is one backorder as the API presents it.
type BackorderView struct {
	ID          uuid.UUID       `json:"id"`
	OrderNo     string          `json:"order_no"`
	ItemCode    string          `json:"item_code"`
	WarehouseID string          `json:"warehouse_id"`
	QtyMissing  decimal.Decimal `json:"qty_missing"`
	QtyScanned  decimal.Decimal `json:"qty_scanned"`
	ScannedBy   *string         `json:"scanned_by,omitempty"`
	Fulfilled   bool            `json:"fulfilled"`
	FulfilledAt *time.Time      `json:"fulfilled_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BackorderList is a page of backorders.
type BackorderList struct {
	Backorders []BackorderView `json:"backorders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ScanResult reports the accumulated quantity after one scan.
type ScanResult struct {
	Backorder BackorderView   `json:"backorder"`
	QtyAdded  decimal.Decimal `json:"qty_added"`
	Fulfilled bool            `json:"fulfilled"`
}

// NewService builds a backorders service with the required dependencies.
func NewService(repo Repository, tx txRunner, locks dblock.Manager, outboxPub outboxPublisher, picking *metrics.PickingMetrics, logg *logger.Logger, lockTimeout time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("backorders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if locks == nil {
		return nil, fmt.Errorf("lock manager required")
	}
	if outboxPub == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &service{
		repo:        repo,
		tx:          tx,
		locks:       locks,
		outbox:      outboxPub,
		picking:     picking,
		logg:        logg,
		lockTimeout: lockTimeout,
	}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*BackorderList, error) {
	query := ListQuery{
		OrderNo: input.OrderNo,
		Limit:   input.Limit,
	}
	switch input.State {
	case "", "open":
		open := false
		query.Fulfilled = &open
	case "fulfilled":
		fulfilled := true
		query.Fulfilled = &fulfilled
	case "all":
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "state must be open, fulfilled, or all")
	}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list backorders")
	}

	list := &BackorderList{Backorders: make([]BackorderView, 0, len(rows))}
	for _, row := range rows {
		list.Backorders = append(list.Backorders, backorderView(&row))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// Scan accumulates one scan against an open backorder. Scans for the same
// backorder serialize on a keyed lock; reaching the missing quantity closes
// the row and emits the fulfilled event in the same transaction.
func (s *service) Scan(ctx context.Context, input ScanInput) (*ScanResult, error) {
	if input.BackorderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backorder id required")
	}
	if !input.Qty.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scan quantity must be positive")
	}
	if input.ActorStation == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "station identity missing")
	}

	handle, err := s.locks.Acquire(ctx, dblock.BackorderKey(input.BackorderID), s.lockTimeout)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeLockTimeout {
			s.picking.IncLockTimeout("backorder")
		}
		return nil, err
	}
	defer func() {
		if releaseErr := handle.Release(ctx); releaseErr != nil {
			s.logg.Error(ctx, "backorder lock release failed", releaseErr)
		}
	}()
	s.picking.ObserveLockWait("backorder", handle.WaitTime())

	var result *ScanResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindForUpdate(ctx, input.BackorderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "backorder not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load backorder")
		}
		if row.Fulfilled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "backorder already fulfilled")
		}

		candidate := row.QtyScanned.Add(input.Qty)
		if candidate.GreaterThan(row.QtyMissing) {
			return pkgerrors.New(pkgerrors.CodeOverScan,
				fmt.Sprintf("scan of %s exceeds missing quantity %s", input.Qty, row.QtyMissing)).
				WithDetails(map[string]any{
					"qty_missing": row.QtyMissing,
					"qty_scanned": row.QtyScanned,
					"attempted":   candidate,
				})
		}

		fulfilled := candidate.Equal(row.QtyMissing)
		updates := map[string]any{
			"qty_scanned": candidate,
			"scanned_by":  input.ActorStation,
		}
		if fulfilled {
			updates["fulfilled"] = true
			updates["fulfilled_at"] = time.Now()
		}
		if err := repo.Update(ctx, row.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update backorder")
		}

		if fulfilled {
			event := outbox.DomainEvent{
				EventType:     enums.EventBackorderFulfilled,
				AggregateType: enums.AggregateBackorder,
				AggregateID:   row.ID,
				Actor:         &outbox.ActorRef{Station: input.ActorStation, Role: string(input.ActorRole)},
				Data: payloads.BackorderFulfilledEvent{
					BackorderID: row.ID,
					OrderNo:     row.OrderNo,
					ItemCode:    row.ItemCode,
					QtyScanned:  candidate,
				},
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit backorder fulfilled event")
			}
		}

		view := backorderView(row)
		view.QtyScanned = candidate
		view.ScannedBy = &input.ActorStation
		view.Fulfilled = fulfilled
		result = &ScanResult{Backorder: view, QtyAdded: input.Qty, Fulfilled: fulfilled}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Fulfill closes a backorder by supervisor decision, leaving qty_scanned
// where the floor left it.
func (s *service) Fulfill(ctx context.Context, input FulfillInput) (*BackorderView, error) {
	if input.BackorderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backorder id required")
	}
	if input.ActorStation == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "station identity missing")
	}

	var view *BackorderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindForUpdate(ctx, input.BackorderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "backorder not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load backorder")
		}
		if row.Fulfilled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "backorder already fulfilled")
		}

		now := time.Now()
		err = repo.Update(ctx, row.ID, map[string]any{
			"fulfilled":    true,
			"fulfilled_at": now,
			"scanned_by":   input.ActorStation,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update backorder")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventBackorderFulfilled,
			AggregateType: enums.AggregateBackorder,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{Station: input.ActorStation, Role: string(input.ActorRole)},
			Data: payloads.BackorderFulfilledEvent{
				BackorderID: row.ID,
				OrderNo:     row.OrderNo,
				ItemCode:    row.ItemCode,
				QtyScanned:  row.QtyScanned,
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit backorder fulfilled event")
		}

		updated := backorderView(row)
		updated.Fulfilled = true
		updated.FulfilledAt = &now
		updated.ScannedBy = &input.ActorStation
		view = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func backorderView(row *models.Backorder) BackorderView {
	return BackorderView{
		ID:          row.ID,
		OrderNo:     row.OrderNo,
		ItemCode:    row.ItemCode,
		WarehouseID: row.WarehouseID,
		QtyMissing:  row.QtyMissing,
		QtyScanned:  row.QtyScanned,
		ScannedBy:   row.ScannedBy,
		Fulfilled:   row.Fulfilled,
		FulfilledAt: row.FulfilledAt,
		CreatedAt:   row.CreatedAt,
	}
}
