package picking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okanvural/pickflow-backend/internal/audit"
	"github.com/okanvural/pickflow-backend/internal/backorders"
	"github.com/okanvural/pickflow-backend/internal/orders"
	"github.com/okanvural/pickflow-backend/internal/shipments"
	"github.com/okanvural/pickflow-backend/pkg/config"
	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/dblock"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/metrics"
	"github.com/okanvural/pickflow-backend/pkg/outbox"
	"github.com/okanvural/pickflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type service struct {
	tx          txRunner
	orders      orders.Repository
	shipments   shipments.Repository
	backorders  backorders.Repository
	resolver    codeResolver
	locks       dblock.Manager
	audits      auditSink
	outbox      outboxPublisher
	picking     *metrics.PickingMetrics
	logg        *logger.Logger
	lockTimeout time.Duration
	tolerance   decimal.Decimal
}

// NewService builds the picking service. The scanner configuration supplies
// the lock timeout and the over-scan tolerance.
func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	shipmentsRepo shipments.Repository,
	backordersRepo backorders.Repository,
	resolver codeResolver,
	locks dblock.Manager,
	audits auditSink,
	publisher outboxPublisher,
	picking *metrics.PickingMetrics,
	logg *logger.Logger,
	cfg config.ScannerConfig,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if shipmentsRepo == nil {
		return nil, fmt.Errorf("shipments repository required")
	}
	if backordersRepo == nil {
		return nil, fmt.Errorf("backorders repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("barcode resolver required")
	}
	if locks == nil {
		return nil, fmt.Errorf("lock manager required")
	}
	if audits == nil {
		return nil, fmt.Errorf("audit sink required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &service{
		tx:          tx,
		orders:      ordersRepo,
		shipments:   shipmentsRepo,
		backorders:  backordersRepo,
		resolver:    resolver,
		locks:       locks,
		audits:      audits,
		outbox:      publisher,
		picking:     picking,
		logg:        logg,
		lockTimeout: lockTimeout,
		tolerance:   cfg.OverScanTolerance,
	}, nil
}

// Scan accumulates one scan against the order's queue entry for the resolved
// item. The keyed lock serializes stations on the same line; the row lock
// under it backstops the accumulation. A refused scan mutates nothing and
// still leaves an audit record.
func (s *service) Scan(ctx context.Context, input ScanInput) (*ScanResult, error) {
	started := time.Now()

	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(input.RawCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scanned code required")
	}
	if input.ActorStation == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "station identity missing")
	}
	qty := input.Qty
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	if qty.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scan quantity must be positive")
	}

	order, err := s.orders.FindOrder(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusPicking {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not picking")
	}

	resolution, err := s.resolver.Resolve(ctx, order.ID, input.RawCode, order.Lines)
	if err != nil {
		s.recordRejectedScan(ctx, order, input.RawCode, input.ActorStation, err)
		s.picking.ObserveScan(scanOutcomeLabel(err), time.Since(started))
		return nil, err
	}
	line := lineByCode(order.Lines, resolution.ItemCode)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNoMatch, "barcode does not match any line on this order")
	}
	qtyAdded := qty.Mul(resolution.Multiplier)

	handle, err := s.locks.Acquire(ctx, dblock.ScanKey(order.ID, line.ItemCode), s.lockTimeout)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeLockTimeout {
			s.picking.IncLockTimeout("scan")
			s.audits.Record(ctx, audit.Entry{
				Operation:   enums.AuditOpLockAcquire,
				OrderID:     order.ID,
				OrderNo:     order.OrderNo,
				ItemCode:    &line.ItemCode,
				Outcome:     enums.AuditOutcomeFailed,
				LockWaitMS:  s.lockTimeout.Milliseconds(),
				Actor:       input.ActorStation,
				WarehouseID: &line.WarehouseID,
				Details:     strPtr(typed.Message()),
			})
			s.picking.ObserveScan(string(enums.ScanOutcomeLockTimeout), time.Since(started))
		}
		return nil, err
	}
	waitMS := handle.WaitTime().Milliseconds()
	s.picking.ObserveLockWait("scan", handle.WaitTime())
	s.audits.Record(ctx, audit.Entry{
		Operation:   enums.AuditOpLockAcquire,
		OrderID:     order.ID,
		OrderNo:     order.OrderNo,
		ItemCode:    &line.ItemCode,
		Outcome:     enums.AuditOutcomeSuccess,
		LockWaitMS:  waitMS,
		Actor:       input.ActorStation,
		WarehouseID: &line.WarehouseID,
	})
	defer func() {
		if releaseErr := handle.Release(ctx); releaseErr != nil {
			s.logg.Error(ctx, "scan lock release failed", releaseErr)
		}
		s.audits.Record(ctx, audit.Entry{
			Operation:   enums.AuditOpLockRelease,
			OrderID:     order.ID,
			OrderNo:     order.OrderNo,
			ItemCode:    &line.ItemCode,
			Outcome:     enums.AuditOutcomeSuccess,
			Actor:       input.ActorStation,
			WarehouseID: &line.WarehouseID,
		})
	}()

	var qtyBefore, qtyAfter decimal.Decimal
	var result *ScanResult
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		entry, err := repo.FindQueueEntryForUpdate(ctx, order.ID, line.ItemCode)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item is not on the pick queue")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load queue entry")
		}

		qtyBefore = entry.QtySent
		qtyAfter = qtyBefore
		candidate := qtyBefore.Add(qtyAdded)
		limit := line.QtyOrdered.Add(s.tolerance)
		if candidate.GreaterThan(limit) {
			return pkgerrors.New(pkgerrors.CodeOverScan,
				fmt.Sprintf("scan would reach %s of %s ordered", candidate, line.QtyOrdered)).
				WithDetails(map[string]any{
					"item_code":   line.ItemCode,
					"qty_ordered": line.QtyOrdered,
					"qty_sent":    qtyBefore,
					"attempted":   candidate,
					"tolerance":   s.tolerance,
				})
		}

		if err := repo.UpdateQueueEntryQty(ctx, order.ID, line.ItemCode, candidate, input.ActorStation); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item is not on the pick queue")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update queue entry")
		}
		qtyAfter = candidate

		event := outbox.DomainEvent{
			EventType:     enums.EventScanRecorded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Station: input.ActorStation, Role: string(input.ActorRole)},
			Data: payloads.ScanRecordedEvent{
				OrderID:    order.ID,
				OrderNo:    order.OrderNo,
				ItemCode:   line.ItemCode,
				RawCode:    input.RawCode,
				QtyBefore:  qtyBefore,
				QtyAfter:   candidate,
				QtyAdded:   qtyAdded,
				Resolution: string(resolution.Rule),
				LockWaitMS: waitMS,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit scan event")
		}

		remaining := line.QtyOrdered.Sub(candidate)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		result = &ScanResult{
			OrderID:      order.ID,
			OrderNo:      order.OrderNo,
			ItemCode:     line.ItemCode,
			RawCode:      input.RawCode,
			Rule:         resolution.Rule,
			Multiplier:   resolution.Multiplier,
			QtyAdded:     qtyAdded,
			QtyBefore:    qtyBefore,
			QtyAfter:     candidate,
			QtyOrdered:   line.QtyOrdered,
			QtyRemaining: remaining,
			LockWaitMS:   waitMS,
		}
		return nil
	})

	outcome := auditOutcome(txErr)
	scanDetails := scanAuditDetails(txErr)
	s.audits.Record(ctx, audit.Entry{
		Operation:   enums.AuditOpScan,
		OrderID:     order.ID,
		OrderNo:     order.OrderNo,
		ItemCode:    &line.ItemCode,
		QtyBefore:   &qtyBefore,
		QtyAfter:    &qtyAfter,
		Outcome:     outcome,
		LockWaitMS:  waitMS,
		Actor:       input.ActorStation,
		WarehouseID: &line.WarehouseID,
		Details:     scanDetails,
	})
	s.picking.ObserveScan(scanOutcomeLabel(txErr), time.Since(started))

	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

// recordRejectedScan writes the audit record for a scan the resolver refused.
// The item is unknown at this point, so the record carries the raw code.
func (s *service) recordRejectedScan(ctx context.Context, order *models.Order, rawCode, actor string, cause error) {
	details := fmt.Sprintf("code %q: %s", rawCode, cause.Error())
	s.audits.Record(ctx, audit.Entry{
		Operation: enums.AuditOpScan,
		OrderID:   order.ID,
		OrderNo:   order.OrderNo,
		Outcome:   enums.AuditOutcomeFailed,
		Actor:     actor,
		Details:   &details,
	})
}

func lineByCode(lines []models.OrderLine, itemCode string) *models.OrderLine {
	for i := range lines {
		if lines[i].ItemCode == itemCode {
			return &lines[i]
		}
	}
	return nil
}

// auditOutcome maps an operation error to the trail outcome. Domain
// rejections are Failed or OverScan; infrastructure faults are Error.
func auditOutcome(err error) enums.AuditOutcome {
	if err == nil {
		return enums.AuditOutcomeSuccess
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return enums.AuditOutcomeError
	}
	switch typed.Code() {
	case pkgerrors.CodeOverScan:
		return enums.AuditOutcomeOverScan
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict,
		pkgerrors.CodeStateConflict, pkgerrors.CodeNoMatch, pkgerrors.CodeWrongWarehouse,
		pkgerrors.CodeLockTimeout:
		return enums.AuditOutcomeFailed
	default:
		return enums.AuditOutcomeError
	}
}

func scanAuditDetails(err error) *string {
	if err == nil {
		return nil
	}
	details := err.Error()
	return &details
}

// scanOutcomeLabel names the metrics label for a scan attempt.
func scanOutcomeLabel(err error) string {
	if err == nil {
		return string(enums.ScanOutcomeSuccess)
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodeOverScan:
		return string(enums.ScanOutcomeOverScan)
	case pkgerrors.CodeNoMatch:
		return string(enums.ScanOutcomeNoMatch)
	case pkgerrors.CodeWrongWarehouse:
		return string(enums.ScanOutcomeWrongWarehouse)
	case pkgerrors.CodeLockTimeout:
		return string(enums.ScanOutcomeLockTimeout)
	default:
		return "error"
	}
}

func strPtr(value string) *string {
	return &value
}
