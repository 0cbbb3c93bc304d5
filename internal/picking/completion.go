package picking

import (
	"context"
	"fmt"
	"time"

	"github.com/okanvural/pickflow-backend/internal/audit"
	"github.com/okanvural/pickflow-backend/internal/backorders"
	"github.com/okanvural/pickflow-backend/internal/shipments"
	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/dblock"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/outbox"
	"github.com/okanvural/pickflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const maxPackageCount = 9999

// Complete turns the order's queue state into a shipment, all-or-nothing
// under the completion lock. Short lines require AcceptShortfall and become
// backorders; the queue is cleared and the order flips to shipped.
func (s *service) Complete(ctx context.Context, input CompleteInput) (*CompletionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.PackageCount < 1 || input.PackageCount > maxPackageCount {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("package count must be between 1 and %d", maxPackageCount))
	}
	if input.ActorStation == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "station identity missing")
	}

	order, err := s.orders.FindOrder(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	release, waitMS, err := s.acquireCompletionLock(ctx, order, input.ActorStation)
	if err != nil {
		return nil, err
	}
	defer release()

	var result *CompletionResult
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.completeInTx(ctx, tx, order.ID, input)
		return err
	})

	s.recordCompletion(ctx, order, input, result, waitMS, txErr)
	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

// completeInTx runs the completion sequence inside one transaction. Every
// write is an upsert or guarded by the status check, so a retry after a
// crash between commit and audit cannot double-count.
func (s *service) completeInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, input CompleteInput) (*CompletionResult, error) {
	ordersRepo := s.orders.WithTx(tx)

	order, err := ordersRepo.FindOrderForUpdate(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order for completion")
	}
	if order.Status == enums.OrderStatusShipped {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already shipped")
	}
	if order.Status != enums.OrderStatusPicking {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not picking")
	}

	lines, err := ordersRepo.FindOrderLines(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order lines")
	}
	entries, err := ordersRepo.FindQueueEntries(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pick queue")
	}
	scanned := make(map[string]decimal.Decimal, len(entries))
	for _, entry := range entries {
		scanned[entry.ItemCode] = entry.QtySent
	}

	plan := make([]CompletionLine, 0, len(lines))
	shortfall := false
	for _, line := range lines {
		sent := scanned[line.ItemCode]
		missing := line.QtyOrdered.Sub(sent)
		if missing.IsNegative() {
			missing = decimal.Zero
		}
		if missing.IsPositive() {
			shortfall = true
		}
		plan = append(plan, CompletionLine{
			ItemCode:    line.ItemCode,
			WarehouseID: line.WarehouseID,
			QtyOrdered:  line.QtyOrdered,
			QtySent:     sent,
			QtyMissing:  missing,
		})
	}
	if shortfall && !input.AcceptShortfall {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "completion requires shortfall confirmation").
			WithDetails(map[string]any{"missing": missingLines(plan)})
	}

	shipmentsRepo := s.shipments.WithTx(tx)
	header, err := shipmentsRepo.UpsertHeader(ctx, shipments.HeaderUpsert{
		TripDate:     order.TripDate,
		OrderNo:      order.OrderNo,
		CustomerCode: order.CustomerCode,
		CustomerName: order.CustomerName,
		Region:       order.Region,
		InvoiceRoot:  invoiceRootOf(order),
		PkgsTotal:    input.PackageCount,
		CreatedBy:    input.ActorStation,
	})
	if err != nil {
		return nil, wrapCompletionStep(err, "upsert shipment header")
	}
	if err := shipmentsRepo.SyncPackages(ctx, header.ID, input.PackageCount); err != nil {
		return nil, wrapCompletionStep(err, "sync shipment packages")
	}

	backordersRepo := s.backorders.WithTx(tx)
	actor := &outbox.ActorRef{Station: input.ActorStation, Role: string(input.ActorRole)}
	linesShipped := 0
	backordersCreated := 0
	var persistErr error
	for i := range plan {
		line := &plan[i]
		if line.QtySent.IsPositive() {
			err := shipmentsRepo.UpsertLine(ctx, shipments.LineUpsert{
				ShipmentID:  header.ID,
				OrderNo:     order.OrderNo,
				TripDate:    order.TripDate,
				ItemCode:    line.ItemCode,
				WarehouseID: line.WarehouseID,
				QtyInvoiced: line.QtyOrdered,
				QtySent:     line.QtySent,
			})
			if err != nil {
				persistErr = multierr.Append(persistErr, fmt.Errorf("ship line %s: %w", line.ItemCode, err))
				continue
			}
			linesShipped++
		}
		if line.QtyMissing.IsPositive() {
			lineID := orderLineID(lines, line.ItemCode)
			backorder, err := backordersRepo.UpsertShortfall(ctx, backorders.ShortfallUpsert{
				OrderNo:     order.OrderNo,
				ItemCode:    line.ItemCode,
				LineID:      lineID,
				WarehouseID: line.WarehouseID,
				QtyMissing:  line.QtyMissing,
			})
			if err != nil {
				persistErr = multierr.Append(persistErr, fmt.Errorf("backorder %s: %w", line.ItemCode, err))
				continue
			}
			line.Backordered = true
			backordersCreated++

			event := outbox.DomainEvent{
				EventType:     enums.EventBackorderCreated,
				AggregateType: enums.AggregateBackorder,
				AggregateID:   backorder.ID,
				Actor:         actor,
				Data: payloads.BackorderCreatedEvent{
					BackorderID: backorder.ID,
					OrderNo:     order.OrderNo,
					ItemCode:    line.ItemCode,
					WarehouseID: line.WarehouseID,
					QtyMissing:  line.QtyMissing,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				persistErr = multierr.Append(persistErr, fmt.Errorf("backorder event %s: %w", line.ItemCode, err))
			}
		}
	}
	if persistErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePartialFailure, persistErr, "write shipment lines")
	}

	now := time.Now()
	err = ordersRepo.UpdateOrder(ctx, order.ID, map[string]any{
		"status":        enums.OrderStatusShipped,
		"package_count": input.PackageCount,
		"completed_by":  input.ActorStation,
		"completed_at":  now,
	})
	if err != nil {
		return nil, wrapCompletionStep(err, "update order status")
	}
	if _, err := ordersRepo.DeleteQueueEntries(ctx, order.ID); err != nil {
		return nil, wrapCompletionStep(err, "clear pick queue")
	}

	shipped := outbox.DomainEvent{
		EventType:     enums.EventOrderShipped,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderShippedEvent{
			OrderID:      order.ID,
			OrderNo:      order.OrderNo,
			TripDate:     order.TripDate,
			ShipmentID:   header.ID,
			LinesShipped: linesShipped,
			LinesShort:   backordersCreated,
			PackageCount: input.PackageCount,
			Shortfall:    shortfall,
		},
	}
	if err := s.outbox.EmitIfNotExists(ctx, tx, shipped); err != nil {
		return nil, wrapCompletionStep(err, "emit shipped event")
	}

	return &CompletionResult{
		OrderID:           order.ID,
		OrderNo:           order.OrderNo,
		ShipmentID:        header.ID,
		TripDate:          order.TripDate,
		PackageCount:      input.PackageCount,
		Lines:             plan,
		LinesShipped:      linesShipped,
		BackordersCreated: backordersCreated,
		Shortfall:         shortfall,
	}, nil
}

// Abandon returns a picking order to the planning pool under the completion
// lock. Queue rows are deleted; nothing ships.
func (s *service) Abandon(ctx context.Context, input AbandonInput) (*AbandonResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorStation == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "station identity missing")
	}

	order, err := s.orders.FindOrder(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	release, waitMS, err := s.acquireCompletionLock(ctx, order, input.ActorStation)
	if err != nil {
		return nil, err
	}
	defer release()

	var result *AbandonResult
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		fresh, err := ordersRepo.FindOrderForUpdate(ctx, order.ID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order for abandon")
		}
		if fresh.Status == enums.OrderStatusShipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already shipped")
		}
		if fresh.Status != enums.OrderStatusPicking {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not picking")
		}

		removed, err := ordersRepo.DeleteQueueEntries(ctx, fresh.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear pick queue")
		}
		if err := ordersRepo.UpdateOrder(ctx, fresh.ID, map[string]any{"status": enums.OrderStatusDraft}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderAbandoned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   fresh.ID,
			Actor:         &outbox.ActorRef{Station: input.ActorStation, Role: string(input.ActorRole)},
			Data: payloads.OrderAbandonedEvent{
				OrderID: fresh.ID,
				OrderNo: fresh.OrderNo,
				Reason:  input.Reason,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit abandoned event")
		}

		result = &AbandonResult{OrderID: fresh.ID, OrderNo: fresh.OrderNo, EntriesRemoved: removed}
		return nil
	})

	details := abandonDetails(input.Reason, result, txErr)
	s.audits.Record(ctx, audit.Entry{
		Operation:  enums.AuditOpAbandon,
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		Outcome:    auditOutcome(txErr),
		LockWaitMS: waitMS,
		Actor:      input.ActorStation,
		Details:    details,
	})

	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

// acquireCompletionLock takes the order-level lock shared by Complete and
// Abandon and writes the acquire/release trail records. The returned release
// function is safe to defer.
func (s *service) acquireCompletionLock(ctx context.Context, order *models.Order, actor string) (func(), int64, error) {
	handle, err := s.locks.Acquire(ctx, dblock.CompletionKey(order.ID), s.lockTimeout)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeLockTimeout {
			s.picking.IncLockTimeout("completion")
			s.audits.Record(ctx, audit.Entry{
				Operation:  enums.AuditOpLockAcquire,
				OrderID:    order.ID,
				OrderNo:    order.OrderNo,
				Outcome:    enums.AuditOutcomeFailed,
				LockWaitMS: s.lockTimeout.Milliseconds(),
				Actor:      actor,
				Details:    strPtr(typed.Message()),
			})
		}
		return nil, 0, err
	}
	waitMS := handle.WaitTime().Milliseconds()
	s.picking.ObserveLockWait("completion", handle.WaitTime())
	s.audits.Record(ctx, audit.Entry{
		Operation:  enums.AuditOpLockAcquire,
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		Outcome:    enums.AuditOutcomeSuccess,
		LockWaitMS: waitMS,
		Actor:      actor,
	})

	release := func() {
		if releaseErr := handle.Release(ctx); releaseErr != nil {
			s.logg.Error(ctx, "completion lock release failed", releaseErr)
		}
		s.audits.Record(ctx, audit.Entry{
			Operation: enums.AuditOpLockRelease,
			OrderID:   order.ID,
			OrderNo:   order.OrderNo,
			Outcome:   enums.AuditOutcomeSuccess,
			Actor:     actor,
		})
	}
	return release, waitMS, nil
}

// recordCompletion writes the completion trail record and counters after the
// transaction settles.
func (s *service) recordCompletion(ctx context.Context, order *models.Order, input CompleteInput, result *CompletionResult, waitMS int64, txErr error) {
	var details *string
	if txErr != nil {
		details = strPtr(txErr.Error())
	} else if result != nil {
		details = strPtr(fmt.Sprintf("shipped %d lines, %d backorders, %d packages",
			result.LinesShipped, result.BackordersCreated, result.PackageCount))
	}
	s.audits.Record(ctx, audit.Entry{
		Operation:  enums.AuditOpComplete,
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		Outcome:    auditOutcome(txErr),
		LockWaitMS: waitMS,
		Actor:      input.ActorStation,
		Details:    details,
	})

	s.picking.IncCompletion(completionOutcomeLabel(txErr))
	if txErr == nil && result != nil {
		s.picking.AddBackorders(result.BackordersCreated)
	}
}

// wrapCompletionStep converts an infrastructure failure into the typed
// partial-failure error naming the step; typed domain errors pass through.
func wrapCompletionStep(err error, step string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodePartialFailure, err, "completion failed at "+step)
}

func completionOutcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodeStateConflict:
		return "state_conflict"
	case pkgerrors.CodeConflict:
		return "shortfall_unconfirmed"
	case pkgerrors.CodePartialFailure:
		return "partial_failure"
	default:
		return "error"
	}
}

func missingLines(plan []CompletionLine) []map[string]any {
	missing := make([]map[string]any, 0, len(plan))
	for _, line := range plan {
		if !line.QtyMissing.IsPositive() {
			continue
		}
		missing = append(missing, map[string]any{
			"item_code":   line.ItemCode,
			"qty_ordered": line.QtyOrdered,
			"qty_sent":    line.QtySent,
			"qty_missing": line.QtyMissing,
		})
	}
	return missing
}

func invoiceRootOf(order *models.Order) *string {
	if order.InvoiceNo == nil || *order.InvoiceNo == "" {
		return nil
	}
	root := shipments.InvoiceRoot(*order.InvoiceNo)
	return &root
}

func orderLineID(lines []models.OrderLine, itemCode string) *uuid.UUID {
	for i := range lines {
		if lines[i].ItemCode == itemCode {
			id := lines[i].ID
			return &id
		}
	}
	return nil
}

func abandonDetails(reason string, result *AbandonResult, txErr error) *string {
	if txErr != nil {
		return strPtr(txErr.Error())
	}
	details := "order returned to draft"
	if reason != "" {
		details += ": " + reason
	}
	if result != nil {
		details += fmt.Sprintf(" (%d queue entries removed)", result.EntriesRemoved)
	}
	return &details
}
