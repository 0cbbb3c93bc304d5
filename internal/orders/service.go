package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
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

// Service defines order-level operations beyond repository reads.
type Service interface {
	List(ctx context.Context, input ListOrdersInput) (*OrderList, error)
	Detail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	Queue(ctx context.Context, orderID uuid.UUID) (*QueueSnapshot, error)
	StartPicking(ctx context.Context, input StartPickingInput) (*OrderDetail, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// ListOrdersInput captures the filters supported by the order list. Status
// defaults to picking when empty.
type ListOrdersInput struct {
	Status       string
	TripDateFrom *time.Time
	TripDateTo   *time.Time
	Query        string
	Limit        int
	Cursor       string
}

// StartPickingInput carries the order to open plus the acting station.
type StartPickingInput struct {
	OrderID      uuid.UUID
	ActorStation string
	ActorRole    enums.ActorRole
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxPub outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxPub == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxPub,
	}, nil
}

func (s *service) List(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	query := ListOrdersQuery{
		TripDateFrom: input.TripDateFrom,
		TripDateTo:   input.TripDateTo,
		Query:        input.Query,
		Limit:        input.Limit,
	}

	status := enums.OrderStatusPicking
	if input.Status != "" {
		parsed, err := enums.ParseOrderStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
		}
		status = parsed
	}
	query.Status = &status

	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	summaries, next, err := s.repo.ListOrders(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &OrderList{Orders: summaries, NextCursor: cursor}, nil
}

func (s *service) Detail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	entries, err := s.repo.FindQueueEntries(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pick queue")
	}

	return buildOrderDetail(order, order.Lines, entries), nil
}

func (s *service) Queue(ctx context.Context, orderID uuid.UUID) (*QueueSnapshot, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	if _, err := s.repo.FindOrder(ctx, orderID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	entries, err := s.repo.FindQueueEntries(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pick queue")
	}

	snapshot := &QueueSnapshot{OrderID: orderID, Entries: make([]QueueEntry, 0, len(entries))}
	for _, entry := range entries {
		snapshot.Entries = append(snapshot.Entries, QueueEntry{
			ItemCode:  entry.ItemCode,
			QtySent:   entry.QtySent,
			Version:   entry.Version,
			LastActor: entry.LastActor,
			UpdatedAt: entry.UpdatedAt,
		})
	}
	return snapshot, nil
}

// StartPicking moves a draft order into picking and seeds one accumulator row
// per line. Re-running it on a picking order only seeds missing rows; the
// lifecycle event is emitted once per order.
func (s *service) StartPicking(ctx context.Context, input StartPickingInput) (*OrderDetail, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorStation == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "station identity missing")
	}

	var detail *OrderDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusShipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already shipped")
		}
		alreadyPicking := order.Status == enums.OrderStatusPicking

		lines, err := repo.FindOrderLines(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order lines")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no lines to pick")
		}

		itemCodes := make([]string, 0, len(lines))
		for _, line := range lines {
			itemCodes = append(itemCodes, line.ItemCode)
		}
		if err := repo.SeedQueueEntries(ctx, order.ID, itemCodes); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed pick queue")
		}

		if !alreadyPicking {
			if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": enums.OrderStatusPicking}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			order.Status = enums.OrderStatusPicking

			event := outbox.DomainEvent{
				EventType:     enums.EventOrderPickingStarted,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{Station: input.ActorStation, Role: string(input.ActorRole)},
				Data: payloads.OrderPickingStartedEvent{
					OrderID:   order.ID,
					OrderNo:   order.OrderNo,
					TripDate:  order.TripDate,
					LineCount: len(lines),
				},
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit picking started event")
			}
		}

		entries, err := repo.FindQueueEntries(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pick queue")
		}
		detail = buildOrderDetail(order, lines, entries)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func buildOrderDetail(order *models.Order, lines []models.OrderLine, entries []models.PickQueueEntry) *OrderDetail {
	progress := make(map[string]models.PickQueueEntry, len(entries))
	for _, entry := range entries {
		progress[entry.ItemCode] = entry
	}

	detail := &OrderDetail{
		ID:           order.ID,
		OrderNo:      order.OrderNo,
		TripDate:     order.TripDate,
		CustomerCode: order.CustomerCode,
		CustomerName: order.CustomerName,
		Region:       order.Region,
		Address:      order.Address,
		InvoiceNo:    order.InvoiceNo,
		Status:       order.Status,
		PackageCount: order.PackageCount,
		CompletedBy:  order.CompletedBy,
		CompletedAt:  order.CompletedAt,
		Lines:        make([]LineProgress, 0, len(lines)),
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
	for _, line := range lines {
		lineProgress := LineProgress{
			ItemCode:      line.ItemCode,
			LineNo:        line.LineNo,
			Description:   line.Description,
			WarehouseID:   line.WarehouseID,
			ShelfLocation: line.ShelfLocation,
			Unit:          line.Unit,
			QtyOrdered:    line.QtyOrdered,
			QtySent:       decimal.Zero,
		}
		if entry, ok := progress[line.ItemCode]; ok {
			lineProgress.QtySent = entry.QtySent
			lineProgress.Version = entry.Version
			lineProgress.LastActor = entry.LastActor
		}
		detail.Lines = append(detail.Lines, lineProgress)
	}
	return detail
}
