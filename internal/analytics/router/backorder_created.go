package router

import (
	"context"
	"fmt"

	"github.com/okanvural/pickflow-backend/internal/analytics/types"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/outbox/payloads"
)

type backorderCreatedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newBackorderCreatedHandler(writer Writer, logg *logger.Logger) Handler {
	return &backorderCreatedHandler{writer: writer, logg: logg}
}

func (h *backorderCreatedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.BackorderCreatedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for backorder_created")
	}

	fields := map[string]any{
		"event_type":   envelope.EventType,
		"order_no":     event.OrderNo,
		"item_code":    event.ItemCode,
		"backorder_id": event.BackorderID,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := baseFulfillmentRow(envelope, event.OrderNo, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build fulfillment row", err)
		return err
	}
	row.BackorderID = uuidPtr(event.BackorderID)
	row.ItemCode = stringPtr(event.ItemCode)
	row.WarehouseID = stringPtr(event.WarehouseID)
	row.Qty = decimalPtr(event.QtyMissing)

	if err := h.writer.InsertFulfillment(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert fulfillment row", err)
		return err
	}

	h.logg.Info(logCtx, "backorder_created handler inserted fulfillment row")
	return nil
}
