package router

import (
	"context"
	"fmt"

	"github.com/okanvural/pickflow-backend/internal/analytics/types"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/outbox/payloads"
)

type orderAbandonedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderAbandonedHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderAbandonedHandler{writer: writer, logg: logg}
}

func (h *orderAbandonedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderAbandonedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_abandoned")
	}

	fields := map[string]any{
		"event_type": envelope.EventType,
		"order_no":   event.OrderNo,
		"reason":     event.Reason,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := baseFulfillmentRow(envelope, event.OrderNo, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build fulfillment row", err)
		return err
	}
	row.OrderID = uuidPtr(event.OrderID)

	if err := h.writer.InsertFulfillment(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert fulfillment row", err)
		return err
	}

	h.logg.Info(logCtx, "order_abandoned handler inserted fulfillment row")
	return nil
}
