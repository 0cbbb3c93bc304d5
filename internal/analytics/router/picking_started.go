package router

import (
	"context"
	"fmt"

	"github.com/okanvural/pickflow-backend/internal/analytics/types"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/outbox/payloads"
)

type pickingStartedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newPickingStartedHandler(writer Writer, logg *logger.Logger) Handler {
	return &pickingStartedHandler{writer: writer, logg: logg}
}

func (h *pickingStartedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderPickingStartedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_picking_started")
	}

	fields := map[string]any{
		"event_type": envelope.EventType,
		"order_no":   event.OrderNo,
		"line_count": event.LineCount,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := baseFulfillmentRow(envelope, event.OrderNo, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build fulfillment row", err)
		return err
	}
	row.OrderID = uuidPtr(event.OrderID)
	row.TripDate = timePtr(event.TripDate)
	row.LineCount = int64Ptr(int64(event.LineCount))

	if err := h.writer.InsertFulfillment(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert fulfillment row", err)
		return err
	}

	h.logg.Info(logCtx, "order_picking_started handler inserted fulfillment row")
	return nil
}
