package router

import (
	"context"
	"fmt"

	"github.com/okanvural/pickflow-backend/internal/analytics/types"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/outbox/payloads"
)

type orderShippedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderShippedHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderShippedHandler{writer: writer, logg: logg}
}

func (h *orderShippedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderShippedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_shipped")
	}

	fields := map[string]any{
		"event_type":  envelope.EventType,
		"order_no":    event.OrderNo,
		"shipment_id": event.ShipmentID,
		"shortfall":   event.Shortfall,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := baseFulfillmentRow(envelope, event.OrderNo, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build fulfillment row", err)
		return err
	}
	row.OrderID = uuidPtr(event.OrderID)
	row.ShipmentID = uuidPtr(event.ShipmentID)
	row.TripDate = timePtr(event.TripDate)
	row.LinesShipped = int64Ptr(int64(event.LinesShipped))
	row.LinesShort = int64Ptr(int64(event.LinesShort))
	row.PackageCount = int64Ptr(int64(event.PackageCount))
	row.Shortfall = boolPtr(event.Shortfall)

	if err := h.writer.InsertFulfillment(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert fulfillment row", err)
		return err
	}

	h.logg.Info(logCtx, "order_shipped handler inserted fulfillment row")
	return nil
}
