package router

import (
	"context"
	"fmt"

	"github.com/okanvural/pickflow-backend/internal/analytics/types"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/outbox/payloads"
)

type tripClosedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newTripClosedHandler(writer Writer, logg *logger.Logger) Handler {
	return &tripClosedHandler{writer: writer, logg: logg}
}

func (h *tripClosedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.TripClosedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for trip_closed")
	}

	fields := map[string]any{
		"event_type":  envelope.EventType,
		"order_no":    event.OrderNo,
		"shipment_id": event.ShipmentID,
		"manual":      event.Manual,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := baseFulfillmentRow(envelope, event.OrderNo, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build fulfillment row", err)
		return err
	}
	row.ShipmentID = uuidPtr(event.ShipmentID)
	row.TripDate = timePtr(event.TripDate)
	row.PackageCount = int64Ptr(int64(event.PkgsTotal))
	row.PkgsLoaded = int64Ptr(int64(event.PkgsLoaded))
	row.Manual = boolPtr(event.Manual)

	if err := h.writer.InsertFulfillment(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert fulfillment row", err)
		return err
	}

	h.logg.Info(logCtx, "trip_closed handler inserted fulfillment row")
	return nil
}
