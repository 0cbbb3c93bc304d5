package router

import (
	"context"
	"fmt"

	"github.com/okanvural/pickflow-backend/internal/analytics/types"
	analyticswriter "github.com/okanvural/pickflow-backend/internal/analytics/writer"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/outbox/payloads"
)

type scanRecordedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newScanRecordedHandler(writer Writer, logg *logger.Logger) Handler {
	return &scanRecordedHandler{writer: writer, logg: logg}
}

func (h *scanRecordedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.ScanRecordedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for scan_recorded")
	}

	fields := map[string]any{
		"event_type": envelope.EventType,
		"order_no":   event.OrderNo,
		"item_code":  event.ItemCode,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := buildScanRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build scan row", err)
		return err
	}

	if err := h.writer.InsertScan(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert scan row", err)
		return err
	}

	h.logg.Info(logCtx, "scan_recorded handler inserted scan row")
	return nil
}

func buildScanRow(envelope types.Envelope, event *payloads.ScanRecordedEvent) (types.ScanEventRow, error) {
	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		return types.ScanEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	return types.ScanEventRow{
		EventID:      envelope.EventID,
		OccurredAt:   envelope.OccurredAt.UTC(),
		OrderID:      uuidPtr(event.OrderID),
		OrderNo:      event.OrderNo,
		ItemCode:     event.ItemCode,
		RawCode:      stringPtr(event.RawCode),
		Resolution:   stringPtr(event.Resolution),
		QtyBefore:    decimalPtr(event.QtyBefore),
		QtyAfter:     decimalPtr(event.QtyAfter),
		QtyAdded:     decimalPtr(event.QtyAdded),
		LockWaitMS:   int64Ptr(event.LockWaitMS),
		ActorStation: envelope.ActorStation(),
		ActorRole:    envelope.ActorRole(),
		Payload:      payloadJSON,
	}, nil
}
