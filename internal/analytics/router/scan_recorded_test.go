package router

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/okanvural/pickflow-backend/internal/analytics/types"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/outbox"
	"github.com/okanvural/pickflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestScanRecordedHandlerInsertsScanRow(t *testing.T) {
	writer := &fakeWriter{}
	handler := newScanRecordedHandler(writer, logger.New(logger.Options{ServiceName: "router-scan-test"}))
	now := time.Now().UTC()
	event := &payloads.ScanRecordedEvent{
		OrderID:    uuid.New(),
		OrderNo:    "SO-1001",
		ItemCode:   "STK-100",
		RawCode:    "D1-STK-100",
		QtyBefore:  decimal.NewFromInt(2),
		QtyAfter:   decimal.NewFromInt(3),
		QtyAdded:   decimal.NewFromInt(1),
		Resolution: "prefix",
		LockWaitMS: 12,
	}

	envelope := types.Envelope{
		EventID:    "scan-event",
		EventType:  enums.EventScanRecorded,
		OccurredAt: now,
		Actor:      &outbox.ActorRef{Station: "PICK-01", Role: "picker"},
		Payload:    []byte("{}"),
	}

	if err := handler.Handle(context.Background(), envelope, event); err != nil {
		t.Fatalf("handle scan_recorded: %v", err)
	}

	if len(writer.scans) != 1 {
		t.Fatalf("expected 1 scan insert, got %d", len(writer.scans))
	}
	if len(writer.fulfillments) != 0 {
		t.Fatalf("expected no fulfillment inserts, got %d", len(writer.fulfillments))
	}

	row := writer.scans[0]
	if row.EventID != envelope.EventID {
		t.Fatalf("unexpected event id: %s", row.EventID)
	}
	if row.OrderNo != event.OrderNo {
		t.Fatalf("order no mismatch: %s", row.OrderNo)
	}
	if row.OrderID == nil || *row.OrderID != event.OrderID.String() {
		t.Fatalf("order id mismatch: %v", row.OrderID)
	}
	if row.ItemCode != event.ItemCode {
		t.Fatalf("item code mismatch: %s", row.ItemCode)
	}
	if row.RawCode == nil || *row.RawCode != event.RawCode {
		t.Fatalf("raw code mismatch: %v", row.RawCode)
	}
	if row.Resolution == nil || *row.Resolution != event.Resolution {
		t.Fatalf("resolution mismatch: %v", row.Resolution)
	}
	if row.QtyAdded == nil || *row.QtyAdded != 1 {
		t.Fatalf("qty added mismatch: %v", row.QtyAdded)
	}
	if row.QtyAfter == nil || *row.QtyAfter != 3 {
		t.Fatalf("qty after mismatch: %v", row.QtyAfter)
	}
	if row.LockWaitMS == nil || *row.LockWaitMS != event.LockWaitMS {
		t.Fatalf("lock wait mismatch: %v", row.LockWaitMS)
	}
	if row.ActorStation == nil || *row.ActorStation != "PICK-01" {
		t.Fatalf("actor station mismatch: %v", row.ActorStation)
	}
	if row.ActorRole == nil || *row.ActorRole != "picker" {
		t.Fatalf("actor role mismatch: %v", row.ActorRole)
	}

	if !row.Payload.Valid {
		t.Fatal("payload json not valid")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(row.Payload.JSONVal), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["order_no"] != event.OrderNo {
		t.Fatalf("payload order no mismatch: %v", payload["order_no"])
	}
	if payload["raw_code"] != event.RawCode {
		t.Fatalf("payload raw code mismatch: %v", payload["raw_code"])
	}
}

func TestScanRecordedHandlerWithoutActor(t *testing.T) {
	writer := &fakeWriter{}
	handler := newScanRecordedHandler(writer, logger.New(logger.Options{ServiceName: "router-scan-test"}))
	event := &payloads.ScanRecordedEvent{
		OrderID:  uuid.New(),
		OrderNo:  "SO-1002",
		ItemCode: "STK-200",
	}

	envelope := types.Envelope{
		EventID:    "scan-event-2",
		EventType:  enums.EventScanRecorded,
		OccurredAt: time.Now().UTC(),
		Payload:    []byte("{}"),
	}

	if err := handler.Handle(context.Background(), envelope, event); err != nil {
		t.Fatalf("handle scan_recorded: %v", err)
	}
	row := writer.scans[0]
	if row.ActorStation != nil {
		t.Fatalf("expected nil actor station, got %v", *row.ActorStation)
	}
	if row.ActorRole != nil {
		t.Fatalf("expected nil actor role, got %v", *row.ActorRole)
	}
}
