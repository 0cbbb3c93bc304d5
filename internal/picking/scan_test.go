package picking

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okanvural/pickflow-backend/internal/audit"
	"github.com/okanvural/pickflow-backend/internal/backorders"
	"github.com/okanvural/pickflow-backend/internal/barcode"
	"github.com/okanvural/pickflow-backend/internal/orders"
	"github.com/okanvural/pickflow-backend/internal/shipments"
	"github.com/okanvural/pickflow-backend/pkg/config"
	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/dblock"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/outbox"
	"github.com/okanvural/pickflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:picking_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Order{},
		&models.OrderLine{},
		&models.PickQueueEntry{},
		&models.ShipmentHeader{},
		&models.ShipmentLine{},
		&models.ShipmentPackage{},
		&models.Backorder{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingOutbox struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return r.Emit(ctx, tx, event)
}

func (r *recordingOutbox) byType(eventType enums.OutboxEventType) []outbox.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []outbox.DomainEvent
	for _, event := range r.events {
		if event.EventType == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingAudit) Record(ctx context.Context, entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) byOperation(op enums.AuditOperation) []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []audit.Entry
	for _, entry := range r.entries {
		if entry.Operation == op {
			matched = append(matched, entry)
		}
	}
	return matched
}

// stubResolver matches exact item codes and any configured aliases. The real
// resolution ladder is covered in the barcode package.
type stubResolver struct {
	aliases map[string]barcode.Resolution
}

func (r stubResolver) Resolve(ctx context.Context, orderID uuid.UUID, rawCode string, lines []models.OrderLine) (*barcode.Resolution, error) {
	for i := range lines {
		if lines[i].ItemCode == rawCode {
			return &barcode.Resolution{ItemCode: rawCode, Multiplier: decimal.NewFromInt(1), Rule: barcode.RuleExact}, nil
		}
	}
	if res, ok := r.aliases[rawCode]; ok {
		return &res, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNoMatch, "no line matches the scanned code")
}

type harness struct {
	db     *gorm.DB
	svc    Service
	orders orders.Repository
	locks  *dblock.MemoryManager
	outbox *recordingOutbox
	audits *recordingAudit
}

func newHarness(t *testing.T, cfg config.ScannerConfig) *harness {
	t.Helper()
	db := newTestDB(t)
	ordersRepo := orders.NewRepository(db)
	locks := dblock.NewMemoryManager()
	outboxStub := &recordingOutbox{}
	auditStub := &recordingAudit{}
	logg := logger.New(logger.Options{ServiceName: "picking-test"})
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	svc, err := NewService(
		gormTxRunner{db: db},
		ordersRepo,
		shipments.NewRepository(db),
		backorders.NewRepository(db),
		stubResolver{aliases: map[string]barcode.Resolution{
			"BOX-100": {ItemCode: "STK-100", Multiplier: decimal.NewFromInt(24), Rule: barcode.RuleCompositeAlias},
		}},
		locks,
		auditStub,
		outboxStub,
		nil,
		logg,
		cfg,
	)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return &harness{db: db, svc: svc, orders: ordersRepo, locks: locks, outbox: outboxStub, audits: auditStub}
}

type seedLine struct {
	itemCode  string
	warehouse string
	ordered   int64
}

func (h *harness) seedPickingOrder(t *testing.T, orderNo string, lines ...seedLine) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:       uuid.New(),
		OrderNo:  orderNo,
		TripDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Status:   enums.OrderStatusPicking,
	}
	if err := h.db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	codes := make([]string, 0, len(lines))
	for i, line := range lines {
		row := models.OrderLine{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ItemCode:    line.itemCode,
			LineNo:      i + 1,
			WarehouseID: line.warehouse,
			QtyOrdered:  decimal.NewFromInt(line.ordered),
		}
		if err := h.db.Create(&row).Error; err != nil {
			t.Fatalf("seed line: %v", err)
		}
		codes = append(codes, line.itemCode)
	}
	if err := h.orders.SeedQueueEntries(context.Background(), order.ID, codes); err != nil {
		t.Fatalf("seed queue: %v", err)
	}
	return order
}

func (h *harness) queueEntry(t *testing.T, orderID uuid.UUID, itemCode string) *models.PickQueueEntry {
	t.Helper()
	var entry models.PickQueueEntry
	err := h.db.Where("order_id = ? AND item_code = ?", orderID, itemCode).First(&entry).Error
	if err != nil {
		t.Fatalf("load queue entry: %v", err)
	}
	return &entry
}

func TestScanAccumulatesQuantity(t *testing.T) {
	t.Parallel()

	h := newHarness(t, config.ScannerConfig{})
	ctx := context.Background()
	order := h.seedPickingOrder(t, "SO-5001", seedLine{itemCode: "STK-100", warehouse: "0", ordered: 10})

	first, err := h.svc.Scan(ctx, ScanInput{
		OrderID:      order.ID,
		RawCode:      "STK-100",
		ActorStation: "ST-01",
		ActorRole:    enums.ActorRolePicker,
	})
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if !first.QtyAfter.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected 1 after first scan got %s", first.QtyAfter)
	}
	if !first.QtyRemaining.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("expected 9 remaining got %s", first.QtyRemaining)
	}
	if first.Rule != barcode.RuleExact {
		t.Fatalf("expected exact rule got %s", first.Rule)
	}

	second, err := h.svc.Scan(ctx, ScanInput{
		OrderID:      order.ID,
		RawCode:      "STK-100",
		Qty:          decimal.NewFromInt(3),
		ActorStation: "ST-02",
		ActorRole:    enums.ActorRolePicker,
	})
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if !second.QtyBefore.Equal(decimal.NewFromInt(1)) || !second.QtyAfter.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected 1 -> 4 got %s -> %s", second.QtyBefore, second.QtyAfter)
	}

	entry := h.queueEntry(t, order.ID, "STK-100")
	if !entry.QtySent.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected queue row at 4 got %s", entry.QtySent)
	}
	if entry.Version != 2 {
		t.Fatalf("expected version 2 got %d", entry.Version)
	}
	if entry.LastActor == nil || *entry.LastActor != "ST-02" {
		t.Fatalf("expected last actor ST-02 got %+v", entry.LastActor)
	}

	// Each successful scan leaves acquire, scan, and release records.
	for _, op := range []enums.AuditOperation{enums.AuditOpLockAcquire, enums.AuditOpScan, enums.AuditOpLockRelease} {
		if got := len(h.audits.byOperation(op)); got != 2 {
			t.Fatalf("expected 2 %s records got %d", op, got)
		}
	}
	scanRecords := h.audits.byOperation(enums.AuditOpScan)
	if scanRecords[1].QtyBefore == nil || !scanRecords[1].QtyBefore.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("unexpected qty_before on second scan record: %+v", scanRecords[1].QtyBefore)
	}
	if scanRecords[1].QtyAfter == nil || !scanRecords[1].QtyAfter.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("unexpected qty_after on second scan record: %+v", scanRecords[1].QtyAfter)
	}

	events := h.outbox.byType(enums.EventScanRecorded)
	if len(events) != 2 {
		t.Fatalf("expected 2 scan events got %d", len(events))
	}
	payload, ok := events[1].Data.(payloads.ScanRecordedEvent)
	if !ok {
		t.Fatalf("unexpected payload %T", events[1].Data)
	}
	if !payload.QtyAdded.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected event qty_added 3 got %s", payload.QtyAdded)
	}
}

func TestScanAppliesAliasMultiplier(t *testing.T) {
	t.Parallel()

	h := newHarness(t, config.ScannerConfig{})
	ctx := context.Background()
	order := h.seedPickingOrder(t, "SO-5002", seedLine{itemCode: "STK-100", warehouse: "0", ordered: 30})

	result, err := h.svc.Scan(ctx, ScanInput{
		OrderID:      order.ID,
		RawCode:      "BOX-100",
		ActorStation: "ST-01",
		ActorRole:    enums.ActorRolePicker,
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if result.ItemCode != "STK-100" {
		t.Fatalf("expected canonical item code got %s", result.ItemCode)
	}
	if !result.QtyAdded.Equal(decimal.NewFromInt(24)) || !result.QtyAfter.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("expected box of 24 applied got added %s after %s", result.QtyAdded, result.QtyAfter)
	}
	if result.Rule != barcode.RuleCompositeAlias {
		t.Fatalf("expected composite rule got %s", result.Rule)
	}
}

func TestScanRefusesOverScan(t *testing.T) {
	t.Parallel()

	h := newHarness(t, config.ScannerConfig{})
	ctx := context.Background()
	order := h.seedPickingOrder(t, "SO-5003", seedLine{itemCode: "STK-100", warehouse: "0", ordered: 10})
	if err := h.orders.UpdateQueueEntryQty(ctx, order.ID, "STK-100", decimal.NewFromInt(8), "ST-01"); err != nil {
		t.Fatalf("preset progress: %v", err)
	}

	_, err := h.svc.Scan(ctx, ScanInput{
		OrderID:      order.ID,
		RawCode:      "STK-100",
		Qty:          decimal.NewFromInt(3),
		ActorStation: "ST-01",
		ActorRole:    enums.ActorRolePicker,
	})
	if err == nil {
		t.Fatal("expected over-scan refusal")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOverScan {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := h.queueEntry(t, order.ID, "STK-100")
	if !entry.QtySent.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("refused scan must not change the row, got %s", entry.QtySent)
	}

	scanRecords := h.audits.byOperation(enums.AuditOpScan)
	if len(scanRecords) != 1 {
		t.Fatalf("expected 1 scan record got %d", len(scanRecords))
	}
	record := scanRecords[0]
	if record.Outcome != enums.AuditOutcomeOverScan {
		t.Fatalf("expected over_scan outcome got %s", record.Outcome)
	}
	if record.QtyBefore == nil || record.QtyAfter == nil ||
		!record.QtyBefore.Equal(decimal.NewFromInt(8)) || !record.QtyAfter.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("refusal record must keep before == after == 8, got %+v", record)
	}

	if events := h.outbox.byType(enums.EventScanRecorded); len(events) != 0 {
		t.Fatalf("refused scan must not emit events, got %d", len(events))
	}
}

func TestScanToleranceAdmitsSmallOverage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, config.ScannerConfig{OverScanTolerance: decimal.NewFromInt(1)})
	ctx := context.Background()
	order := h.seedPickingOrder(t, "SO-5004", seedLine{itemCode: "STK-100", warehouse: "0", ordered: 10})
	if err := h.orders.UpdateQueueEntryQty(ctx, order.ID, "STK-100", decimal.NewFromInt(10), "ST-01"); err != nil {
		t.Fatalf("preset progress: %v", err)
	}

	result, err := h.svc.Scan(ctx, ScanInput{
		OrderID:      order.ID,
		RawCode:      "STK-100",
		ActorStation: "ST-01",
		ActorRole:    enums.ActorRolePicker,
	})
	if err != nil {
		t.Fatalf("scan within tolerance: %v", err)
	}
	if !result.QtyAfter.Equal(decimal.NewFromInt(11)) {
		t.Fatalf("expected 11 within tolerance got %s", result.QtyAfter)
	}
	if !result.QtyRemaining.IsZero() {
		t.Fatalf("remaining never goes negative, got %s", result.QtyRemaining)
	}

	_, err = h.svc.Scan(ctx, ScanInput{
		OrderID:      order.ID,
		RawCode:      "STK-100",
		ActorStation: "ST-01",
		ActorRole:    enums.ActorRolePicker,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeOverScan {
		t.Fatalf("expected refusal past tolerance, got %v", err)
	}
}

func TestScanRejectedCodeLeavesTrail(t *testing.T) {
	t.Parallel()

	h := newHarness(t, config.ScannerConfig{})
	ctx := context.Background()
	order := h.seedPickingOrder(t, "SO-5005", seedLine{itemCode: "STK-100", warehouse: "0", ordered: 10})

	_, err := h.svc.Scan(ctx, ScanInput{
		OrderID:      order.ID,
		RawCode:      "GARBAGE-CODE",
		ActorStation: "ST-01",
		ActorRole:    enums.ActorRolePicker,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNoMatch {
		t.Fatalf("expected no-match, got %v", err)
	}

	scanRecords := h.audits.byOperation(enums.AuditOpScan)
	if len(scanRecords) != 1 {
		t.Fatalf("expected 1 scan record got %d", len(scanRecords))
	}
	record := scanRecords[0]
	if record.Outcome != enums.AuditOutcomeFailed {
		t.Fatalf("expected failed outcome got %s", record.Outcome)
	}
	if record.Details == nil || !strings.Contains(*record.Details, "GARBAGE-CODE") {
		t.Fatalf("expected raw code in details got %+v", record.Details)
	}
	if got := len(h.audits.byOperation(enums.AuditOpLockAcquire)); got != 0 {
		t.Fatalf("rejected code must not touch the lock, got %d acquire records", got)
	}
	if len(h.outbox.events) != 0 {
		t.Fatalf("rejected code must not emit events, got %d", len(h.outbox.events))
	}
}

func TestScanGuardsOrderState(t *testing.T) {
	t.Parallel()

	h := newHarness(t, config.ScannerConfig{})
	ctx := context.Background()
	order := h.seedPickingOrder(t, "SO-5006", seedLine{itemCode: "STK-100", warehouse: "0", ordered: 10})
	if err := h.orders.UpdateOrder(ctx, order.ID, map[string]any{"status": enums.OrderStatusDraft}); err != nil {
		t.Fatalf("reset status: %v", err)
	}

	_, err := h.svc.Scan(ctx, ScanInput{
		OrderID:      order.ID,
		RawCode:      "STK-100",
		ActorStation: "ST-01",
		ActorRole:    enums.ActorRolePicker,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on draft order, got %v", err)
	}

	_, err = h.svc.Scan(ctx, ScanInput{
		OrderID:      uuid.New(),
		RawCode:      "STK-100",
		ActorStation: "ST-01",
		ActorRole:    enums.ActorRolePicker,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown order, got %v", err)
	}
}
