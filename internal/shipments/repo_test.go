package shipments

import (
	"context"
	"testing"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:shipments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Order{},
		&models.OrderLine{},
		&models.ShipmentHeader{},
		&models.ShipmentLine{},
		&models.ShipmentPackage{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(value string) *string {
	return &value
}

func TestUpsertHeaderPreservesOriginalTotals(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tripDate := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)

	first, err := repo.UpsertHeader(ctx, HeaderUpsert{
		TripDate:    tripDate,
		OrderNo:     "SO-9001",
		InvoiceRoot: strPtr("FTR-2025-17"),
		PkgsTotal:   5,
		CreatedBy:   "ST-01",
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.PkgsTotal != 5 || first.PkgsOriginal != 5 {
		t.Fatalf("unexpected totals on insert: %+v", first)
	}

	// Simulate a close before the correction comes in.
	if err := repo.UpdateHeader(ctx, first.ID, map[string]any{"closed": true}); err != nil {
		t.Fatalf("close header: %v", err)
	}

	second, err := repo.UpsertHeader(ctx, HeaderUpsert{
		TripDate:  tripDate,
		OrderNo:   "SO-9001",
		PkgsTotal: 3,
		CreatedBy: "ST-02",
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same header row, got %s and %s", first.ID, second.ID)
	}
	if second.PkgsTotal != 3 {
		t.Fatalf("expected corrected total 3 got %d", second.PkgsTotal)
	}
	if second.PkgsOriginal != 5 {
		t.Fatalf("expected original total preserved got %d", second.PkgsOriginal)
	}
	if second.InvoiceRoot == nil || *second.InvoiceRoot != "FTR-2025-17" {
		t.Fatalf("expected invoice root preserved got %v", second.InvoiceRoot)
	}
	if second.Closed {
		t.Fatal("expected re-upsert to reopen the trip")
	}

	var count int64
	if err := db.Model(&models.ShipmentHeader{}).Count(&count).Error; err != nil {
		t.Fatalf("count headers: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 header row got %d", count)
	}
}

func TestSyncPackages(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	header, err := repo.UpsertHeader(ctx, HeaderUpsert{
		TripDate:  time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
		OrderNo:   "SO-9002",
		PkgsTotal: 5,
		CreatedBy: "ST-01",
	})
	if err != nil {
		t.Fatalf("upsert header: %v", err)
	}

	if err := repo.SyncPackages(ctx, header.ID, 5); err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	packages, err := repo.FindPackages(ctx, header.ID)
	if err != nil {
		t.Fatalf("find packages: %v", err)
	}
	if len(packages) != 5 {
		t.Fatalf("expected 5 packages got %d", len(packages))
	}

	// Load package 2, then shrink to 3: 4 and 5 go, 2 stays loaded.
	if _, err := repo.MarkPackageLoaded(ctx, packages[1].ID, "LD-01"); err != nil {
		t.Fatalf("mark loaded: %v", err)
	}
	if err := repo.SyncPackages(ctx, header.ID, 3); err != nil {
		t.Fatalf("shrink sync: %v", err)
	}
	packages, err = repo.FindPackages(ctx, header.ID)
	if err != nil {
		t.Fatalf("find packages after shrink: %v", err)
	}
	if len(packages) != 3 {
		t.Fatalf("expected 3 packages got %d", len(packages))
	}
	if !packages[1].Loaded {
		t.Fatal("expected package 2 to stay loaded")
	}

	// Shrinking below a loaded package must refuse.
	err = repo.SyncPackages(ctx, header.ID, 1)
	if err == nil {
		t.Fatal("expected conflict shrinking below loaded package")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	// Growing fills the gap without touching existing rows.
	if err := repo.SyncPackages(ctx, header.ID, 4); err != nil {
		t.Fatalf("grow sync: %v", err)
	}
	packages, err = repo.FindPackages(ctx, header.ID)
	if err != nil {
		t.Fatalf("find packages after grow: %v", err)
	}
	if len(packages) != 4 {
		t.Fatalf("expected 4 packages got %d", len(packages))
	}
	for i, pkg := range packages {
		if pkg.PkgNo != i+1 {
			t.Fatalf("expected contiguous numbering got %+v", packages)
		}
	}
}

func TestUpsertLineOverwritesQuantities(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tripDate := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)

	header, err := repo.UpsertHeader(ctx, HeaderUpsert{
		TripDate:  tripDate,
		OrderNo:   "SO-9003",
		PkgsTotal: 2,
		CreatedBy: "ST-01",
	})
	if err != nil {
		t.Fatalf("upsert header: %v", err)
	}

	line := LineUpsert{
		ShipmentID:  header.ID,
		OrderNo:     "SO-9003",
		TripDate:    tripDate,
		ItemCode:    "STK-100",
		WarehouseID: "0",
		QtyInvoiced: decimal.NewFromInt(10),
		QtySent:     decimal.NewFromInt(7),
	}
	if err := repo.UpsertLine(ctx, line); err != nil {
		t.Fatalf("first line upsert: %v", err)
	}
	line.QtySent = decimal.NewFromInt(9)
	if err := repo.UpsertLine(ctx, line); err != nil {
		t.Fatalf("second line upsert: %v", err)
	}

	lines, err := repo.FindLines(ctx, header.ID)
	if err != nil {
		t.Fatalf("find lines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line got %d", len(lines))
	}
	if !lines[0].QtySent.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("expected qty_sent 9 got %s", lines[0].QtySent)
	}
	if !lines[0].QtyInvoiced.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected qty_invoiced 10 got %s", lines[0].QtyInvoiced)
	}
}

func TestMarkPackageLoadedIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	header, err := repo.UpsertHeader(ctx, HeaderUpsert{
		TripDate:  time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
		OrderNo:   "SO-9004",
		PkgsTotal: 1,
		CreatedBy: "ST-01",
	})
	if err != nil {
		t.Fatalf("upsert header: %v", err)
	}
	if err := repo.SyncPackages(ctx, header.ID, 1); err != nil {
		t.Fatalf("sync packages: %v", err)
	}
	pkg, err := repo.FindPackageForUpdate(ctx, header.ID, 1)
	if err != nil {
		t.Fatalf("find package: %v", err)
	}

	changed, err := repo.MarkPackageLoaded(ctx, pkg.ID, "LD-01")
	if err != nil {
		t.Fatalf("mark loaded: %v", err)
	}
	if !changed {
		t.Fatal("expected first mark to change the row")
	}
	changed, err = repo.MarkPackageLoaded(ctx, pkg.ID, "LD-02")
	if err != nil {
		t.Fatalf("repeat mark loaded: %v", err)
	}
	if changed {
		t.Fatal("expected repeat mark to change nothing")
	}

	pkg, err = repo.FindPackageForUpdate(ctx, header.ID, 1)
	if err != nil {
		t.Fatalf("reload package: %v", err)
	}
	if pkg.LoadedBy == nil || *pkg.LoadedBy != "LD-01" {
		t.Fatalf("expected first loader kept got %v", pkg.LoadedBy)
	}
}

func TestFindOpenByInvoiceRoot(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tripDate := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)

	closed, err := repo.UpsertHeader(ctx, HeaderUpsert{
		TripDate:    tripDate,
		OrderNo:     "SO-9005",
		InvoiceRoot: strPtr("FTR-2025-31"),
		PkgsTotal:   2,
		CreatedBy:   "ST-01",
	})
	if err != nil {
		t.Fatalf("upsert closed header: %v", err)
	}
	if err := repo.UpdateHeader(ctx, closed.ID, map[string]any{"closed": true}); err != nil {
		t.Fatalf("close header: %v", err)
	}

	full, err := repo.UpsertHeader(ctx, HeaderUpsert{
		TripDate:    tripDate,
		OrderNo:     "SO-9006",
		InvoiceRoot: strPtr("FTR-2025-31"),
		PkgsTotal:   2,
		CreatedBy:   "ST-01",
	})
	if err != nil {
		t.Fatalf("upsert full header: %v", err)
	}
	if err := repo.UpdateHeader(ctx, full.ID, map[string]any{"pkgs_loaded": 2}); err != nil {
		t.Fatalf("fill header: %v", err)
	}

	open, err := repo.UpsertHeader(ctx, HeaderUpsert{
		TripDate:    tripDate,
		OrderNo:     "SO-9007",
		InvoiceRoot: strPtr("FTR-2025-31"),
		PkgsTotal:   2,
		CreatedBy:   "ST-01",
	})
	if err != nil {
		t.Fatalf("upsert open header: %v", err)
	}

	found, err := repo.FindOpenByInvoiceRoot(ctx, "FTR-2025-31")
	if err != nil {
		t.Fatalf("find open: %v", err)
	}
	if found.ID != open.ID {
		t.Fatalf("expected open trip %s got %s", open.ID, found.ID)
	}

	if _, err := repo.FindOpenByInvoiceRoot(ctx, "FTR-0000-00"); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected record not found got %v", err)
	}
}
