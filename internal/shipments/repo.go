package shipments

import (
	"context"
	"fmt"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a shipments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func lockedForUpdate(query *gorm.DB) *gorm.DB {
	if query.Dialector.Name() == "postgres" {
		return query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

// UpsertHeader inserts or refreshes the trip header for (trip_date, order_no).
// A repeat upsert rewrites pkgs_total and the customer snapshot, keeps
// pkgs_original and pkgs_loaded, fills invoice_root only when it was empty,
// and reopens the trip.
func (r *repository) UpsertHeader(ctx context.Context, input HeaderUpsert) (*models.ShipmentHeader, error) {
	createdBy := input.CreatedBy
	row := models.ShipmentHeader{
		ID:           uuid.New(),
		TripDate:     input.TripDate,
		OrderNo:      input.OrderNo,
		CustomerCode: input.CustomerCode,
		CustomerName: input.CustomerName,
		Region:       input.Region,
		InvoiceRoot:  input.InvoiceRoot,
		PkgsTotal:    input.PkgsTotal,
		PkgsOriginal: input.PkgsTotal,
		CreatedBy:    &createdBy,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "trip_date"}, {Name: "order_no"}},
			DoUpdates: clause.Assignments(map[string]any{
				"pkgs_total":    input.PkgsTotal,
				"customer_code": input.CustomerCode,
				"customer_name": input.CustomerName,
				"region":        input.Region,
				"invoice_root":  gorm.Expr("COALESCE(shipment_headers.invoice_root, excluded.invoice_root)"),
				"closed":        false,
				"updated_at":    time.Now(),
			}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}

	var header models.ShipmentHeader
	err = r.db.WithContext(ctx).
		Where("trip_date = ? AND order_no = ?", input.TripDate, input.OrderNo).
		First(&header).Error
	if err != nil {
		return nil, err
	}
	return &header, nil
}

// SyncPackages reconciles the package rows to exactly 1..total. Unloaded rows
// above the total are removed; a loaded row above the total aborts the caller
// because a package already on the truck cannot be renumbered away.
func (r *repository) SyncPackages(ctx context.Context, shipmentID uuid.UUID, total int) error {
	var existing []models.ShipmentPackage
	err := lockedForUpdate(r.db.WithContext(ctx)).
		Where("shipment_id = ?", shipmentID).
		Order("pkg_no ASC").
		Find(&existing).Error
	if err != nil {
		return err
	}

	present := make(map[int]bool, len(existing))
	for _, pkg := range existing {
		present[pkg.PkgNo] = true
		if pkg.Loaded && pkg.PkgNo > total {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("package %d is already loaded; cannot shrink trip to %d packages", pkg.PkgNo, total)).
				WithDetails(map[string]any{"pkg_no": pkg.PkgNo, "pkgs_total": total})
		}
	}

	err = r.db.WithContext(ctx).
		Where("shipment_id = ? AND pkg_no > ? AND loaded = ?", shipmentID, total, false).
		Delete(&models.ShipmentPackage{}).Error
	if err != nil {
		return err
	}

	missing := make([]models.ShipmentPackage, 0, total)
	for no := 1; no <= total; no++ {
		if present[no] {
			continue
		}
		missing = append(missing, models.ShipmentPackage{
			ID:         uuid.New(),
			ShipmentID: shipmentID,
			PkgNo:      no,
		})
	}
	if len(missing) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shipment_id"}, {Name: "pkg_no"}},
			DoNothing: true,
		}).
		Create(&missing).Error
}

func (r *repository) UpsertLine(ctx context.Context, input LineUpsert) error {
	row := models.ShipmentLine{
		ID:          uuid.New(),
		ShipmentID:  input.ShipmentID,
		ItemCode:    input.ItemCode,
		OrderNo:     input.OrderNo,
		TripDate:    input.TripDate,
		WarehouseID: input.WarehouseID,
		QtyInvoiced: input.QtyInvoiced,
		QtySent:     input.QtySent,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "shipment_id"}, {Name: "item_code"}},
			DoUpdates: clause.Assignments(map[string]any{
				"qty_invoiced": input.QtyInvoiced,
				"qty_sent":     input.QtySent,
				"updated_at":   time.Now(),
			}),
		}).
		Create(&row).Error
}

func (r *repository) FindHeader(ctx context.Context, shipmentID uuid.UUID) (*models.ShipmentHeader, error) {
	var header models.ShipmentHeader
	err := r.db.WithContext(ctx).
		Where("id = ?", shipmentID).
		First(&header).Error
	if err != nil {
		return nil, err
	}
	return &header, nil
}

func (r *repository) FindHeaderForUpdate(ctx context.Context, shipmentID uuid.UUID) (*models.ShipmentHeader, error) {
	var header models.ShipmentHeader
	err := lockedForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", shipmentID).
		First(&header).Error
	if err != nil {
		return nil, err
	}
	return &header, nil
}

// FindOpenByInvoiceRoot returns the newest trip still accepting loads for the
// invoice root a loader scanned.
func (r *repository) FindOpenByInvoiceRoot(ctx context.Context, root string) (*models.ShipmentHeader, error) {
	var header models.ShipmentHeader
	err := r.db.WithContext(ctx).
		Where("invoice_root = ? AND closed = ? AND pkgs_loaded < pkgs_total", root, false).
		Order("created_at DESC").
		First(&header).Error
	if err != nil {
		return nil, err
	}
	return &header, nil
}

func (r *repository) ListHeadersByTripRange(ctx context.Context, from, to time.Time) ([]models.ShipmentHeader, error) {
	var headers []models.ShipmentHeader
	err := r.db.WithContext(ctx).
		Where("trip_date >= ? AND trip_date <= ?", from, to).
		Order("trip_date ASC, order_no ASC").
		Find(&headers).Error
	if err != nil {
		return nil, err
	}
	return headers, nil
}

func (r *repository) FindLines(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentLine, error) {
	var lines []models.ShipmentLine
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("item_code ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) FindPackages(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentPackage, error) {
	var packages []models.ShipmentPackage
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("pkg_no ASC").
		Find(&packages).Error
	if err != nil {
		return nil, err
	}
	return packages, nil
}

func (r *repository) FindPackageForUpdate(ctx context.Context, shipmentID uuid.UUID, pkgNo int) (*models.ShipmentPackage, error) {
	var pkg models.ShipmentPackage
	err := lockedForUpdate(r.db.WithContext(ctx)).
		Where("shipment_id = ? AND pkg_no = ?", shipmentID, pkgNo).
		First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// MarkPackageLoaded flips one package to loaded. It reports false without
// touching the row when the package was already loaded.
func (r *repository) MarkPackageLoaded(ctx context.Context, packageID uuid.UUID, actor string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.ShipmentPackage{}).
		Where("id = ? AND loaded = ?", packageID, false).
		Updates(map[string]any{
			"loaded":    true,
			"loaded_by": actor,
			"loaded_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateHeader(ctx context.Context, shipmentID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ShipmentHeader{}).
		Where("id = ?", shipmentID).
		Updates(updates).Error
}
