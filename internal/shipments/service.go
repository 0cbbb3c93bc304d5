package shipments

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/okanvural/pickflow-backend/internal/audit"
	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/outbox"
	"github.com/okanvural/pickflow-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderSource interface {
	FindOrderByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
}

type auditSink interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service exposes the loader-facing trip operations. Completion writes the
// headers and lines itself through the repository; nothing here creates a
// trip.
type Service interface {
	ListTrips(ctx context.Context, input ListTripsInput) (*TripList, error)
	TripDetail(ctx context.Context, shipmentID uuid.UUID) (*TripDetail, error)
	FindOpenTripByInvoice(ctx context.Context, scannedCode string) (*TripDetail, error)
	MarkPackageLoaded(ctx context.Context, input MarkLoadedInput) (*LoadResult, error)
	CloseTrip(ctx context.Context, input CloseTripInput) (*TripDetail, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	orders orderSource
	audits auditSink
	logg   *logger.Logger
}

// NewService builds a shipments service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxPub outboxPublisher, orders orderSource, audits auditSink, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxPub == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order source required")
	}
	if audits == nil {
		return nil, fmt.Errorf("audit sink required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxPub,
		orders: orders,
		audits: audits,
		logg:   logg,
	}, nil
}

// invoiceSuffixPattern strips the -K<n> part-invoice suffix so every partial
// invoice of an order maps to the same trip.
var invoiceSuffixPattern = regexp.MustCompile(`-K\d+$`)

// InvoiceRoot reduces a scanned invoice barcode to the root shared by all its
// -K<n> partials.
func InvoiceRoot(code string) string {
	return invoiceSuffixPattern.ReplaceAllString(strings.TrimSpace(code), "")
}

func (s *service) ListTrips(ctx context.Context, input ListTripsInput) (*TripList, error) {
	if input.From.IsZero() || input.To.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trip date range required")
	}
	if input.To.Before(input.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trip date range is inverted")
	}

	headers, err := s.repo.ListHeadersByTripRange(ctx, input.From, input.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list trips")
	}

	list := &TripList{Trips: make([]TripSummary, 0, len(headers))}
	for _, header := range headers {
		list.Trips = append(list.Trips, tripSummary(&header))
	}
	return list, nil
}

func (s *service) TripDetail(ctx context.Context, shipmentID uuid.UUID) (*TripDetail, error) {
	if shipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	header, err := s.repo.FindHeader(ctx, shipmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
	}
	return s.buildDetail(ctx, header)
}

// FindOpenTripByInvoice resolves a loader's invoice scan to the open trip it
// belongs to. Closed and fully loaded trips never match.
func (s *service) FindOpenTripByInvoice(ctx context.Context, scannedCode string) (*TripDetail, error) {
	root := InvoiceRoot(scannedCode)
	if root == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice code required")
	}
	header, err := s.repo.FindOpenByInvoiceRoot(ctx, root)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no open trip for invoice").
				WithDetails(map[string]any{"invoice_root": root})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find trip by invoice")
	}
	return s.buildDetail(ctx, header)
}

// MarkPackageLoaded records one dock scan. Repeat scans of the same package
// report already-loaded and change nothing; the scan that loads the last
// package closes the trip.
func (s *service) MarkPackageLoaded(ctx context.Context, input MarkLoadedInput) (*LoadResult, error) {
	if input.ShipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if input.PkgNo < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package number must be positive")
	}
	if input.ActorStation == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "station identity missing")
	}

	var result *LoadResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		header, err := repo.FindHeaderForUpdate(ctx, input.ShipmentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
		}

		pkg, err := repo.FindPackageForUpdate(ctx, header.ID, input.PkgNo)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "package not found on trip").
					WithDetails(map[string]any{"pkg_no": input.PkgNo})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load package")
		}

		if pkg.Loaded {
			result = &LoadResult{
				ShipmentID:    header.ID,
				OrderNo:       header.OrderNo,
				PkgNo:         input.PkgNo,
				AlreadyLoaded: true,
				PkgsLoaded:    header.PkgsLoaded,
				PkgsTotal:     header.PkgsTotal,
				TripClosed:    header.Closed,
			}
			return nil
		}
		if header.Closed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "trip is closed")
		}

		changed, err := repo.MarkPackageLoaded(ctx, pkg.ID, input.ActorStation)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark package loaded")
		}
		if !changed {
			result = &LoadResult{
				ShipmentID:    header.ID,
				OrderNo:       header.OrderNo,
				PkgNo:         input.PkgNo,
				AlreadyLoaded: true,
				PkgsLoaded:    header.PkgsLoaded,
				PkgsTotal:     header.PkgsTotal,
				TripClosed:    header.Closed,
			}
			return nil
		}

		loaded := header.PkgsLoaded + 1
		updates := map[string]any{"pkgs_loaded": loaded}
		closedNow := loaded >= header.PkgsTotal
		if closedNow {
			updates["closed"] = true
		}
		if err := repo.UpdateHeader(ctx, header.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update trip totals")
		}

		if closedNow {
			event := outbox.DomainEvent{
				EventType:     enums.EventTripClosed,
				AggregateType: enums.AggregateShipment,
				AggregateID:   header.ID,
				Actor:         &outbox.ActorRef{Station: input.ActorStation, Role: string(input.ActorRole)},
				Data: payloads.TripClosedEvent{
					ShipmentID: header.ID,
					OrderNo:    header.OrderNo,
					TripDate:   header.TripDate,
					PkgsTotal:  header.PkgsTotal,
					PkgsLoaded: loaded,
					Manual:     false,
				},
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit trip closed event")
			}
		}

		result = &LoadResult{
			ShipmentID: header.ID,
			OrderNo:    header.OrderNo,
			PkgNo:      input.PkgNo,
			PkgsLoaded: loaded,
			PkgsTotal:  header.PkgsTotal,
			TripClosed: closedNow,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CloseTrip closes a trip by hand. Closing before every package is loaded is
// allowed but leaves an audit record saying so.
func (s *service) CloseTrip(ctx context.Context, input CloseTripInput) (*TripDetail, error) {
	if input.ShipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if input.ActorStation == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "station identity missing")
	}

	var closed *models.ShipmentHeader
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		header, err := repo.FindHeaderForUpdate(ctx, input.ShipmentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
		}
		if header.Closed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "trip already closed")
		}

		if err := repo.UpdateHeader(ctx, header.ID, map[string]any{"closed": true}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close trip")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventTripClosed,
			AggregateType: enums.AggregateShipment,
			AggregateID:   header.ID,
			Actor:         &outbox.ActorRef{Station: input.ActorStation, Role: string(input.ActorRole)},
			Data: payloads.TripClosedEvent{
				ShipmentID: header.ID,
				OrderNo:    header.OrderNo,
				TripDate:   header.TripDate,
				PkgsTotal:  header.PkgsTotal,
				PkgsLoaded: header.PkgsLoaded,
				Manual:     true,
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit trip closed event")
		}

		header.Closed = true
		closed = header
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordManualClose(ctx, closed, input.ActorStation)
	return s.buildDetail(ctx, closed)
}

// recordManualClose writes the audit trail entry for a manual close. The trip
// header has no order id, so the order is looked up by number; a missing
// order loses the trail entry, never the close.
func (s *service) recordManualClose(ctx context.Context, header *models.ShipmentHeader, actor string) {
	order, err := s.orders.FindOrderByOrderNo(ctx, header.OrderNo)
	if err != nil {
		logCtx := s.logg.WithField(ctx, "order_no", header.OrderNo)
		s.logg.Error(logCtx, "manual trip close audit skipped: order lookup failed", err)
		return
	}
	details := fmt.Sprintf("manual trip close: %d/%d packages loaded", header.PkgsLoaded, header.PkgsTotal)
	if header.PkgsLoaded < header.PkgsTotal {
		details = "incomplete " + details
	}
	s.audits.Record(ctx, audit.Entry{
		Operation: enums.AuditOpComplete,
		OrderID:   order.ID,
		OrderNo:   header.OrderNo,
		Outcome:   enums.AuditOutcomeSuccess,
		Actor:     actor,
		Details:   &details,
	})
}

func (s *service) buildDetail(ctx context.Context, header *models.ShipmentHeader) (*TripDetail, error) {
	packages, err := s.repo.FindPackages(ctx, header.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load packages")
	}
	lines, err := s.repo.FindLines(ctx, header.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipped lines")
	}

	detail := &TripDetail{
		TripSummary: tripSummary(header),
		Packages:    make([]PackageState, 0, len(packages)),
		Lines:       make([]ShippedLine, 0, len(lines)),
	}
	for _, pkg := range packages {
		detail.Packages = append(detail.Packages, PackageState{
			PkgNo:    pkg.PkgNo,
			Loaded:   pkg.Loaded,
			LoadedBy: pkg.LoadedBy,
			LoadedAt: pkg.LoadedAt,
		})
	}
	for _, line := range lines {
		detail.Lines = append(detail.Lines, ShippedLine{
			ItemCode:    line.ItemCode,
			WarehouseID: line.WarehouseID,
			QtyInvoiced: line.QtyInvoiced,
			QtySent:     line.QtySent,
		})
	}
	return detail, nil
}

func tripSummary(header *models.ShipmentHeader) TripSummary {
	return TripSummary{
		ID:           header.ID,
		TripDate:     header.TripDate,
		OrderNo:      header.OrderNo,
		CustomerCode: header.CustomerCode,
		CustomerName: header.CustomerName,
		Region:       header.Region,
		InvoiceRoot:  header.InvoiceRoot,
		PkgsTotal:    header.PkgsTotal,
		PkgsOriginal: header.PkgsOriginal,
		PkgsLoaded:   header.PkgsLoaded,
		Closed:       header.Closed,
		EnRoute:      header.EnRoute,
		CreatedAt:    header.CreatedAt,
	}
}
