package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okanvural/pickflow-backend/internal/shipments"
	"github.com/okanvural/pickflow-backend/pkg/enums"
)

type stubShipmentsService struct {
	listFn    func(ctx context.Context, input shipments.ListTripsInput) (*shipments.TripList, error)
	detailFn  func(ctx context.Context, shipmentID uuid.UUID) (*shipments.TripDetail, error)
	invoiceFn func(ctx context.Context, scannedCode string) (*shipments.TripDetail, error)
	loadFn    func(ctx context.Context, input shipments.MarkLoadedInput) (*shipments.LoadResult, error)
	closeFn   func(ctx context.Context, input shipments.CloseTripInput) (*shipments.TripDetail, error)
}

func (s stubShipmentsService) ListTrips(ctx context.Context, input shipments.ListTripsInput) (*shipments.TripList, error) {
	if s.listFn != nil {
		return s.listFn(ctx, input)
	}
	return &shipments.TripList{}, nil
}

func (s stubShipmentsService) TripDetail(ctx context.Context, shipmentID uuid.UUID) (*shipments.TripDetail, error) {
	if s.detailFn != nil {
		return s.detailFn(ctx, shipmentID)
	}
	return &shipments.TripDetail{}, nil
}

func (s stubShipmentsService) FindOpenTripByInvoice(ctx context.Context, scannedCode string) (*shipments.TripDetail, error) {
	if s.invoiceFn != nil {
		return s.invoiceFn(ctx, scannedCode)
	}
	return &shipments.TripDetail{}, nil
}

func (s stubShipmentsService) MarkPackageLoaded(ctx context.Context, input shipments.MarkLoadedInput) (*shipments.LoadResult, error) {
	if s.loadFn != nil {
		return s.loadFn(ctx, input)
	}
	return &shipments.LoadResult{}, nil
}

func (s stubShipmentsService) CloseTrip(ctx context.Context, input shipments.CloseTripInput) (*shipments.TripDetail, error) {
	if s.closeFn != nil {
		return s.closeFn(ctx, input)
	}
	return &shipments.TripDetail{}, nil
}

func withTripParams(req *http.Request, tripID uuid.UUID, pkgNo string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("tripId", tripID.String())
	if pkgNo != "" {
		ctx.URLParams.Add("pkgNo", pkgNo)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestTripsListParsesRange(t *testing.T) {
	svc := stubShipmentsService{
		listFn: func(ctx context.Context, input shipments.ListTripsInput) (*shipments.TripList, error) {
			if input.From.Format("2006-01-02") != "2025-03-10" {
				t.Fatalf("unexpected from %v", input.From)
			}
			if input.To.Format("2006-01-02") != "2025-03-12" {
				t.Fatalf("unexpected to %v", input.To)
			}
			return &shipments.TripList{Trips: []shipments.TripSummary{{OrderNo: "SO-1001", TripDate: input.From}}}, nil
		},
	}

	handler := TripsList(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/?from=2025-03-10&to=2025-03-12", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data shipments.TripList `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Trips) != 1 || envelope.Data.Trips[0].OrderNo != "SO-1001" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestTripsListRejectsBadDate(t *testing.T) {
	handler := TripsList(stubShipmentsService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/?from=yesterday&to=2025-03-12", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTripByInvoiceForwardsCode(t *testing.T) {
	svc := stubShipmentsService{
		invoiceFn: func(ctx context.Context, scannedCode string) (*shipments.TripDetail, error) {
			if scannedCode != "INV-123-K2" {
				t.Fatalf("unexpected code %q", scannedCode)
			}
			detail := &shipments.TripDetail{}
			detail.OrderNo = "SO-1001"
			return detail, nil
		},
	}

	handler := TripByInvoice(svc, nil)
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("invoiceRoot", "INV-123-K2")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestTripPackageLoadedParsesParams(t *testing.T) {
	tripID := uuid.New()
	svc := stubShipmentsService{
		loadFn: func(ctx context.Context, input shipments.MarkLoadedInput) (*shipments.LoadResult, error) {
			if input.ShipmentID != tripID {
				t.Fatalf("unexpected trip id %s", input.ShipmentID)
			}
			if input.PkgNo != 3 {
				t.Fatalf("unexpected pkg no %d", input.PkgNo)
			}
			if input.ActorStation != "DOCK-01" || input.ActorRole != enums.ActorRoleLoader {
				t.Fatalf("unexpected actor %s/%s", input.ActorStation, input.ActorRole)
			}
			return &shipments.LoadResult{ShipmentID: tripID, PkgNo: 3, PkgsLoaded: 3, PkgsTotal: 4}, nil
		},
	}

	handler := TripPackageLoaded(svc, nil)
	req := withActor(withTripParams(httptest.NewRequest(http.MethodPost, "/", nil), tripID, "3"), "DOCK-01", enums.ActorRoleLoader)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data shipments.LoadResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.PkgsLoaded != 3 {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestTripPackageLoadedRejectsBadPkgNo(t *testing.T) {
	handler := TripPackageLoaded(stubShipmentsService{}, nil)
	req := withActor(withTripParams(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New(), "zero"), "DOCK-01", enums.ActorRoleLoader)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTripCloseForwardsActor(t *testing.T) {
	tripID := uuid.New()
	closedAt := time.Now().UTC()
	svc := stubShipmentsService{
		closeFn: func(ctx context.Context, input shipments.CloseTripInput) (*shipments.TripDetail, error) {
			if input.ShipmentID != tripID {
				t.Fatalf("unexpected trip id %s", input.ShipmentID)
			}
			if input.ActorStation != "DOCK-01" {
				t.Fatalf("unexpected actor %s", input.ActorStation)
			}
			detail := &shipments.TripDetail{}
			detail.Closed = true
			detail.CreatedAt = closedAt
			return detail, nil
		},
	}

	handler := TripClose(svc, nil)
	req := withActor(withTripParams(httptest.NewRequest(http.MethodPost, "/", nil), tripID, ""), "DOCK-01", enums.ActorRoleLoader)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
