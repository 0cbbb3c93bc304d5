package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okanvural/pickflow-backend/internal/picking"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
)

type stubPickingService struct {
	scanFn     func(ctx context.Context, input picking.ScanInput) (*picking.ScanResult, error)
	completeFn func(ctx context.Context, input picking.CompleteInput) (*picking.CompletionResult, error)
	abandonFn  func(ctx context.Context, input picking.AbandonInput) (*picking.AbandonResult, error)
}

func (s stubPickingService) Scan(ctx context.Context, input picking.ScanInput) (*picking.ScanResult, error) {
	if s.scanFn != nil {
		return s.scanFn(ctx, input)
	}
	return &picking.ScanResult{}, nil
}

func (s stubPickingService) Complete(ctx context.Context, input picking.CompleteInput) (*picking.CompletionResult, error) {
	if s.completeFn != nil {
		return s.completeFn(ctx, input)
	}
	return &picking.CompletionResult{}, nil
}

func (s stubPickingService) Abandon(ctx context.Context, input picking.AbandonInput) (*picking.AbandonResult, error) {
	if s.abandonFn != nil {
		return s.abandonFn(ctx, input)
	}
	return &picking.AbandonResult{}, nil
}

func TestOrderScanForwardsInput(t *testing.T) {
	orderID := uuid.New()
	svc := stubPickingService{
		scanFn: func(ctx context.Context, input picking.ScanInput) (*picking.ScanResult, error) {
			if input.OrderID != orderID {
				t.Fatalf("unexpected order id %s", input.OrderID)
			}
			if input.RawCode != "D1-STK-100" {
				t.Fatalf("unexpected code %q", input.RawCode)
			}
			if !input.Qty.Equal(decimal.NewFromFloat(2.5)) {
				t.Fatalf("unexpected qty %s", input.Qty)
			}
			if input.ActorStation != "ST-02" || input.ActorRole != enums.ActorRolePicker {
				t.Fatalf("unexpected actor %s/%s", input.ActorStation, input.ActorRole)
			}
			return &picking.ScanResult{ItemCode: "STK-100", QtyAfter: decimal.NewFromFloat(2.5)}, nil
		},
	}

	handler := OrderScan(svc, nil)
	body := bytes.NewReader([]byte(`{"code":"D1-STK-100","qty":"2.5"}`))
	req := withActor(withOrderID(httptest.NewRequest(http.MethodPost, "/", body), orderID), "ST-02", enums.ActorRolePicker)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data picking.ScanResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ItemCode != "STK-100" {
		t.Fatalf("unexpected scan result %+v", envelope.Data)
	}
}

func TestOrderScanRejectsMissingCode(t *testing.T) {
	handler := OrderScan(stubPickingService{}, nil)
	body := bytes.NewReader([]byte(`{"qty":"1"}`))
	req := withActor(withOrderID(httptest.NewRequest(http.MethodPost, "/", body), uuid.New()), "ST-02", enums.ActorRolePicker)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderScanSurfacesTypedError(t *testing.T) {
	svc := stubPickingService{
		scanFn: func(ctx context.Context, input picking.ScanInput) (*picking.ScanResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeOverScan, "scan exceeds ordered quantity")
		},
	}

	handler := OrderScan(svc, nil)
	body := bytes.NewReader([]byte(`{"code":"STK-100"}`))
	req := withActor(withOrderID(httptest.NewRequest(http.MethodPost, "/", body), uuid.New()), "ST-02", enums.ActorRolePicker)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeOverScan) {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}

func TestOrderCompleteForwardsInput(t *testing.T) {
	orderID := uuid.New()
	svc := stubPickingService{
		completeFn: func(ctx context.Context, input picking.CompleteInput) (*picking.CompletionResult, error) {
			if input.OrderID != orderID {
				t.Fatalf("unexpected order id %s", input.OrderID)
			}
			if input.PackageCount != 4 {
				t.Fatalf("unexpected package count %d", input.PackageCount)
			}
			if !input.AcceptShortfall {
				t.Fatalf("expected accept_shortfall forwarded")
			}
			return &picking.CompletionResult{OrderNo: "SO-1001", PackageCount: 4}, nil
		},
	}

	handler := OrderComplete(svc, nil)
	body := bytes.NewReader([]byte(`{"package_count":4,"accept_shortfall":true}`))
	req := withActor(withOrderID(httptest.NewRequest(http.MethodPost, "/", body), orderID), "ST-02", enums.ActorRolePicker)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestOrderCompleteRequiresPackageCount(t *testing.T) {
	handler := OrderComplete(stubPickingService{}, nil)
	body := bytes.NewReader([]byte(`{"accept_shortfall":true}`))
	req := withActor(withOrderID(httptest.NewRequest(http.MethodPost, "/", body), uuid.New()), "ST-02", enums.ActorRolePicker)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderAbandonAllowsEmptyBody(t *testing.T) {
	orderID := uuid.New()
	svc := stubPickingService{
		abandonFn: func(ctx context.Context, input picking.AbandonInput) (*picking.AbandonResult, error) {
			if input.Reason != "" {
				t.Fatalf("expected empty reason got %q", input.Reason)
			}
			return &picking.AbandonResult{OrderID: input.OrderID, EntriesRemoved: 2}, nil
		},
	}

	handler := OrderAbandon(svc, nil)
	req := withActor(withOrderID(httptest.NewRequest(http.MethodPost, "/", nil), orderID), "ST-02", enums.ActorRolePicker)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestOrderAbandonForwardsReason(t *testing.T) {
	svc := stubPickingService{
		abandonFn: func(ctx context.Context, input picking.AbandonInput) (*picking.AbandonResult, error) {
			if input.Reason != "wrong truck" {
				t.Fatalf("unexpected reason %q", input.Reason)
			}
			return &picking.AbandonResult{}, nil
		},
	}

	handler := OrderAbandon(svc, nil)
	body := bytes.NewReader([]byte(`{"reason":"wrong truck"}`))
	req := withActor(withOrderID(httptest.NewRequest(http.MethodPost, "/", body), uuid.New()), "ST-02", enums.ActorRolePicker)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
