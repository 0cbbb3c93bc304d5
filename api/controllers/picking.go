package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/okanvural/pickflow-backend/api/responses"
	"github.com/okanvural/pickflow-backend/api/validators"
	"github.com/okanvural/pickflow-backend/internal/picking"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
)

type scanRequest struct {
	Code string          `json:"code" validate:"required,min=2,max=64"`
	Qty  decimal.Decimal `json:"qty"`
}

type completeRequest struct {
	PackageCount    int  `json:"package_count" validate:"required"`
	AcceptShortfall bool `json:"accept_shortfall"`
}

type abandonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// OrderScan accumulates one barcode scan against the order's pick queue.
func OrderScan(svc picking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "picking service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		station, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body scanRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Scan(r.Context(), picking.ScanInput{
			OrderID:      orderID,
			RawCode:      body.Code,
			Qty:          body.Qty,
			ActorStation: station,
			ActorRole:    role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// OrderComplete turns the accumulated queue into a shipment. Short lines
// require accept_shortfall before they fall to backorder.
func OrderComplete(svc picking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "picking service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		station, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body completeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Complete(r.Context(), picking.CompleteInput{
			OrderID:         orderID,
			PackageCount:    body.PackageCount,
			AcceptShortfall: body.AcceptShortfall,
			ActorStation:    station,
			ActorRole:       role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// OrderAbandon returns a picking order to the planning pool.
func OrderAbandon(svc picking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "picking service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		station, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body abandonRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Abandon(r.Context(), picking.AbandonInput{
			OrderID:      orderID,
			Reason:       body.Reason,
			ActorStation: station,
			ActorRole:    role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
