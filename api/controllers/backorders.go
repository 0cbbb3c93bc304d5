package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okanvural/pickflow-backend/api/responses"
	"github.com/okanvural/pickflow-backend/api/validators"
	"github.com/okanvural/pickflow-backend/internal/backorders"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/pagination"
)

type backorderScanRequest struct {
	Qty decimal.Decimal `json:"qty"`
}

// BackordersList returns the open or fulfilled backorder queue.
func BackordersList(svc backorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backorders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), backorders.ListInput{
			State:   strings.TrimSpace(r.URL.Query().Get("state")),
			OrderNo: strings.TrimSpace(r.URL.Query().Get("order_no")),
			Limit:   limit,
			Cursor:  strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// BackorderScan accumulates a warehouse scan against an open backorder.
func BackorderScan(svc backorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backorders service unavailable"))
			return
		}

		backorderID, err := parseBackorderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		station, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body backorderScanRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Scan(r.Context(), backorders.ScanInput{
			BackorderID:  backorderID,
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

// BackorderFulfill closes a backorder without scanning the remainder.
func BackorderFulfill(svc backorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "backorders service unavailable"))
			return
		}

		backorderID, err := parseBackorderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		station, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Fulfill(r.Context(), backorders.FulfillInput{
			BackorderID:  backorderID,
			ActorStation: station,
			ActorRole:    role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func parseBackorderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "backorderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "backorder id is required")
	}
	backorderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid backorder id")
	}
	return backorderID, nil
}
