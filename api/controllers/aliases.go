package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okanvural/pickflow-backend/api/responses"
	"github.com/okanvural/pickflow-backend/api/validators"
	"github.com/okanvural/pickflow-backend/internal/barcode"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/pagination"
)

type createAliasRequest struct {
	Barcode     string          `json:"barcode" validate:"required,min=2,max=64"`
	ItemCode    string          `json:"item_code" validate:"required,min=2,max=64"`
	WarehouseID *string         `json:"warehouse_id,omitempty"`
	Multiplier  decimal.Decimal `json:"multiplier"`
}

// AliasesList returns the barcode xref rows the resolver consults.
func AliasesList(svc barcode.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "barcode service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := barcode.ListAliasesInput{
			Barcode:  strings.TrimSpace(r.URL.Query().Get("barcode")),
			ItemCode: strings.TrimSpace(r.URL.Query().Get("item_code")),
			Limit:    limit,
		}
		if warehouse := strings.TrimSpace(r.URL.Query().Get("warehouse_id")); warehouse != "" {
			input.WarehouseID = &warehouse
		}

		views, err := svc.ListAliases(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"aliases": views})
	}
}

// AliasCreate registers a new barcode alias. Supervisor-gated in the router.
func AliasCreate(svc barcode.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "barcode service unavailable"))
			return
		}

		station, _, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createAliasRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.CreateAlias(r.Context(), barcode.CreateAliasInput{
			Barcode:      body.Barcode,
			ItemCode:     body.ItemCode,
			WarehouseID:  body.WarehouseID,
			Multiplier:   body.Multiplier,
			ActorStation: station,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}
