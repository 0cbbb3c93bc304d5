package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okanvural/pickflow-backend/api/middleware"
	"github.com/okanvural/pickflow-backend/api/responses"
	"github.com/okanvural/pickflow-backend/api/validators"
	"github.com/okanvural/pickflow-backend/internal/orders"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/pagination"
)

// OrdersList returns the pick-floor order board, defaulting to orders in
// picking status.
func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.ListOrdersInput{
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
			Query:  strings.TrimSpace(r.URL.Query().Get("q")),
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		from, err := parseTripDateParam(r.URL.Query().Get("trip_date_from"), "trip_date_from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.TripDateFrom = from

		to, err := parseTripDateParam(r.URL.Query().Get("trip_date_to"), "trip_date_to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.TripDateTo = to

		list, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderDetail returns the order header, its lines, and the live queue state.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Detail(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// OrderQueue returns the item -> scanned quantity map for an open order.
func OrderQueue(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.Queue(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// OrderStartPicking flips a draft order to picking and seeds its queue.
func OrderStartPicking(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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

		detail, err := svc.StartPicking(r.Context(), orders.StartPickingInput{
			OrderID:      orderID,
			ActorStation: station,
			ActorRole:    role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func requireActor(r *http.Request) (string, enums.ActorRole, error) {
	station := middleware.StationCodeFromContext(r.Context())
	if station == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return "", "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor role missing")
	}
	return station, role, nil
}

func parseTripDateParam(value, field string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid %s", field))
		}
	}
	return &t, nil
}
