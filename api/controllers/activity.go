package controllers

import (
	"net/http"
	"strings"

	"github.com/okanvural/pickflow-backend/api/responses"
	"github.com/okanvural/pickflow-backend/api/validators"
	"github.com/okanvural/pickflow-backend/internal/audit"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/pagination"
)

// ActivityFeed returns the scan audit trail, newest first.
func ActivityFeed(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := audit.ListActivityInput{
			OrderNo:   strings.TrimSpace(r.URL.Query().Get("order_no")),
			Operation: strings.TrimSpace(r.URL.Query().Get("operation")),
			Outcome:   strings.TrimSpace(r.URL.Query().Get("outcome")),
			Limit:     limit,
			Cursor:    strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		since, err := parseTripDateParam(r.URL.Query().Get("since"), "since")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Since = since

		list, err := svc.ListActivity(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
