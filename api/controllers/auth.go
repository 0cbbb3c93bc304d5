package controllers

import (
	"net/http"

	"github.com/okanvural/pickflow-backend/api/responses"
	"github.com/okanvural/pickflow-backend/api/validators"
	"github.com/okanvural/pickflow-backend/internal/stations"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
)

// StationLogin wires the station code + PIN login into the HTTP layer.
func StationLogin(svc stations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "stations service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body stations.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("X-PF-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}
