package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okanvural/pickflow-backend/api/responses"
	"github.com/okanvural/pickflow-backend/internal/shipments"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
)

// TripsList returns shipment headers inside an inclusive trip-date range.
func TripsList(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipments service unavailable"))
			return
		}

		from, err := parseTripDateParam(r.URL.Query().Get("from"), "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := parseTripDateParam(r.URL.Query().Get("to"), "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := shipments.ListTripsInput{}
		if from != nil {
			input.From = *from
		}
		if to != nil {
			input.To = *to
		}

		list, err := svc.ListTrips(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// TripDetail returns one trip header with its packages and shipped lines.
func TripDetail(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipments service unavailable"))
			return
		}

		tripID, err := parseTripID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.TripDetail(r.Context(), tripID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// TripByInvoice resolves a loader's invoice scan to the open trip. Any -K<n>
// suffix on the scanned code is ignored.
func TripByInvoice(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipments service unavailable"))
			return
		}

		root := strings.TrimSpace(chi.URLParam(r, "invoiceRoot"))
		if root == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invoice code is required"))
			return
		}

		detail, err := svc.FindOpenTripByInvoice(r.Context(), root)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// TripPackageLoaded marks one package as loaded onto the truck. A repeat scan
// reports already-loaded and changes nothing.
func TripPackageLoaded(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipments service unavailable"))
			return
		}

		tripID, err := parseTripID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rawPkg := strings.TrimSpace(chi.URLParam(r, "pkgNo"))
		pkgNo, err := strconv.Atoi(rawPkg)
		if err != nil || pkgNo < 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid package number"))
			return
		}

		station, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MarkPackageLoaded(r.Context(), shipments.MarkLoadedInput{
			ShipmentID:   tripID,
			PkgNo:        pkgNo,
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

// TripClose closes a trip manually before every package is loaded.
func TripClose(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipments service unavailable"))
			return
		}

		tripID, err := parseTripID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		station, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.CloseTrip(r.Context(), shipments.CloseTripInput{
			ShipmentID:   tripID,
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

func parseTripID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "tripId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "trip id is required")
	}
	tripID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid trip id")
	}
	return tripID, nil
}
