package controllers

import (
	"net/http"

	"github.com/okanvural/pickflow-backend/api/middleware"
	"github.com/okanvural/pickflow-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if station := middleware.StationCodeFromContext(r.Context()); station != "" {
			payload["station_code"] = station
		}
		responses.WriteSuccess(w, payload)
	}
}
