package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/okanvural/pickflow-backend/api/responses"
	"github.com/okanvural/pickflow-backend/pkg/config"
	"github.com/okanvural/pickflow-backend/pkg/db"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/redis"
)

const readinessProbeTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pickflow-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the database and redis before reporting ready. A dead
// dependency returns 503 with the failing probe named.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pickflow-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessProbeTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				checks["database"] = err.Error()
				healthy = false
			} else {
				checks["database"] = "ok"
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependency not ready").
				WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
