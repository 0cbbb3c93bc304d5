package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okanvural/pickflow-backend/api/controllers"
	"github.com/okanvural/pickflow-backend/api/middleware"
	"github.com/okanvural/pickflow-backend/internal/audit"
	"github.com/okanvural/pickflow-backend/internal/backorders"
	"github.com/okanvural/pickflow-backend/internal/barcode"
	"github.com/okanvural/pickflow-backend/internal/orders"
	"github.com/okanvural/pickflow-backend/internal/picking"
	"github.com/okanvural/pickflow-backend/internal/shipments"
	"github.com/okanvural/pickflow-backend/internal/stations"
	"github.com/okanvural/pickflow-backend/pkg/auth/session"
	"github.com/okanvural/pickflow-backend/pkg/config"
	"github.com/okanvural/pickflow-backend/pkg/db"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// NewRouter mounts every HTTP surface: health probes, the metrics scrape
// endpoint, the public ping/validate pair, station auth, and the
// authenticated v1 API. Mutating pick-floor routes are role-gated; the
// supervisor role passes every gate.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	sessionManager sessionManager,
	stationsService stations.Service,
	ordersService orders.Service,
	pickingService picking.Service,
	backordersService backorders.Service,
	shipmentsService shipments.Service,
	aliasService barcode.Service,
	auditService audit.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginStationLimit,
	)

	// A nil client must disable the redis-backed middleware instead of
	// reaching it as a typed-nil store.
	idempotency := middleware.Idempotency(nil, logg)
	loginLimiter := middleware.AuthRateLimit(loginPolicy, nil, logg)
	if redisClient != nil {
		idempotency = middleware.Idempotency(redisClient, logg)
		loginLimiter = middleware.AuthRateLimit(loginPolicy, redisClient, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(loginLimiter).Post("/station-login", controllers.StationLogin(stationsService, logg))
		r.Post("/logout", controllers.AuthLogout(sessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessionManager, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(idempotency)

		r.Get("/ping", controllers.PrivatePing())

		pickerOnly := middleware.RequireRoles(logg, enums.ActorRolePicker)
		loaderOnly := middleware.RequireRoles(logg, enums.ActorRoleLoader)
		supervisorOnly := middleware.RequireRoles(logg, enums.ActorRoleSupervisor)

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Get("/{orderId}/queue", controllers.OrderQueue(ordersService, logg))
			r.With(pickerOnly).Post("/{orderId}/start-picking", controllers.OrderStartPicking(ordersService, logg))
			r.With(pickerOnly).Post("/{orderId}/scan", controllers.OrderScan(pickingService, logg))
			r.With(pickerOnly).Post("/{orderId}/complete", controllers.OrderComplete(pickingService, logg))
			r.With(pickerOnly).Post("/{orderId}/abandon", controllers.OrderAbandon(pickingService, logg))
		})

		r.Route("/v1/backorders", func(r chi.Router) {
			r.Get("/", controllers.BackordersList(backordersService, logg))
			r.With(pickerOnly).Post("/{backorderId}/scan", controllers.BackorderScan(backordersService, logg))
			r.With(supervisorOnly).Post("/{backorderId}/fulfill", controllers.BackorderFulfill(backordersService, logg))
		})

		r.Route("/v1/trips", func(r chi.Router) {
			r.Get("/", controllers.TripsList(shipmentsService, logg))
			r.Get("/by-invoice/{invoiceRoot}", controllers.TripByInvoice(shipmentsService, logg))
			r.Get("/{tripId}", controllers.TripDetail(shipmentsService, logg))
			r.With(loaderOnly).Post("/{tripId}/packages/{pkgNo}/loaded", controllers.TripPackageLoaded(shipmentsService, logg))
			r.With(loaderOnly).Post("/{tripId}/close", controllers.TripClose(shipmentsService, logg))
		})

		r.Route("/v1/aliases", func(r chi.Router) {
			r.Get("/", controllers.AliasesList(aliasService, logg))
			r.With(supervisorOnly).Post("/", controllers.AliasCreate(aliasService, logg))
		})

		r.Get("/v1/activity", controllers.ActivityFeed(auditService, logg))
	})

	return r
}
