package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okanvural/pickflow-backend/api/routes"
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
	"github.com/okanvural/pickflow-backend/pkg/dblock"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/metrics"
	"github.com/okanvural/pickflow-backend/pkg/migrate"
	"github.com/okanvural/pickflow-backend/pkg/outbox"
	"github.com/okanvural/pickflow-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	// Advisory locks need the raw pool; sqlite runs fall back to the
	// in-process manager.
	var lockManager dblock.Manager = dblock.NewMemoryManager()
	if dbClient.Driver() == db.DriverPostgres {
		sqlDB, err := dbClient.SQLDB()
		if err != nil {
			logg.Error(context.Background(), "failed to expose sql pool for advisory locks", err)
			os.Exit(1)
		}
		lockManager = dblock.NewAdvisoryManager(sqlDB, cfg.Scanner.LockTimeout, logg)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pickingMetrics := metrics.NewPickingMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	auditRepo := audit.NewRepository(dbClient.DB())
	auditRecorder, err := audit.NewRecorder(auditRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit recorder", err)
		os.Exit(1)
	}
	auditService, err := audit.NewService(auditRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	stationsService, err := stations.NewService(stations.ServiceParams{
		StationRepo:    stations.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stations service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	shipmentsRepo := shipments.NewRepository(dbClient.DB())
	backordersRepo := backorders.NewRepository(dbClient.DB())
	aliasRepo := barcode.NewRepository(dbClient.DB())

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	resolveCache, err := barcode.NewRedisResolveCache(redisClient, cfg.Scanner.ResolveCacheTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create resolve cache", err)
		os.Exit(1)
	}
	resolver, err := barcode.NewResolver(aliasRepo, resolveCache, cfg.Scanner, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create barcode resolver", err)
		os.Exit(1)
	}
	aliasService, err := barcode.NewService(aliasRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create alias service", err)
		os.Exit(1)
	}

	pickingService, err := picking.NewService(
		dbClient,
		ordersRepo,
		shipmentsRepo,
		backordersRepo,
		resolver,
		lockManager,
		auditRecorder,
		outboxService,
		pickingMetrics,
		logg,
		cfg.Scanner,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create picking service", err)
		os.Exit(1)
	}

	backordersService, err := backorders.NewService(backordersRepo, dbClient, lockManager, outboxService, pickingMetrics, logg, cfg.Scanner.LockTimeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create backorders service", err)
		os.Exit(1)
	}

	shipmentsService, err := shipments.NewService(shipmentsRepo, dbClient, outboxService, ordersRepo, auditRecorder, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			sessionManager,
			stationsService,
			ordersService,
			pickingService,
			backordersService,
			shipmentsService,
			aliasService,
			auditService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
