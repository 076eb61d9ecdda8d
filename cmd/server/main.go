package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	catalogapp "github.com/roastery/backend/internal/application/catalog"
	fulfillmentapp "github.com/roastery/backend/internal/application/fulfillment"
	settingsapp "github.com/roastery/backend/internal/application/settings"
	"github.com/roastery/backend/internal/domain/provider"
	"github.com/roastery/backend/internal/infrastructure/auth"
	"github.com/roastery/backend/internal/infrastructure/cache"
	"github.com/roastery/backend/internal/infrastructure/config"
	"github.com/roastery/backend/internal/infrastructure/logger"
	"github.com/roastery/backend/internal/infrastructure/migration"
	"github.com/roastery/backend/internal/infrastructure/persistence"
	"github.com/roastery/backend/internal/infrastructure/printify"
	"github.com/roastery/backend/internal/infrastructure/telemetry"
	"github.com/roastery/backend/internal/interfaces/http/handler"
	"github.com/roastery/backend/internal/interfaces/http/middleware"
	"github.com/roastery/backend/internal/interfaces/http/router"
	"github.com/roastery/backend/migrations"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		Env:    cfg.App.Env,
		Sample: cfg.App.IsProduction(),
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting fulfillment backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		if err := logsProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	log = logsProvider.Bridge(log, log.Level())

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingEndpoint,
		ApplicationName: cfg.Telemetry.ServiceName,
		Goroutines:      true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	meter := meterProvider.Meter("github.com/roastery/backend")
	metrics, err := telemetry.NewFulfillmentMetrics(telemetry.FulfillmentMetricsConfig{Meter: meter, Logger: log})
	if err != nil {
		log.Fatal("Failed to register fulfillment metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewSQLLogger(log, logger.DefaultSQLLogConfig(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBName:     cfg.Database.DBName,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if _, err := telemetry.RegisterDBPoolMetrics(meter, db.PoolStats); err != nil {
		log.Warn("Failed to register database pool metrics", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := runMigrations(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Submission claims and webhook dedup
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	recordRepo := persistence.NewGormFulfillmentRecordRepository(db.DB)
	shippingRepo := persistence.NewGormShippingRecordRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	syncRunRepo := persistence.NewGormSyncRunRepository(db.DB)
	settingsRepo := persistence.NewGormSettingsRepository(db.DB)

	// Provider settings; stored values win over the static config
	validate := validator.New()
	settingsService := settingsapp.NewFulfillmentSettingsService(settingsapp.FulfillmentSettingsServiceConfig{
		Repo: settingsRepo,
		Fallback: provider.Settings{
			APIKey:        cfg.Fulfillment.APIKey,
			ShopID:        cfg.Fulfillment.ShopID,
			WebhookURL:    cfg.Fulfillment.WebhookURL,
			WebhookSecret: cfg.Fulfillment.WebhookSecret,
		},
		Validate: validate,
		Logger:   log,
	})

	// Provider client
	printifyConfig := printify.NewPrintifyConfig()
	printifyConfig.APIBaseURL = cfg.Fulfillment.APIBaseURL
	printifyConfig.TimeoutSeconds = int(cfg.Fulfillment.RequestTimeout / time.Second)
	printifyConfig.RequestsPerSecond = cfg.Fulfillment.RateLimitRPS
	printifyConfig.Burst = cfg.Fulfillment.RateLimitBurst
	printifyConfig.PageSize = cfg.Fulfillment.PageSize
	printifyAdapter, err := printify.NewPrintifyAdapter(printifyConfig, log)
	if err != nil {
		log.Fatal("Invalid fulfillment provider configuration", zap.Error(err))
	}
	printifyAdapter.WithMetrics(metrics)

	// Application services
	shippingStore := fulfillmentapp.NewShippingRecordStore(shippingRepo, log)
	statusUpdater := fulfillmentapp.NewStatusUpdater(fulfillmentapp.StatusUpdaterConfig{
		Orders:   orderRepo,
		Records:  recordRepo,
		Shipping: shippingStore,
		Metrics:  metrics,
		Logger:   log,
	})
	orderSubmitter := fulfillmentapp.NewOrderSubmitter(fulfillmentapp.OrderSubmitterConfig{
		Orders:         orderRepo,
		Records:        recordRepo,
		Provider:       printifyAdapter,
		Credentials:    settingsService,
		Claims:         idempotencyStore,
		Validate:       validate,
		Metrics:        metrics,
		Logger:         log,
		ClaimTTL:       cfg.Fulfillment.ClaimTTL,
		RequestTimeout: cfg.Fulfillment.RequestTimeout,
	})
	statusReconciler := fulfillmentapp.NewStatusReconciler(fulfillmentapp.StatusReconcilerConfig{
		Orders:         orderRepo,
		Provider:       printifyAdapter,
		Credentials:    settingsService,
		Updater:        statusUpdater,
		Logger:         log,
		RequestTimeout: cfg.Fulfillment.RequestTimeout,
	})
	orderCanceler := fulfillmentapp.NewOrderCanceler(fulfillmentapp.OrderCancelerConfig{
		Orders:         orderRepo,
		Provider:       printifyAdapter,
		Credentials:    settingsService,
		Updater:        statusUpdater,
		Logger:         log,
		RequestTimeout: cfg.Fulfillment.RequestTimeout,
	})
	fulfillmentQuery := fulfillmentapp.NewFulfillmentQuery(orderRepo, recordRepo, shippingStore)
	webhookIngester := fulfillmentapp.NewWebhookIngester(fulfillmentapp.WebhookIngesterConfig{
		Orders:        orderRepo,
		Updater:       statusUpdater,
		Verifier:      printify.NewSignatureVerifier(),
		Secrets:       settingsService,
		Dedup:         idempotencyStore,
		Metrics:       metrics,
		Logger:        log,
		DedupTTL:      cfg.Fulfillment.DedupTTL,
		AllowUnsigned: cfg.Fulfillment.AllowUnsignedWebhooks,
	})
	catalogSync := catalogapp.NewCatalogSync(catalogapp.CatalogSyncConfig{
		Products:    productRepo,
		Runs:        syncRunRepo,
		Provider:    printifyAdapter,
		Credentials: settingsService,
		Metrics:     metrics,
		Logger:      log,
	})

	// HTTP handlers
	healthChecks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if redisStore, ok := idempotencyStore.(*cache.RedisIdempotencyStore); ok {
		healthChecks["redis"] = redisStore.Ping
	}
	healthHandler := handler.NewHealthHandler(cfg.App.Name, version, healthChecks)
	webhookHandler := handler.NewWebhookHandler(webhookIngester, printify.SignatureHeader, cfg.HTTP.MaxWebhookBody)
	fulfillmentHandler := handler.NewFulfillmentHandler(orderSubmitter, statusReconciler, orderCanceler, fulfillmentQuery)
	catalogHandler := handler.NewCatalogHandler(catalogSync)
	settingsHandler := handler.NewSettingsHandler(settingsService)

	// Set Gin mode based on environment
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := router.NewEngine(router.EngineConfig{
		HTTP: cfg.HTTP,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		},
		Meter:     meter,
		Profiling: profiler.IsEnabled(),
		Logger:    log,
	})

	// Health and the provider webhook are public; everything else needs a
	// bearer token from the auth service.
	jwtMiddleware := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		Verifier: auth.NewTokenVerifier(cfg.JWT),
		Logger:   log,
	})
	adminRoutes := router.NewDomainGroup("admin", "/admin").
		Register(catalogHandler).
		Register(settingsHandler)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Use(jwtMiddleware, middleware.SpanAttributes()).
		RegisterPublic(healthHandler).
		RegisterPublic(webhookHandler).
		Register(fulfillmentHandler).
		Register(adminRoutes).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// runMigrations applies the embedded SQL migrations. The migrator is not
// closed: its postgres driver shares db's connection pool.
func runMigrations(db *persistence.Database, log *zap.Logger) error {
	m, err := migration.NewFromFS(db.SQL(), migrations.FS, log)
	if err != nil {
		return err
	}
	return m.Up()
}
