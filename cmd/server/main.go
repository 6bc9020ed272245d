package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/infrastructure/auth"
	"github.com/erp/portal/internal/infrastructure/cache"
	"github.com/erp/portal/internal/infrastructure/config"
	"github.com/erp/portal/internal/infrastructure/logger"
	"github.com/erp/portal/internal/infrastructure/persistence"
	"github.com/erp/portal/internal/infrastructure/storage"
	"github.com/erp/portal/internal/infrastructure/telemetry"
	"github.com/erp/portal/internal/interfaces/http/handler"
	"github.com/erp/portal/internal/interfaces/http/router"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	// Amounts are JSON numbers on the wire, as stored documents have them
	decimal.MarshalJSONWithoutQuotes = true

	ctx := context.Background()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer shutdownTelemetry(log, tp, mp, lp)

	log = telemetry.NewBridgedLogger(log, telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		LoggerProvider: lp,
		Level:          logger.ParseLevel(cfg.Log.Level),
	}))

	log.Info("Starting customer portal",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("store", cfg.Store.Backend),
		zap.String("sequence", cfg.Sequence.Backend),
	)

	// Record store, sequence and idempotency
	backends, err := openBackends(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open record store", zap.Error(err))
	}
	defer backends.close(log)

	idempotency, err := cache.NewIdempotencyStoreFactory(cfg.Idempotency, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	metrics, err := telemetry.NewPortalMetrics(telemetry.PortalMetricsConfig{
		Meter:  mp.Meter("portal"),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to create portal metrics", zap.Error(err))
	}

	// Portal services
	opts := portal.Options{
		UnitOfWork:        persistence.NewUnitOfWork(backends.store, backends.sequence, log),
		Idempotency:       idempotency,
		IdempotencyTTL:    cfg.Idempotency.TTL,
		Metrics:           metrics,
		Logger:            log,
		StrictTransitions: cfg.Portal.StrictTransitions,
		OrganizationID:    cfg.Portal.OrganizationID,
		CurrencySymbol:    cfg.Portal.CurrencySymbol,
		Locale:            cfg.Portal.Locale,
	}
	handlers := router.PortalHandlers{
		Profile:     handler.NewProfileHandler(portal.NewProfileService(opts)),
		Quote:       handler.NewQuoteHandler(portal.NewQuoteService(opts)),
		Invoice:     handler.NewInvoiceHandler(portal.NewInvoiceService(opts), portal.NewPaymentService(opts)),
		ItemRequest: handler.NewItemRequestHandler(portal.NewItemRequestService(opts)),
	}

	// HTTP
	engine := router.NewEngine(cfg, log, router.WithMeterProvider(mp))
	router.RegisterHealth(engine, handler.NewHealthHandler(cfg.App.Name, backends.checks...))
	routes := router.NewPortalRoutes(handlers, router.PortalAuth{
		Validator:    auth.NewJWTService(cfg.JWT),
		CustomerRole: cfg.Portal.CustomerRole,
		AdminRoles:   router.AdminRoles(cfg.Portal),
		Logger:       log,
	})
	router.NewRouter(engine).Register(routes).Setup()
	log.Info("Portal routes registered", zap.Int("routes", routes.RouteCount()))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}

// backends are the storage pieces behind the unit of work
type backends struct {
	store    shared.RecordStore
	sequence shared.Sequence
	checks   []handler.HealthCheck
	closers  []func() error
}

func (b *backends) close(log *zap.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Error("Error closing backend", zap.Error(err))
		}
	}
}

// openBackends opens the configured record store and sequence
func openBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{}

	var db *persistence.Database
	openDB := func() (*persistence.Database, error) {
		if db != nil {
			return db, nil
		}
		var err error
		db, err = openDatabase(cfg, log)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		b.checks = append(b.checks, handler.HealthCheck{
			Name:  "database",
			Check: func(ctx context.Context) error { return db.Ping() },
		})
		return db, nil
	}

	switch cfg.Store.Backend {
	case config.StoreBackendDatabase:
		d, err := openDB()
		if err != nil {
			return nil, err
		}
		b.store = persistence.NewGormRecordStore(d.DB)
	case config.StoreBackendBadger:
		store, err := persistence.OpenBadgerRecordStore(cfg.Store.BadgerDir, log)
		if err != nil {
			return nil, err
		}
		b.store = store
		b.closers = append(b.closers, store.Close)
	case config.StoreBackendS3:
		client, err := storage.NewS3Client(ctx, &cfg.Storage)
		if err != nil {
			return nil, err
		}
		store, err := storage.NewS3RecordStore(client, cfg.Storage.Bucket, cfg.Storage.Prefix, storage.WithLogger(log))
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		b.store = store
	case config.StoreBackendMemory:
		log.Warn("Using in-memory record store; data is lost on restart")
		b.store = persistence.NewMemoryRecordStore()
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	switch cfg.Sequence.Backend {
	case "", config.SequenceBackendStore:
	case config.SequenceBackendDatabase:
		d, err := openDB()
		if err != nil {
			return nil, err
		}
		b.sequence = persistence.NewGormSequence(d.DB)
	case config.SequenceBackendRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		b.checks = append(b.checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
		b.sequence = cache.NewRedisSequence(client, "")
	default:
		return nil, fmt.Errorf("unsupported sequence backend %q", cfg.Sequence.Backend)
	}

	return b, nil
}

// openDatabase connects gorm with zap logging and optional otel tracing.
// sqlite databases get their tables created here; postgres uses cmd/migrate.
func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create sqlite tables: %w", err)
		}
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbSystem := "postgresql"
		if cfg.Database.Driver == config.DriverSQLite {
			dbSystem = "sqlite"
		}
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        dbSystem,
		}, log)
		if err := plugin.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}
	return db, nil
}

func shutdownTelemetry(log *zap.Logger, tp *telemetry.TracerProvider, mp *telemetry.MeterProvider, lp *telemetry.LoggerProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := lp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
	if err := mp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
}
