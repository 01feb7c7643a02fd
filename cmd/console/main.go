package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/civic-registry/console/internal/app"
	"github.com/civic-registry/console/internal/audit"
	"github.com/civic-registry/console/internal/console"
	"github.com/civic-registry/console/internal/observability"
	"github.com/civic-registry/console/internal/platform/cache"
	"github.com/civic-registry/console/internal/platform/db"
	"github.com/civic-registry/console/internal/registry"
	"github.com/civic-registry/console/internal/screens"
	"github.com/civic-registry/console/internal/shared"
	"github.com/civic-registry/console/internal/view"
	"github.com/civic-registry/console/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	catalog, err := screens.Load(cfg.ScreensFile)
	if err != nil {
		logger.Error("load screens", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "registry_console", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	client, err := registry.NewClient(registry.Config{
		BaseURL: cfg.RegistryAPIURL,
		Token:   cfg.RegistryAPIToken,
		Timeout: cfg.RegistryAPITimeout,
		RPS:     cfg.RegistryAPIRPS,
	})
	if err != nil {
		logger.Error("registry client", slog.Any("error", err))
		os.Exit(1)
	}
	if err := client.Ping(ctx); err != nil {
		logger.Warn("registry ping", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()
	options, err := registry.NewOptionStore(registry.OptionStoreConfig{
		Client:    client,
		Redis:     redisClient,
		LocalTTL:  cfg.OptionsLocalTTL,
		SharedTTL: cfg.OptionsCacheTTL,
		Observer:  metrics,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("option store", slog.Any("error", err))
		os.Exit(1)
	}

	auditStore, closeAudit := openAudit(ctx, cfg, logger)
	defer closeAudit()

	handler, err := console.NewHandler(console.Config{
		Logger:    logger,
		Catalog:   catalog,
		Client:    client,
		Options:   options,
		Templates: templates,
		CSRF:      csrfManager,
		Audit:     auditStore,
		Observer:  metrics,
	})
	if err != nil {
		logger.Error("console handler", slog.Any("error", err))
		os.Exit(1)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Console:        handler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
		Ready:          readiness(client, redisClient),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Int("screens", len(catalog.Names())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// openAudit connects the audit log when a DSN is configured. Without one,
// or when Postgres is unreachable, mutations are not recorded.
func openAudit(ctx context.Context, cfg *app.Config, logger *slog.Logger) (audit.Store, func()) {
	if !cfg.AuditEnabled() {
		return audit.NopStore{}, func() {}
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Warn("audit log disabled", slog.Any("error", err))
		return audit.NopStore{}, func() {}
	}
	store := audit.NewPGStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Warn("audit schema", slog.Any("error", err))
	}
	return store, pool.Close
}

func readiness(client *registry.Client, rdb redis.UniversalClient) func(r *http.Request) error {
	return func(r *http.Request) error {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		return client.Ping(ctx)
	}
}
