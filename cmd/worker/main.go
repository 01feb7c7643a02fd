package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civic-registry/console/internal/app"
	"github.com/civic-registry/console/internal/observability"
	"github.com/civic-registry/console/internal/platform/cache"
	"github.com/civic-registry/console/internal/registry"
	"github.com/civic-registry/console/internal/screens"
	"github.com/civic-registry/console/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	store, err := registry.NewOptionStore(registry.OptionStoreConfig{
		Client:    client,
		Redis:     redisClient,
		LocalTTL:  cfg.OptionsLocalTTL,
		SharedTTL: cfg.OptionsCacheTTL,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("option store", slog.Any("error", err))
		os.Exit(1)
	}

	jobMetrics := observability.NewJobMetrics(prometheus.DefaultRegisterer)
	optionsJob := jobs.NewOptionsJob(store, catalog.OptionQueries(), logger, jobMetrics)

	warmTask, err := jobs.NewWarmOptionsTask(jobs.WarmOptionsPayload{})
	if err != nil {
		logger.Error("build warm task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.OptionsWarmSchedule != "" {
		cron = append(cron, jobs.CronRegistration{Spec: cfg.OptionsWarmSchedule, Task: warmTask, Options: []asynq.Option{asynq.MaxRetry(3)}})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskWarmOptions, Handler: optionsJob.HandleWarm},
			{Type: jobs.TaskInvalidateOptions, Handler: optionsJob.HandleInvalidate},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: cfg.AppReadTimeout}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() { _ = metricsServer.Close() }()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
