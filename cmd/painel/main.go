package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"painel/internal/amqp"
	"painel/internal/backend"
	"painel/internal/cache"
	"painel/internal/cli"
	"painel/internal/core"
	"painel/internal/dataset"
	apphttp "painel/internal/http"
	"painel/internal/log"
	"painel/internal/services"
	"painel/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	datasets := cache.NewLRUCache[*core.Dataset](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	caches.Register(datasets)
	caches.StartCleanup(time.Minute)

	store := dataset.NewStore(result.Backend, datasets, logger)
	dashboard := services.NewDashboard(store, services.NewDueBucketer(nil, cfg.Location()))
	srv := apphttp.NewServer(":"+cfg.Port, dashboard, store, apphttp.Options{Logger: logger})

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, cache refreshes on TTL only", log.FieldError, err)
			amqpClient = nil
		}
	} else {
		logger.Info("AMQP disabled - cache refreshes on TTL only")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := result.Close(); err != nil {
			logger.Error("Backend close error", log.FieldError, err)
		}
	})

	if amqpClient != nil {
		listener := worker.NewRefreshListener(store, logger)
		go func() {
			if err := listener.Listen(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Refresh consumption stopped", log.FieldError, err)
			}
		}()
	}

	// warm the cache so the first request does not pay for the load
	go func() {
		if _, err := store.Load(ctx); err != nil {
			logger.Warn("Initial dataset load failed", log.FieldError, err)
		}
	}()

	logger.Info("Starting painel server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldSource, store.Key())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
