package main

import (
	"context"
	"errors"
	"os"
	"time"

	"painel/internal/amqp"
	"painel/internal/backend"
	"painel/internal/cli"
	"painel/internal/log"
	"painel/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)

	// the snapshot is the destination, so it can never be the source
	sourceCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if sourceCfg.Type == backend.SQLiteBackend {
		sourceCfg.Type = backend.XLSXBackend
	}
	source, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).
		CreateBackend(context.Background(), sourceCfg)
	if err != nil {
		logger.Error("Failed to initialize import source", log.FieldError, err, "backend", sourceCfg.Type)
		os.Exit(1)
	}
	defer source.Close()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher worker.Publisher
	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, imports will not be announced", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	} else {
		logger.Info("AMQP disabled - imports will not be announced")
	}

	importer := worker.NewImportWorker(source.Backend, repo, publisher, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Starting painel-worker",
		log.FieldSource, source.Backend.SourceName(),
		"db_path", cfg.SQLiteDBPath,
		"interval", cfg.ImportInterval.String())
	if err := importer.Run(ctx, cfg.ImportInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Import worker failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
