package main

import (
	"context"
	"os/signal"
	"syscall"

	"homesplit/internal/amqp"
	"homesplit/internal/backend"
	"homesplit/internal/cli"
	"homesplit/internal/log"
	"homesplit/internal/metrics"
	"homesplit/internal/services"
	"homesplit/internal/sheets/google"
	"homesplit/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting sheets-worker")
	if err := cfg.ValidateExporter(); err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, backend.Config{Type: backend.SQLite, SQLiteDBPath: cfg.SQLiteDBPath}, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to open backend", err, "path", cfg.SQLiteDBPath)
	}
	defer store.Close()

	exporter, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		ChargesSheet:    cfg.GoogleChargesSheet,
		ClosuresSheet:   cfg.GoogleClosuresSheet,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	processor := services.NewSyncProcessor(store, exporter, logger, metrics.New())
	if err := worker.NewSyncWorker(client, processor, logger).Run(ctx); err != nil {
		cli.Fatal(logger, "Message consumption failed", err)
	}
	logger.Info("Worker shutdown complete")
}
