package main

import (
	"context"
	"os/signal"
	"syscall"

	"homesplit/internal/backend"
	"homesplit/internal/cli"
	"homesplit/internal/log"
	"homesplit/internal/metrics"
	"homesplit/internal/services"
	"homesplit/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentRecurring)
	logger.Info("Starting recurring-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The worker shares state with the server through the database file.
	store, err := backend.Open(ctx, backend.Config{Type: backend.SQLite, SQLiteDBPath: cfg.SQLiteDBPath}, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to open backend", err, "path", cfg.SQLiteDBPath)
	}
	defer store.Close()

	publisher, closePublisher := cli.InitPublisher(cfg, logger)
	defer closePublisher()

	m := metrics.New()
	balances := services.NewBalanceService(store, store, store, cfg.BalanceCacheTTL, logger, m)
	charges := services.NewChargeService(store, store, store, publisher, balances, logger, m)
	processor := services.NewRecurringProcessor(store, charges, logger, m)

	if err := worker.NewRecurringWorker(processor, cfg.RecurringInterval, logger).Run(ctx); err != nil {
		cli.Fatal(logger, "Recurring worker failed", err)
	}
	logger.Info("Recurring-worker shutdown complete")
}
