package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"homesplit/internal/backend"
	"homesplit/internal/cli"
	"homesplit/internal/config"
	apphttp "homesplit/internal/http"
	"homesplit/internal/log"
	"homesplit/internal/metrics"
	"homesplit/internal/middleware/ratelimit"
	"homesplit/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	if err := run(cfg, logger); err != nil {
		cli.Fatal(logger, "Server error", err, "addr", cfg.Addr())
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	store, err := backend.Open(ctx, bcfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, closePublisher := cli.InitPublisher(cfg, logger)
	defer closePublisher()

	m := metrics.New()
	balances := services.NewBalanceService(store, store, store, cfg.BalanceCacheTTL, logger, m)
	charges := services.NewChargeService(store, store, store, publisher, balances, logger, m)
	deps := apphttp.Deps{
		Members:   services.NewMemberService(store, balances, logger),
		Charges:   charges,
		Recurring: services.NewRecurringProcessor(store, charges, logger, m),
		Balances:  balances,
		Closures:  services.NewClosureService(store, store, balances, publisher, logger, m),
		Backend:   store,
	}

	household, _ := cfg.Household()
	added, err := deps.Members.Seed(ctx, household)
	if err != nil {
		return err
	}
	if added > 0 {
		logger.Info("Seeded household", log.FieldMembers, added)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:           cfg.Addr(),
		RateLimit:      ratelimit.Policy{Requests: cfg.RateLimitRequests, Window: cfg.RateLimitWindow},
		TrustedProxies: cfg.TrustedProxies(),
		Logger:         logger,
		Metrics:        m,
	}, deps)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting homesplit server", "addr", cfg.Addr(), "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
