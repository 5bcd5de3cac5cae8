// Package cli holds the start-up steps shared by the homesplit binaries and
// the offline settle command.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"homesplit/internal/amqp"
	"homesplit/internal/config"
	"homesplit/internal/log"
	"homesplit/internal/ports"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from cfg and makes it the default.
// An unparsable level falls back to info; Validate reports it.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	level, _ := log.ParseLevel(cfg.LogLevel)
	lc := log.DefaultConfig()
	lc.Level = level
	lc.Format = cfg.LogFormat
	lc.Component = component
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and exits the process when it
// is invalid.
func LoadAndValidateConfig(component string) (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitPublisher connects to the broker when AMQP_URL is set. It returns a
// nil publisher, never an error, when the broker is off or unreachable so
// callers keep working without the sheets export. The returned func
// releases the connection.
func InitPublisher(cfg *config.Config, logger *log.Logger) (ports.SyncPublisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - records will not sync to Google Sheets")
		return nil, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without sheets sync", log.FieldError, err)
		return nil, func() {}
	}
	logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	}
}

// Fatal logs err and exits.
func Fatal(logger *log.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{log.FieldError, err}, args...)...)
	os.Exit(1)
}
