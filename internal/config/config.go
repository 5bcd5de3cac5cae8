package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"homesplit/internal/core"
	"homesplit/internal/log"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	// YAML or TOML file preloaded into the memory backend
	SnapshotFile string

	// Household members created at startup, "id:Display Name" comma separated
	HouseholdSeed string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleChargesSheet       string
	GoogleClosuresSheet      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Workers
	RecurringInterval time.Duration

	// Balances and rate limiting
	BalanceCacheTTL   time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// Extra proxy CIDRs or IPs trusted for X-Forwarded-For, comma separated
	TrustedProxyList string

	// Logging
	LogLevel  string
	LogFormat string
}

var validBackends = []string{"memory", "sqlite"}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8081"),
		DataBackend:   getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/homesplit.db"),
		SnapshotFile:  getEnv("SNAPSHOT_FILE", ""),
		HouseholdSeed: getEnv("HOUSEHOLD_SEED", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "homesplit"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sheets_export"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleChargesSheet:       getEnv("GOOGLE_SHEET_NAME", "Charges"),
		GoogleClosuresSheet:      getEnv("GOOGLE_CLOSURE_SHEET_NAME", "Closures"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		RecurringInterval: getEnvDuration("RECURRING_INTERVAL", time.Hour),

		BalanceCacheTTL:   getEnvDuration("BALANCE_CACHE_TTL", 5*time.Minute),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		TrustedProxyList:  getEnv("TRUSTED_PROXIES", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate returns every configuration problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, b := range validBackends {
		if c.DataBackend == b {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.SnapshotFile != "" {
		if c.DataBackend != "memory" {
			errors = append(errors, "snapshot file can only be loaded into the memory backend")
		} else if _, err := os.Stat(c.SnapshotFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("snapshot file does not exist: %s", c.SnapshotFile))
		}
	}

	if _, err := c.Household(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RecurringInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at least 1 second", c.RecurringInterval))
	} else if c.RecurringInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at most 24 hours", c.RecurringInterval))
	}

	if c.BalanceCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid balance cache TTL %v: must not be negative", c.BalanceCacheTTL))
	}
	if c.RateLimitRequests < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request", c.RateLimitRequests))
	}
	if c.RateLimitWindow < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate limit window %v: must be at least 1 second", c.RateLimitWindow))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateExporter checks the settings the sheets worker needs on top of
// Validate.
func (c *Config) ValidateExporter() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the sheets worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the sheets worker")
	}
	if c.GoogleChargesSheet == "" || c.GoogleClosuresSheet == "" {
		errors = append(errors, "Google sheet names cannot be empty")
	}
	hasJSON := c.GoogleServiceAccountJSON != ""
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasJSON && !hasFile {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Household parses HouseholdSeed into member profiles.
func (c *Config) Household() ([]core.MemberProfile, error) {
	var out []core.MemberProfile
	for _, entry := range strings.Split(c.HouseholdSeed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, name, ok := strings.Cut(entry, ":")
		if !ok {
			name = id
		}
		p := core.MemberProfile{ID: core.Member(strings.TrimSpace(id)), DisplayName: strings.TrimSpace(name)}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid household seed entry '%s': %v", entry, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// TrustedProxies splits TrustedProxyList.
func (c *Config) TrustedProxies() []string {
	var out []string
	for _, p := range strings.Split(c.TrustedProxyList, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
