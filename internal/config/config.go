package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"painel/internal/core"
	"painel/internal/log"
)

// Data backends selectable with DATA_BACKEND.
const (
	BackendXLSX   = "xlsx"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var validBackends = []string{BackendXLSX, BackendSheets, BackendSQLite, BackendMemory}

type Config struct {
	// HTTP Server
	Port string

	// Extracts
	DataBackend     string
	DataDir         string
	RealizedFile    string
	ReceivablesFile string
	ScheduledFile   string
	ForecastFile    string

	// Database
	SQLiteDBPath string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID string

	// Dataset cache
	CacheTTL  time.Duration
	CacheSize int

	Timezone       string
	ImportInterval time.Duration
	LogLevel       string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:     getEnv("DATA_BACKEND", BackendXLSX),
		DataDir:         getEnv("DATA_DIR", "./data"),
		RealizedFile:    getEnv("REALIZED_FILE", "PagamentosRealizadosRelatorio.xlsx"),
		ReceivablesFile: getEnv("RECEIVABLES_FILE", "ContasRecebidaseaReceber.xlsx"),
		ScheduledFile:   getEnv("SCHEDULED_FILE", "PagamentosaRealizarRelatorio.xlsx"),
		ForecastFile:    getEnv("FORECAST_FILE", "PrevisaoFaturamento.xlsx"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/painel.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "painel"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_refreshed"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),

		CacheTTL:  getEnvDuration("CACHE_TTL", 10*time.Minute),
		CacheSize: getEnvInt("CACHE_SIZE", 4),

		Timezone:       getEnv("TIMEZONE", "America/Sao_Paulo"),
		ImportInterval: getEnvDuration("IMPORT_INTERVAL", 15*time.Minute),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

// Files maps each dataset to its extract file name inside DataDir.
func (c *Config) Files() map[core.Kind]string {
	return map[core.Kind]string{
		core.KindRealized:    c.RealizedFile,
		core.KindReceivables: c.ReceivablesFile,
		core.KindScheduled:   c.ScheduledFile,
		core.KindForecast:    c.ForecastFile,
	}
}

// Location resolves TIMEZONE, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AMQPEnabled reports whether refresh notifications are configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendXLSX {
		if info, err := os.Stat(c.DataDir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("data directory does not exist: %s", c.DataDir))
		}
		for _, kind := range core.Kinds() {
			if strings.TrimSpace(c.Files()[kind]) == "" {
				errors = append(errors, fmt.Sprintf("file name for %s cannot be empty", kind))
			}
		}
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.DataBackend == BackendSheets && strings.TrimSpace(c.GoogleSpreadsheetID) == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
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

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.ImportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid import interval %v: must be at least 1 second", c.ImportInterval))
	} else if c.ImportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid import interval %v: must be at most 24 hours", c.ImportInterval))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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
