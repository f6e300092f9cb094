package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string
	APIBaseURL  string

	// Database
	SQLiteDBPath string

	// Client session
	SessionDir string

	// Auth
	JWTSecret    string
	TokenTTL     time.Duration
	DemoPassword string

	// Timing
	MockLatency      time.Duration
	RequestTimeout   time.Duration
	CategoryCacheTTL time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID    string
	GoogleSheetName        string
	GoogleJournalSheetName string
	GoogleCredentialsJSON  string
	GoogleCredentialsFile  string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8081"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expenses.db"),
		SessionDir:   getEnv("SESSION_DIR", defaultSessionDir()),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		TokenTTL:     getEnvDuration("TOKEN_TTL", 24*time.Hour),
		DemoPassword: getEnv("DEMO_PASSWORD", "demo123"),

		MockLatency:      getEnvDuration("MOCK_LATENCY", 0),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		CategoryCacheTTL: getEnvDuration("CATEGORY_CACHE_TTL", 10*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expenses"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		GoogleSpreadsheetID:    getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:        getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleJournalSheetName: getEnv("GOOGLE_JOURNAL_SHEET_NAME", "Journal"),
		GoogleCredentialsJSON:  getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		GoogleCredentialsFile:  getEnv("GOOGLE_CREDENTIALS_FILE", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{BackendMemory, BackendSQLite, BackendRemote}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == BackendRemote {
		if parsedURL, err := url.Parse(c.APIBaseURL); err != nil || parsedURL.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s'", c.APIBaseURL))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT secret must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid token TTL %v: must be positive", c.TokenTTL))
	}
	if c.MockLatency < 0 {
		errors = append(errors, fmt.Sprintf("invalid mock latency %v: must not be negative", c.MockLatency))
	}
	if c.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be positive", c.RequestTimeout))
	} else if c.RequestTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at most 5 minutes", c.RequestTimeout))
	}
	if c.CategoryCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid category cache TTL %v: must not be negative", c.CategoryCacheTTL))
	}

	// Validate AMQP URL if provided
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

	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SheetsConfigured reports whether a spreadsheet and credentials are set.
func (c *Config) SheetsConfigured() bool {
	return c.GoogleSpreadsheetID != "" && (c.GoogleCredentialsJSON != "" || c.GoogleCredentialsFile != "")
}

// ValidateSheets lists what is missing for the Google Sheets export.
func (c *Config) ValidateSheets() error {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required")
	}
	if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
		errors = append(errors, "either GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE must be provided")
	}
	if len(errors) > 0 {
		return fmt.Errorf("sheets configuration incomplete:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func defaultSessionDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "expensetracker")
	}
	return ".expensetracker"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
