// Package config provides centralized configuration management for the dataset loader.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Dataset  DatasetConfig
	Kaggle   KaggleConfig
	Database DatabaseConfig
	Server   ServerConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// DatasetConfig holds the dataset to fetch and how its CSV files are loaded.
type DatasetConfig struct {
	// Name is the dataset identifier in owner/name form (required)
	Name string `env:"DATASET_NAME" envAlt:"KAGGLE_DATASET" required:"true"`

	// Dir is the local storage directory (default: data/raw)
	Dir string `env:"DATA_DIR" default:"data/raw"`

	// Unzip extracts the downloaded archive into Dir (default: true)
	Unzip bool `env:"DATASET_UNZIP" default:"true"`

	// ParseDates interprets DateColumn as a timestamp column (default: true)
	ParseDates bool `env:"DATASET_PARSE_DATES" default:"true"`

	// DateColumn is the column rows are sorted by (default: Date)
	DateColumn string `env:"DATASET_DATE_COLUMN" default:"Date"`

	// SourceColumn receives each file's base name (default: Ticker)
	SourceColumn string `env:"DATASET_SOURCE_COLUMN" default:"Ticker"`

	// Sort is one of always, parsed, never (default: always)
	Sort string `env:"DATASET_SORT" default:"always"`

	// OnCollision is one of overwrite, fail (default: overwrite)
	OnCollision string `env:"DATASET_ON_COLLISION" default:"overwrite"`

	// Partial keeps loading after a file fails and reports failures (default: false)
	Partial bool `env:"DATASET_PARTIAL" default:"false"`
}

// KaggleConfig holds remote dataset host settings.
// Username and Key fall back to kaggle.json in ConfigDir when unset.
type KaggleConfig struct {
	Username string `env:"KAGGLE_USERNAME"`
	Key      string `env:"KAGGLE_KEY"`

	// ConfigDir is the directory holding kaggle.json (default: ~/.kaggle)
	ConfigDir string `env:"KAGGLE_CONFIG_DIR"`

	// APIURL is the API base URL (default: https://www.kaggle.com/api/v1)
	APIURL string `env:"KAGGLE_API_URL" default:"https://www.kaggle.com/api/v1"`

	// Timeout bounds a single API request including the archive download (default: 10m)
	Timeout time.Duration `env:"KAGGLE_TIMEOUT" default:"10m"`
}

// DatabaseConfig holds optional Postgres export settings.
// Export is skipped when URL is empty.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// TablePrefix is prepended to every exported table name (default: dataset_)
	TablePrefix string `env:"DB_TABLE_PREFIX" default:"dataset_"`
}

// ServerConfig holds settings for the optional table browser.
type ServerConfig struct {
	// Enabled starts the HTTP browser after loading (default: false)
	Enabled bool `env:"SERVER_ENABLED" default:"false"`

	Host string `env:"SERVER_HOST" default:"127.0.0.1"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`

	// PageSize is the default number of rows per page (default: 100)
	PageSize int `env:"SERVER_PAGE_SIZE" default:"100"`
}

// SecurityConfig holds settings for the reload endpoint.
type SecurityConfig struct {
	// RequireAPIKey protects POST /api/reload with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// ExportEnabled reports whether loaded tables should be copied into Postgres.
func (c *DatabaseConfig) ExportEnabled() bool {
	return c.URL != ""
}
