// Package config loads postwatch configuration.
//
// Configuration is resolved in priority order: POSTWATCH_* environment
// variables, then a postwatch.toml file (working directory or
// ~/.postwatch/), then built-in defaults.
package config

// Config represents the postwatch configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Legacy   LegacyConfig   `mapstructure:"legacy"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig configures the SQLite ledger database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the ingestion gateway
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// ShutdownGraceSeconds bounds how long in-flight requests may run
	// after a termination signal before the listener is torn down.
	ShutdownGraceSeconds int `mapstructure:"shutdown_grace_seconds"`
}

// LegacyConfig configures the legacy MySQL migration source
type LegacyConfig struct {
	DSN        string  `mapstructure:"dsn"`          // go-sql-driver DSN for the old scrape database
	BatchSize  int     `mapstructure:"batch_size"`   // records fetched per checkpointed batch
	RatePerSec float64 `mapstructure:"rate_per_sec"` // ingest throttle; 0 = unlimited
}

// LogConfig configures logging output
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// DefaultServerPort is the gateway port when none is configured.
const DefaultServerPort = 8460
