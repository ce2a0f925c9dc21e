// Package config defines service configuration and its defaults.
package config

import "time"

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Env selects the log format: "dev" for console output, anything else for JSON.
	Env string `koanf:"env"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// ShutdownTimeout bounds graceful shutdown of the HTTP server and notification queue.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	Storage  StorageConfig  `koanf:"storage"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Redis    RedisConfig    `koanf:"redis"`
	Notify   NotifyConfig   `koanf:"notify"`
	Results  ResultsConfig  `koanf:"results"`
}

// StorageConfig picks the persistence backend.
type StorageConfig struct {
	Driver string `koanf:"driver"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string `koanf:"url"`
	MaxConns        int    `koanf:"max_conns"`
	MinConns        int    `koanf:"min_conns"`
	ConnectAttempts int    `koanf:"connect_attempts"`
}

// AuthConfig configures bearer-token verification.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	// Issuer, when set, must match the token's iss claim.
	Issuer string `koanf:"issuer"`
}

// RedisConfig enables notification dedupe when URL is set.
type RedisConfig struct {
	URL string `koanf:"url"`
}

// NotifyConfig sizes the notification dispatcher.
type NotifyConfig struct {
	QueueSize int           `koanf:"queue_size"`
	Workers   int           `koanf:"workers"`
	DedupeTTL time.Duration `koanf:"dedupe_ttl"`
}

// ResultsConfig holds the result announcement policy.
type ResultsConfig struct {
	PassThreshold int `koanf:"pass_threshold"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Addr:            ":8080",
		Env:             "prod",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		Storage:         StorageConfig{Driver: DriverPostgres},
		Database: DatabaseConfig{
			MaxConns:        20,
			MinConns:        2,
			ConnectAttempts: 5,
		},
		Notify: NotifyConfig{
			QueueSize: 256,
			Workers:   2,
			DedupeTTL: 24 * time.Hour,
		},
		Results: ResultsConfig{PassThreshold: 60},
	}
}
