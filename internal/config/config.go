// Package config provides centralized configuration management for the application.
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
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Host     HostConfig
	Authz    AuthzConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envDefault:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// DB_URL is accepted as a fallback for compatibility.
	URL string `env:"DATABASE_URL"`

	// AltURL is only read to back-fill URL.
	AltURL string `env:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" envDefault:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" envDefault:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`

	// AutoMigrate applies pending migrations on server start (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// UploadConfig holds CSV import settings.
type UploadConfig struct {
	// PlanInputName is the form field carrying the plan name (default: etlplan)
	PlanInputName string `env:"UPLOAD_PLAN_INPUT" envDefault:"etlplan"`

	// FileInputName is the form field carrying the CSV file (default: csvfile)
	FileInputName string `env:"UPLOAD_FILE_INPUT" envDefault:"csvfile"`

	// DelimiterInputName is the form field carrying the delimiter (default: csvdelimiter)
	DelimiterInputName string `env:"UPLOAD_DELIMITER_INPUT" envDefault:"csvdelimiter"`

	// DefaultDelimiter is used when the delimiter field is absent or empty (default: ,)
	DefaultDelimiter string `env:"UPLOAD_DEFAULT_DELIMITER" envDefault:","`

	// MaxFileSize is the advisory MAX_FILE_SIZE form value in bytes (default: 30000)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" envDefault:"30000"`

	// MaxRequestSize bounds the multipart request body in bytes (default: 32MB)
	MaxRequestSize int64 `env:"UPLOAD_MAX_REQUEST_SIZE" envDefault:"33554432"`

	// Encoding is the charset of uploaded files (default: utf-8)
	Encoding string `env:"UPLOAD_ENCODING" envDefault:"utf-8"`

	// MaxConcurrent is the maximum number of imports running at once (default: 1)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" envDefault:"1"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" envDefault:"30s"`

	// Timeout is the maximum duration for a single import (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"10m"`
}

// HostConfig holds settings of the host data layer the importer writes into.
type HostConfig struct {
	// Store selects the item store: postgres or memory (default: postgres)
	Store string `env:"HOST_STORE" envDefault:"postgres"`

	// ItemTypesPath is an optional YAML file with extra item types
	ItemTypesPath string `env:"HOST_ITEMTYPES_PATH"`

	// DocBaseURL is the API documentation base used in error citations
	DocBaseURL string `env:"HOST_API_DOC_URL"`

	// DefaultProfile is the session profile when the request does not carry one
	DefaultProfile string `env:"HOST_DEFAULT_PROFILE" envDefault:"super-admin"`

	// DefaultEntity is the active entity when the request does not carry one
	DefaultEntity int64 `env:"HOST_DEFAULT_ENTITY" envDefault:"0"`

	// Entities lists the entities sessions may write to (default: 0)
	Entities []int64 `env:"HOST_ENTITIES" envDefault:"0" envSeparator:","`
}

// AuthzConfig holds casbin model and policy locations.
// Empty paths fall back to the embedded defaults.
type AuthzConfig struct {
	ModelPath  string `env:"AUTHZ_MODEL_PATH"`
	PolicyPath string `env:"AUTHZ_POLICY_PATH"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" envDefault:"100"`

	// UploadLimit is requests per minute for upload endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" envDefault:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" envDefault:"true"`

	// RequireAPIKey rejects requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" envDefault:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS" envSeparator:","`

	// CSRFKey signs form tokens; a random key is generated when empty
	CSRFKey string `env:"SECURITY_CSRF_KEY"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// UsesPostgres reports whether the host store is backed by PostgreSQL.
func (c *HostConfig) UsesPostgres() bool {
	return c.Store == "" || c.Store == "postgres"
}
