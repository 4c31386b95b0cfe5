// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables (optionally backed by a YAML
// file) with sensible defaults and validates all settings on startup to fail fast
// on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Export   ExportConfig
	Cache    CacheConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// AppConfig holds application identity settings.
type AppConfig struct {
	// Name is reported by the API info endpoint (default: catalog-api)
	Name string `env:"APP_NAME" default:"catalog-api"`

	// Version is reported by the API info and health endpoints
	Version string `env:"APP_VERSION" default:"1.0.0"`

	// Env is development or production. Development responses include
	// technical error detail.
	Env string `env:"APP_ENV" envAlt:"NODE_ENV" default:"development"`

	// APIPrefix is the route prefix for resource endpoints
	APIPrefix string `env:"API_PREFIX" default:"/api/v1"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 3000)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"3000"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, exports are unbounded)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-streaming requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxBodySize caps JSON request bodies in bytes (default: 10MB)
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"10485760"`

	// CompressMinSize is the smallest response gzip will compress (default: 1024)
	CompressMinSize int `env:"SERVER_COMPRESS_MIN_SIZE" default:"1024"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ExportConfig holds streaming export settings.
type ExportConfig struct {
	// DefaultLimit is the bulk export row cap when none is given (default: 100)
	DefaultLimit int `env:"EXPORT_DEFAULT_LIMIT" default:"100"`

	// MaxLimit is the largest row cap a client may request (default: 1000000)
	MaxLimit int `env:"EXPORT_MAX_LIMIT" default:"1000000"`

	// CompanyPageSize is the per-company export page size default (default: 1000)
	CompanyPageSize int `env:"EXPORT_COMPANY_PAGE_SIZE" default:"1000"`

	// FlushEvery is the number of rows written between flushes (default: 1000)
	FlushEvery int `env:"EXPORT_FLUSH_EVERY" default:"1000"`

	// MaxConcurrent is the maximum number of simultaneous export sessions (default: 8)
	MaxConcurrent int `env:"EXPORT_MAX_CONCURRENT" default:"8"`

	// MaxWaitTime is how long a request waits for an export slot (default: 10s)
	MaxWaitTime time.Duration `env:"EXPORT_MAX_WAIT_TIME" default:"10s"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	// Enabled controls whether GET responses are cached (default: true)
	Enabled bool `env:"CACHE_ENABLED" default:"true"`

	// ShortTTL is used for stats endpoints (default: 1m)
	ShortTTL time.Duration `env:"CACHE_SHORT_TTL" default:"1m"`

	// MediumTTL is used for list and lookup endpoints (default: 5m)
	MediumTTL time.Duration `env:"CACHE_MEDIUM_TTL" default:"5m"`

	// LongTTL is used for rarely changing lookups (default: 15m)
	LongTTL time.Duration `env:"CACHE_LONG_TTL" default:"15m"`

	// MaxEntries caps the number of cached responses (default: 1000)
	MaxEntries int `env:"CACHE_MAX_ENTRIES" default:"1000"`

	// PurgeSchedule is the cron spec for expired entry cleanup (default: @every 1m)
	PurgeSchedule string `env:"CACHE_PURGE_SCHEDULE" default:"@every 1m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// Window is the rate limit window (default: 15m)
	Window time.Duration `env:"RATE_LIMIT_WINDOW" default:"15m"`

	// Requests is the general limit per IP per window (default: 100)
	Requests int `env:"RATE_LIMIT_MAX_REQUESTS" default:"100"`

	// LoginRequests is the login limit per IP per window (default: 5)
	LoginRequests int `env:"RATE_LIMIT_LOGIN" default:"5"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects mutating routes with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// BcryptCost is the password hashing cost (default: 12)
	BcryptCost int `env:"BCRYPT_ROUNDS" default:"12"`

	// CORSOrigins is a comma-separated list of browser origins allowed to
	// call the API; "*" allows any origin (default: local dev servers)
	CORSOrigins []string `env:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:3001,http://localhost:5173"`

	// CORSCredentials allows cookies and Authorization on cross-origin calls (default: true)
	CORSCredentials bool `env:"CORS_CREDENTIALS" default:"true"`

	// CORSMaxAge is how long browsers may cache a preflight (default: 10m)
	CORSMaxAge time.Duration `env:"CORS_MAX_AGE" default:"10m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled mounts the metrics endpoint (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Path is where metrics are served (default: /metrics)
	Path string `env:"METRICS_PATH" default:"/metrics"`

	// Namespace prefixes every metric name (default: catalog)
	Namespace string `env:"METRICS_NAMESPACE" default:"catalog"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// IsDevelopment reports whether the application runs in development mode.
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
