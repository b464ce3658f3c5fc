// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultPort                = 8080
	DefaultJWTAlgorithm        = "HS256"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "json"
	DefaultBackendTimeout      = 10 * time.Second
	DefaultRateLimitWindow     = 15 * time.Minute
	DefaultRateLimitMax        = 100
	DefaultRateLimitMaxAuth    = 1000
	DefaultRateLimitAlgorithm  = "fixed_window"
	DefaultMetricsPort         = 9090
	DefaultTracingSamplingRate = 1.0
)

// RateLimitTier configures one rate-limiting tier.
type RateLimitTier struct {
	// Window is the fixed window duration.
	Window time.Duration

	// MaxRequests is the ceiling within the window.
	MaxRequests int
}

// Config holds the gateway's runtime configuration. It is loaded once at
// startup and treated as immutable afterwards.
type Config struct {
	// Port is the listening port for the public HTTP server.
	Port int

	// BackendURL is the base URL of the upstream domain backend.
	BackendURL string

	// BackendTimeout bounds every upstream call.
	BackendTimeout time.Duration

	// JWTSecret is the pre-shared token-signing secret.
	JWTSecret string

	// JWTAlgorithm is the allowed signing algorithm.
	JWTAlgorithm string

	// LogLevel and LogFormat configure the structured logger.
	LogLevel  string
	LogFormat string

	// AnonymousLimit is the per-source-address tier.
	AnonymousLimit RateLimitTier

	// IdentityLimit is the per-authenticated-identity tier.
	IdentityLimit RateLimitTier

	// RateLimitAlgorithm selects the identity tier's limiter algorithm
	// (fixed_window, token_bucket, or none). The anonymous tier always
	// uses the fixed window so its counters can live in a shared store.
	RateLimitAlgorithm string

	// RedisAddr selects the distributed rate-limit store when non-empty.
	RedisAddr string

	// CircuitBreakerEnabled wraps backend calls in a circuit breaker.
	CircuitBreakerEnabled bool

	// PolicyFile optionally overrides promotion policy thresholds.
	PolicyFile string

	// MetricsEnabled exposes Prometheus metrics on MetricsPort.
	MetricsEnabled bool
	MetricsPort    int

	// Tracing configuration.
	TracingEnabled      bool
	TracingOTLPEndpoint string
	TracingSamplingRate float64
}

// Load reads configuration from the environment. Missing required variables
// are reported together in a single error.
func Load() (*Config, error) {
	var missing []string
	requireEnv := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		Port:           envInt("PORT", DefaultPort),
		BackendURL:     requireEnv("BACKEND_URL"),
		BackendTimeout: envDuration("BACKEND_TIMEOUT", DefaultBackendTimeout),
		JWTSecret:      requireEnv("JWT_SECRET"),
		JWTAlgorithm:   envString("JWT_ALGORITHM", DefaultJWTAlgorithm),
		LogLevel:       envString("LOG_LEVEL", DefaultLogLevel),
		LogFormat:      envString("LOG_FORMAT", DefaultLogFormat),
		AnonymousLimit: RateLimitTier{
			Window:      envMillis("RATE_LIMIT_WINDOW_MS", DefaultRateLimitWindow),
			MaxRequests: envInt("RATE_LIMIT_MAX_REQUESTS", DefaultRateLimitMax),
		},
		IdentityLimit: RateLimitTier{
			Window:      envMillis("RATE_LIMIT_WINDOW_MS", DefaultRateLimitWindow),
			MaxRequests: envInt("RATE_LIMIT_MAX_AUTH_REQUESTS", DefaultRateLimitMaxAuth),
		},
		RateLimitAlgorithm:    envString("RATE_LIMIT_ALGORITHM", DefaultRateLimitAlgorithm),
		RedisAddr:             os.Getenv("RATE_LIMIT_REDIS_ADDR"),
		CircuitBreakerEnabled: envBool("CIRCUIT_BREAKER_ENABLED", false),
		PolicyFile:            os.Getenv("PROMOTION_POLICY_FILE"),
		MetricsEnabled:        envBool("METRICS_ENABLED", false),
		MetricsPort:           envInt("METRICS_PORT", DefaultMetricsPort),
		TracingEnabled:        envBool("TRACING_ENABLED", false),
		TracingOTLPEndpoint:   os.Getenv("TRACING_OTLP_ENDPOINT"),
		TracingSamplingRate:   envFloat("TRACING_SAMPLING_RATE", DefaultTracingSamplingRate),
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants beyond required presence.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("backend URL must be http or https: %q", c.BackendURL)
	}
	if c.JWTAlgorithm != "HS256" && c.JWTAlgorithm != "HS384" && c.JWTAlgorithm != "HS512" {
		return fmt.Errorf("unsupported JWT algorithm: %q", c.JWTAlgorithm)
	}
	if c.AnonymousLimit.Window <= 0 || c.IdentityLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.AnonymousLimit.MaxRequests <= 0 || c.IdentityLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate limit ceiling must be positive")
	}
	switch c.RateLimitAlgorithm {
	case "", "fixed_window", "token_bucket", "none":
	default:
		return fmt.Errorf("unsupported rate limit algorithm: %q", c.RateLimitAlgorithm)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envMillis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
