package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultRequestTimeout    = 10 * time.Second
	defaultMaxBodyBytes      = 64 * 1024
	defaultShippingLocale    = "es-AR"
	defaultShippingPerMinute = 120
	defaultShippingBurst     = 20
	defaultMetricsPath       = "/metrics"
	defaultServiceName       = "gld-shipping-api"
	defaultEnvironment       = "local"
	defaultLogLevel          = "info"
	defaultBuildVersion      = "dev"
	defaultBuildCommit       = "unknown"
	shippingPolicyBreakdown  = "breakdown"
	shippingPolicyRanked     = "ranked"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server        ServerConfig
	Shipping      ShippingConfig
	RateLimits    RateLimitConfig
	Metrics       MetricsConfig
	Observability ObservabilityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// ShippingConfig points the rate engine at its tariffs. An empty RatesFile selects the
// embedded defaults; an empty Policy keeps the one declared in the rate file.
type ShippingConfig struct {
	RatesFile string
	Policy    string
	Locale    string
}

// RateLimitConfig controls request throttling. Zero disables the limiter.
type RateLimitConfig struct {
	ShippingPerMinute int
	ShippingBurst     int
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// ObservabilityConfig labels logs, traces and metrics.
type ObservabilityConfig struct {
	ServiceName  string
	Environment  string
	LogLevel     string
	BuildVersion string
	BuildCommit  string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides and
// environment variables (dotenv < OS env < explicit env map).
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:           stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:    durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "API_SERVER_REQUEST_TIMEOUT", defaultRequestTimeout),
			MaxBodyBytes:   int64(intWithDefault(lookup, "API_SERVER_MAX_BODY_BYTES", defaultMaxBodyBytes)),
		},
		Shipping: ShippingConfig{
			RatesFile: strings.TrimSpace(stringWithDefault(lookup, "API_SHIPPING_RATES_FILE", "")),
			Policy:    strings.ToLower(strings.TrimSpace(stringWithDefault(lookup, "API_SHIPPING_POLICY", ""))),
			Locale:    strings.TrimSpace(stringWithDefault(lookup, "API_SHIPPING_LOCALE", defaultShippingLocale)),
		},
		RateLimits: RateLimitConfig{
			ShippingPerMinute: intWithDefault(lookup, "API_RATELIMIT_SHIPPING_PER_MIN", defaultShippingPerMinute),
			ShippingBurst:     intWithDefault(lookup, "API_RATELIMIT_SHIPPING_BURST", defaultShippingBurst),
		},
		Metrics: MetricsConfig{
			Enabled: boolWithDefault(lookup, "API_METRICS_ENABLED", true),
			Path:    stringWithDefault(lookup, "API_METRICS_PATH", defaultMetricsPath),
		},
		Observability: ObservabilityConfig{
			ServiceName:  stringWithDefault(lookup, "API_SERVICE_NAME", defaultServiceName),
			Environment:  strings.ToLower(stringWithDefault(lookup, "API_ENVIRONMENT", defaultEnvironment)),
			LogLevel:     strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
			BuildVersion: strings.TrimSpace(stringWithDefault(lookup, "API_BUILD_VERSION", defaultBuildVersion)),
			BuildCommit:  strings.TrimSpace(stringWithDefault(lookup, "API_BUILD_COMMIT_SHA", defaultBuildCommit)),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port <= 0 || port > 65535 {
		missing = append(missing, "Server.Port")
	}
	if cfg.Server.ReadTimeout <= 0 {
		missing = append(missing, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		missing = append(missing, "Server.WriteTimeout")
	}
	if cfg.Server.RequestTimeout <= 0 {
		missing = append(missing, "Server.RequestTimeout")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		missing = append(missing, "Server.MaxBodyBytes")
	}
	switch cfg.Shipping.Policy {
	case "", shippingPolicyBreakdown, shippingPolicyRanked:
	default:
		missing = append(missing, "Shipping.Policy")
	}
	if cfg.Shipping.Locale == "" {
		missing = append(missing, "Shipping.Locale")
	}
	if cfg.RateLimits.ShippingPerMinute < 0 {
		missing = append(missing, "RateLimits.ShippingPerMinute")
	}
	if cfg.RateLimits.ShippingBurst < 0 {
		missing = append(missing, "RateLimits.ShippingBurst")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		missing = append(missing, "Metrics.Path")
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		missing = append(missing, "Observability.ServiceName")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
