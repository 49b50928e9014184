package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/subscription"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Subscription store configuration
	Store subscription.Config

	// Annotation provider configuration
	Annotation AnnotationConfig

	// Currency conversion configuration
	Currency CurrencyConfig

	// Billing scheduler configuration
	Billing BillingConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// AnnotationConfig holds campaign annotation settings
type AnnotationConfig struct {
	// Provider selects the annotation backend: "chat" or "static"
	Provider string

	// Chat provider settings
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	// Static provider settings
	MaxTags int
}

// CurrencyConfig holds exchange rate settings
type CurrencyConfig struct {
	// Source selects the rate backend: "api" or "file"
	Source string

	// API source settings
	APIBaseURL string
	APITimeout time.Duration

	// File source settings
	RatesFile      string
	WatchRatesFile bool

	// Rate cache settings
	CacheTTL      time.Duration
	CacheSize     int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// BillingConfig holds billing scheduler settings
type BillingConfig struct {
	Enabled              bool
	TickPeriod           time.Duration
	Tolerance            time.Duration
	MaxConcurrentCharges int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Store:         loadStoreConfig(),
		Annotation:    loadAnnotationConfig(),
		Currency:      loadCurrencyConfig(),
		Billing:       loadBillingConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("BILLING_HOST", "0.0.0.0"),
		Port:            getEnv("BILLING_PORT", "8080"),
		ReadTimeout:     getEnvDuration("BILLING_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("BILLING_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("BILLING_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("BILLING_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// loadStoreConfig loads subscription store configuration from environment
func loadStoreConfig() subscription.Config {
	cfg := subscription.DefaultConfig()

	if storeType := getEnv("BILLING_STORE_TYPE", ""); storeType != "" {
		cfg.Type = storeType
	}
	if dsn := getEnv("BILLING_SQLITE_DSN", ""); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	return cfg
}

// loadAnnotationConfig loads annotation provider configuration from environment
func loadAnnotationConfig() AnnotationConfig {
	return AnnotationConfig{
		Provider: getEnv("BILLING_ANNOTATION_PROVIDER", "chat"),
		BaseURL:  getEnv("BILLING_CHAT_BASE_URL", ""),
		APIKey:   getEnv("BILLING_CHAT_API_KEY", ""),
		Model:    getEnv("BILLING_CHAT_MODEL", ""),
		Timeout:  getEnvDuration("BILLING_CHAT_TIMEOUT", 30*time.Second),
		MaxTags:  getEnvInt("BILLING_STATIC_MAX_TAGS", 5),
	}
}

// loadCurrencyConfig loads exchange rate configuration from environment
func loadCurrencyConfig() CurrencyConfig {
	return CurrencyConfig{
		Source:         getEnv("BILLING_RATE_SOURCE", "api"),
		APIBaseURL:     getEnv("BILLING_RATE_API_URL", ""),
		APITimeout:     getEnvDuration("BILLING_RATE_API_TIMEOUT", 10*time.Second),
		RatesFile:      getEnv("BILLING_RATES_FILE", ""),
		WatchRatesFile: getEnvBool("BILLING_RATES_FILE_WATCH", true),
		CacheTTL:       getEnvDuration("BILLING_RATE_CACHE_TTL", 15*time.Minute),
		CacheSize:      getEnvInt("BILLING_RATE_CACHE_SIZE", 64),
		RedisAddr:      getEnv("BILLING_REDIS_ADDR", ""),
		RedisPassword:  getEnv("BILLING_REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("BILLING_REDIS_DB", 0),
	}
}

// loadBillingConfig loads billing scheduler configuration from environment
func loadBillingConfig() BillingConfig {
	return BillingConfig{
		Enabled:              getEnvBool("BILLING_SCHEDULER_ENABLED", true),
		TickPeriod:           getEnvDuration("BILLING_TICK_PERIOD", time.Minute),
		Tolerance:            getEnvDuration("BILLING_TOLERANCE", time.Minute),
		MaxConcurrentCharges: getEnvInt("BILLING_MAX_CONCURRENT_CHARGES", 8),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           getEnv("BILLING_LOG_LEVEL", "info"),
		MetricsEnabled:     getEnvBool("BILLING_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("BILLING_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("BILLING_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("BILLING_OTEL_SERVICE_NAME", "billing-sim"),
		OTelServiceVersion: getEnv("BILLING_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("BILLING_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Store.Type {
	case "memory":
	case "sqlite":
		if c.Store.SQLiteDSN == "" {
			return fmt.Errorf("sqlite DSN is required for sqlite store")
		}
	default:
		return fmt.Errorf("invalid store type: %s (must be memory or sqlite)", c.Store.Type)
	}

	switch c.Annotation.Provider {
	case "chat", "static":
	default:
		return fmt.Errorf("invalid annotation provider: %s (must be chat or static)", c.Annotation.Provider)
	}

	switch c.Currency.Source {
	case "api":
	case "file":
		if c.Currency.RatesFile == "" {
			return fmt.Errorf("rates file path is required for file rate source")
		}
	default:
		return fmt.Errorf("invalid rate source: %s (must be api or file)", c.Currency.Source)
	}

	if c.Billing.TickPeriod <= 0 {
		return fmt.Errorf("billing tick period must be positive")
	}
	if c.Billing.Tolerance <= 0 {
		return fmt.Errorf("billing tolerance must be positive")
	}
	if c.Billing.TickPeriod > c.Billing.Tolerance {
		return fmt.Errorf("billing tick period %s exceeds tolerance %s", c.Billing.TickPeriod, c.Billing.Tolerance)
	}
	if c.Billing.MaxConcurrentCharges <= 0 {
		return fmt.Errorf("max concurrent charges must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
