// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	BILLING_HOST="0.0.0.0"
//	BILLING_PORT="8080"
//	BILLING_READ_TIMEOUT="15s"
//	BILLING_WRITE_TIMEOUT="15s"
//
// Store settings:
//
//	BILLING_STORE_TYPE="memory"  # memory, sqlite
//	BILLING_SQLITE_DSN="file:billing?mode=memory&cache=shared"
//
// Annotation settings:
//
//	BILLING_ANNOTATION_PROVIDER="chat"  # chat, static
//	BILLING_CHAT_API_KEY="sk-..."
//	BILLING_CHAT_MODEL="gpt-4o-mini"
//
// Currency settings:
//
//	BILLING_RATE_SOURCE="api"  # api, file
//	BILLING_RATES_FILE="/etc/billing/rates.yaml"
//	BILLING_RATE_CACHE_TTL="15m"
//	BILLING_REDIS_ADDR="localhost:6379"
//
// Scheduler settings:
//
//	BILLING_TICK_PERIOD="1m"
//	BILLING_TOLERANCE="1m"
//	BILLING_MAX_CONCURRENT_CHARGES="8"
//
// Observability settings:
//
//	BILLING_LOG_LEVEL="info"  # debug, info, warn, error
//	BILLING_METRICS_ENABLED="true"
//	BILLING_OTEL_ENABLED="false"
//	BILLING_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Store: %s\n", cfg.Store.Type)
//
// # Related Packages
//
//   - pkg/subscription: Uses store configuration
//   - pkg/observability: Uses observability configuration
package config
