package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "chat", cfg.Annotation.Provider)
	assert.Equal(t, "api", cfg.Currency.Source)
	assert.Equal(t, time.Minute, cfg.Billing.TickPeriod)
	assert.Equal(t, time.Minute, cfg.Billing.Tolerance)
	assert.Equal(t, 8, cfg.Billing.MaxConcurrentCharges)
	assert.True(t, cfg.Billing.Enabled)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BILLING_PORT", "9000")
	t.Setenv("BILLING_STORE_TYPE", "sqlite")
	t.Setenv("BILLING_SQLITE_DSN", "file:test.db")
	t.Setenv("BILLING_ANNOTATION_PROVIDER", "static")
	t.Setenv("BILLING_RATE_SOURCE", "file")
	t.Setenv("BILLING_RATES_FILE", "/tmp/rates.yaml")
	t.Setenv("BILLING_TICK_PERIOD", "10s")
	t.Setenv("BILLING_TOLERANCE", "30s")
	t.Setenv("BILLING_LOG_LEVEL", "debug")
	t.Setenv("BILLING_REDIS_ADDR", "localhost:6379")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "file:test.db", cfg.Store.SQLiteDSN)
	assert.Equal(t, "static", cfg.Annotation.Provider)
	assert.Equal(t, "file", cfg.Currency.Source)
	assert.Equal(t, "/tmp/rates.yaml", cfg.Currency.RatesFile)
	assert.Equal(t, 10*time.Second, cfg.Billing.TickPeriod)
	assert.Equal(t, 30*time.Second, cfg.Billing.Tolerance)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.Currency.RedisAddr)
}

func TestLoadConfig_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("BILLING_TICK_PERIOD", "not-a-duration")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Billing.TickPeriod)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port",
		},
		{
			name:    "unknown store type",
			mutate:  func(c *Config) { c.Store.Type = "postgres" },
			wantErr: "invalid store type",
		},
		{
			name: "sqlite without DSN",
			mutate: func(c *Config) {
				c.Store.Type = "sqlite"
				c.Store.SQLiteDSN = ""
			},
			wantErr: "sqlite DSN",
		},
		{
			name:    "unknown annotation provider",
			mutate:  func(c *Config) { c.Annotation.Provider = "oracle" },
			wantErr: "invalid annotation provider",
		},
		{
			name: "file rate source without path",
			mutate: func(c *Config) {
				c.Currency.Source = "file"
				c.Currency.RatesFile = ""
			},
			wantErr: "rates file path",
		},
		{
			name:    "unknown rate source",
			mutate:  func(c *Config) { c.Currency.Source = "carrier-pigeon" },
			wantErr: "invalid rate source",
		},
		{
			name: "tick period above tolerance",
			mutate: func(c *Config) {
				c.Billing.TickPeriod = 5 * time.Minute
				c.Billing.Tolerance = time.Minute
			},
			wantErr: "exceeds tolerance",
		},
		{
			name:    "non-positive tick period",
			mutate:  func(c *Config) { c.Billing.TickPeriod = 0 },
			wantErr: "tick period must be positive",
		},
		{
			name:    "non-positive concurrency",
			mutate:  func(c *Config) { c.Billing.MaxConcurrentCharges = 0 },
			wantErr: "concurrent charges",
		},
		{
			name: "otel enabled without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: "OpenTelemetry endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
