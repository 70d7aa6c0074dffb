package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults(t *testing.T) Config {
	t.Helper()
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		SkipFiles: true,
		SkipEnv:   true,
	})
	require.NoError(t, loader.Load())
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := defaults(t)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, "sandbox", cfg.Payments.Provider)
	assert.Equal(t, "usd", cfg.Payments.Currency)
	assert.Equal(t, "$", cfg.Payments.CurrencySymbol)
	assert.Equal(t, "memory", cfg.Orders.Backend)
	assert.Equal(t, "memory", cfg.Basket.Backend)
	assert.True(t, cfg.Checkout.RequireCompleteCard)
	assert.Equal(t, 30*time.Minute, cfg.Checkout.SessionTTL)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.False(t, cfg.RateLimit.TrustProxy)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults with secret",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing auth secret",
			mutate:  func(c *Config) { c.Auth.Secret = "" },
			wantErr: "auth secret is required",
		},
		{
			name:    "stripe without key",
			mutate:  func(c *Config) { c.Payments.Provider = "stripe" },
			wantErr: "stripe provider requires",
		},
		{
			name: "stripe with key",
			mutate: func(c *Config) {
				c.Payments.Provider = "stripe"
				c.Payments.StripeSecretKey = "sk_test_123"
			},
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Payments.Provider = "paypal" },
			wantErr: `unknown payment provider "paypal"`,
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Orders.Backend = "postgres" },
			wantErr: "postgres order store requires",
		},
		{
			name:    "firestore without project",
			mutate:  func(c *Config) { c.Orders.Backend = "firestore" },
			wantErr: "firestore order store requires",
		},
		{
			name:    "unknown order backend",
			mutate:  func(c *Config) { c.Orders.Backend = "mysql" },
			wantErr: "unknown order backend",
		},
		{
			name:    "redis without url",
			mutate:  func(c *Config) { c.Basket.Backend = "redis" },
			wantErr: "redis basket store requires",
		},
		{
			name:    "unknown basket backend",
			mutate:  func(c *Config) { c.Basket.Backend = "memcached" },
			wantErr: "unknown basket backend",
		},
		{
			name:    "zero session ttl",
			mutate:  func(c *Config) { c.Checkout.SessionTTL = 0 },
			wantErr: "must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults(t)
			cfg.Auth.Secret = "secret"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("REDIS_URL", "redis://platform:6379/0")
	t.Setenv("PORT", "9090")

	cfg := defaults(t)
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://platform/db", cfg.Orders.DatabaseURL)
	assert.Equal(t, "redis://platform:6379/0", cfg.Basket.RedisURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)

	explicit := defaults(t)
	explicit.Addr = "127.0.0.1:7000"
	explicit.Orders.DatabaseURL = "postgres://explicit/db"
	explicit.applyPlatformDefaults()

	assert.Equal(t, "127.0.0.1:7000", explicit.Addr)
	assert.Equal(t, "postgres://explicit/db", explicit.Orders.DatabaseURL)
}
