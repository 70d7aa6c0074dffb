package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Auth      AuthConfig
	Payments  PaymentsConfig
	Orders    OrdersConfig
	Basket    BasketConfig
	Checkout  CheckoutConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// AuthConfig verifies the authentication provider's tokens.
type AuthConfig struct {
	Secret string        `usage:"HMAC secret shared with the authentication provider (CHECKOUT_AUTH_SECRET)" flag:"auth-secret"`
	Issuer string        `default:"storefront-auth" usage:"Expected token issuer"`
	TTL    time.Duration `default:"1h" usage:"Lifetime of development tokens"`
}

// PaymentsConfig selects the payment provider and the payments backend.
type PaymentsConfig struct {
	Provider        string `default:"sandbox" usage:"Payment provider: sandbox or stripe"`
	StripeSecretKey string `usage:"Stripe secret key (CHECKOUT_PAYMENTS_STRIPE_SECRET_KEY)" flag:"stripe-secret-key"`
	Currency        string `default:"usd" usage:"Currency of created payment intents"`
	CurrencySymbol  string `default:"$" usage:"Symbol prefixed to rendered totals"`
	// BackendURL points the secret fetcher at a remote payments backend.
	// Empty means the in-process backend serves /payments/create.
	BackendURL       string        `usage:"Base URL of the payments backend" flag:"payments-backend-url"`
	Timeout          time.Duration `default:"10s" usage:"Payments backend request timeout"`
	FailureThreshold uint32        `default:"5" usage:"Consecutive failures before the breaker opens"`
	OpenTimeout      time.Duration `default:"30s" usage:"How long the breaker stays open"`
}

// OrdersConfig selects where order records are written.
type OrdersConfig struct {
	Backend          string `default:"memory" usage:"Order store: memory, postgres or firestore"`
	DatabaseURL      string `usage:"PostgreSQL connection URL (CHECKOUT_ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	FirestoreProject string `usage:"Google Cloud project of the Firestore database" flag:"firestore-project"`
}

// BasketConfig selects where baskets live.
type BasketConfig struct {
	Backend  string        `default:"memory" usage:"Basket store: memory or redis"`
	RedisURL string        `usage:"Redis connection URL (CHECKOUT_BASKET_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	Prefix   string        `default:"basket" usage:"Redis key prefix"`
	TTL      time.Duration `default:"720h" usage:"Idle basket expiry"`
}

// CheckoutConfig controls the checkout form.
type CheckoutConfig struct {
	RequireCompleteCard bool          `default:"true" usage:"Reject submissions while the card is empty or invalid" flag:"require-complete-card"`
	SessionTTL          time.Duration `default:"30m" usage:"Idle checkout session expiry"`
	CleanupInterval     time.Duration `default:"1m" usage:"How often idle sessions are evicted"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
	// TrustProxy must stay off unless a proxy in front overwrites
	// X-Forwarded-For and X-Real-IP.
	TrustProxy bool `default:"false" usage:"Key clients by X-Forwarded-For/X-Real-IP" flag:"rate-limit-trust-proxy"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every selected backend has its connection settings.
func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return errors.New("auth secret is required: set CHECKOUT_AUTH_SECRET")
	}

	switch c.Payments.Provider {
	case "sandbox":
	case "stripe":
		if c.Payments.StripeSecretKey == "" {
			return errors.New("stripe provider requires CHECKOUT_PAYMENTS_STRIPE_SECRET_KEY")
		}
	default:
		return errors.Errorf("unknown payment provider %q", c.Payments.Provider)
	}

	switch c.Orders.Backend {
	case "memory":
	case "postgres":
		if c.Orders.DatabaseURL == "" {
			return errors.New("postgres order store requires CHECKOUT_ORDERS_DATABASE_URL or DATABASE_URL")
		}
	case "firestore":
		if c.Orders.FirestoreProject == "" {
			return errors.New("firestore order store requires CHECKOUT_ORDERS_FIRESTORE_PROJECT")
		}
	default:
		return errors.Errorf("unknown order backend %q", c.Orders.Backend)
	}

	switch c.Basket.Backend {
	case "memory":
	case "redis":
		if c.Basket.RedisURL == "" {
			return errors.New("redis basket store requires CHECKOUT_BASKET_REDIS_URL or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown basket backend %q", c.Basket.Backend)
	}

	if c.Checkout.SessionTTL <= 0 || c.Checkout.CleanupInterval <= 0 {
		return errors.New("checkout session TTL and cleanup interval must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's CHECKOUT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Orders.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Orders.DatabaseURL = v
		}
	}
	if c.Basket.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.Basket.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
