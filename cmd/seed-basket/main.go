package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/auth"
	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/user"
	redisstore "github.com/xenking/storefront-checkout/internal/storage/redis"
)

var demoItems = []basket.Item{
	{
		ID:     "12321341",
		Title:  "The Lean Startup: How Constant Innovation Creates Radically Successful Businesses",
		Price:  decimal.RequireFromString("11.96"),
		Rating: 5,
		Image:  "https://images-na.ssl-images-amazon.com/images/I/51Zymoq7UnL._SX325_BO1,204,203,200_.jpg",
	},
	{
		ID:     "49538094",
		Title:  "Kenwood kMix Stand Mixer for Baking, Stylish Kitchen Mixer with K-beater, Dough Hook and Whisk, 5 Litre Glass Bowl",
		Price:  decimal.RequireFromString("239.00"),
		Rating: 4,
		Image:  "https://images-na.ssl-images-amazon.com/images/I/81O%2BGNdkzKL._AC_SX450_.jpg",
	},
	{
		ID:     "4903850",
		Title:  "Samsung LC49RG90SSUXEN 49' Curved LED Gaming Monitor",
		Price:  decimal.RequireFromString("199.99"),
		Rating: 3,
		Image:  "https://images-na.ssl-images-amazon.com/images/I/71Swqqe7XAL._AC_SX466_.jpg",
	},
}

func main() {
	var (
		redisURL   string
		uid        string
		email      string
		authSecret string
		issuer     string
		ttl        time.Duration
	)

	flag.StringVar(&redisURL, "redis-url", "", "Redis connection URL (or REDIS_URL env)")
	flag.StringVar(&uid, "uid", "demo-shopper", "shopper uid to seed")
	flag.StringVar(&email, "email", "demo@example.com", "shopper email shown as the delivery address")
	flag.StringVar(&authSecret, "auth-secret", "", "token HMAC secret (or CHECKOUT_AUTH_SECRET env)")
	flag.StringVar(&issuer, "issuer", "storefront-auth", "token issuer")
	flag.DurationVar(&ttl, "token-ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if redisURL == "" {
		redisURL = os.Getenv("REDIS_URL")
	}
	if redisURL == "" {
		slog.Error("redis URL is required: set --redis-url or REDIS_URL")
		os.Exit(1)
	}
	if authSecret == "" {
		authSecret = os.Getenv("CHECKOUT_AUTH_SECRET")
	}
	if authSecret == "" {
		slog.Error("auth secret is required: set --auth-secret or CHECKOUT_AUTH_SECRET")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	shopper := user.User{UID: uid, Email: email}
	if err := run(ctx, redisURL, shopper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tokens, err := auth.NewTokens(auth.Config{Secret: authSecret, Issuer: issuer, TTL: ttl})
	if err != nil {
		slog.Error("create tokens", slog.String("error", err.Error()))
		os.Exit(1)
	}
	token, err := tokens.Mint(shopper)
	if err != nil {
		slog.Error("mint token", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully", slog.String("uid", uid))
	fmt.Println(token)
}

func run(ctx context.Context, redisURL string, shopper user.User) error {
	slog.Info("connecting to redis")

	client, err := redisstore.NewClient(ctx, redisURL)
	if err != nil {
		return errors.Wrap(err, "connect to redis")
	}
	defer func() { _ = client.Close() }()

	store := redisstore.NewBasketStore(client, redisstore.Options{})

	if _, err := store.Dispatch(ctx, shopper.UID, basket.EmptyBasket()); err != nil {
		return errors.Wrap(err, "empty basket")
	}
	for _, it := range demoItems {
		b, err := store.Dispatch(ctx, shopper.UID, basket.AddToBasket(it))
		if err != nil {
			return errors.Wrapf(err, "add item %s", it.ID)
		}
		slog.Info("added item",
			slog.String("id", it.ID),
			slog.String("price", it.Price.String()),
			slog.Uint64("version", b.Version),
		)
	}
	return nil
}
