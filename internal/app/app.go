package app

import (
	"context"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-checkout/internal/auth"
	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/handler"
	"github.com/xenking/storefront-checkout/internal/payment/sandbox"
	"github.com/xenking/storefront-checkout/internal/payment/stripe"
	"github.com/xenking/storefront-checkout/internal/payments"
	"github.com/xenking/storefront-checkout/internal/secret"
	firestorestore "github.com/xenking/storefront-checkout/internal/storage/firestore"
	"github.com/xenking/storefront-checkout/internal/storage/memory"
	"github.com/xenking/storefront-checkout/internal/storage/postgres"
	redisstore "github.com/xenking/storefront-checkout/internal/storage/redis"
	"github.com/xenking/storefront-checkout/pkg/health"
	"github.com/xenking/storefront-checkout/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("payments", cfg.Payments.Provider),
		zap.String("orders", cfg.Orders.Backend),
		zap.String("basket", cfg.Basket.Backend),
	)

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second),
		health.WithFailureThreshold(3),
	)

	// Stores.
	orderRepo, closeOrders, err := openOrders(ctx, cfg.Orders, healthSvc)
	if err != nil {
		return err
	}
	defer closeOrders()

	baskets, closeBaskets, err := openBaskets(ctx, cfg.Basket, healthSvc)
	if err != nil {
		return err
	}
	defer closeBaskets()

	// Payments.
	provider, err := newProvider(cfg.Payments)
	if err != nil {
		return err
	}
	paymentService := payments.NewService(provider, cfg.Payments.Currency)

	var fetcher checkout.SecretFetcher = secret.Func(paymentService.CreateClientSecret)
	if cfg.Payments.BackendURL != "" {
		client, err := secret.NewClient(secret.ClientConfig{
			BaseURL:          cfg.Payments.BackendURL,
			Timeout:          cfg.Payments.Timeout,
			FailureThreshold: cfg.Payments.FailureThreshold,
			OpenTimeout:      cfg.Payments.OpenTimeout,
			TracerProvider:   m.TracerProvider(),
		})
		if err != nil {
			return errors.Wrap(err, "create payments backend client")
		}
		fetcher = client
		// The remote backend serves /payments/create.
		paymentService = nil
	}

	// Domain services.
	tokens, err := auth.NewTokens(auth.Config{
		Secret: cfg.Auth.Secret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TTL,
	})
	if err != nil {
		return errors.Wrap(err, "create token verifier")
	}

	sessions := checkout.NewSessions(cfg.Checkout.SessionTTL)
	sessions.StartCleanup(ctx, cfg.Checkout.CleanupInterval)

	orderService := order.NewService(orderRepo)
	checkoutService, err := checkout.NewService(
		checkout.Config{
			RequireCompleteCard: cfg.Checkout.RequireCompleteCard,
			CurrencySymbol:      cfg.Payments.CurrencySymbol,
		},
		baskets,
		fetcher,
		provider,
		orderService,
		sessions,
		checkout.WithMeter(m.MeterProvider().Meter("checkout")),
	)
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}

	// HTTP.
	instrument, err := httpmiddleware.Instrument(m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create http metrics")
	}

	r := chi.NewRouter()
	r.Use(
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:        cfg.RateLimit.Max,
			Window:     cfg.RateLimit.Window,
			TrustProxy: cfg.RateLimit.TrustProxy,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		instrument,
		httpmiddleware.LogRequests(),
	)
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)

	h := handler.NewHandler(
		checkoutService,
		baskets,
		orderService,
		paymentService,
		handler.NewSecurityHandler(tokens),
	)
	h.Mount(r)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           r,
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-gCtx.Done()
		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})
	return g.Wait()
}

func newProvider(cfg PaymentsConfig) (payment.Provider, error) {
	switch cfg.Provider {
	case "stripe":
		p, err := stripe.New(cfg.StripeSecretKey)
		if err != nil {
			return nil, errors.Wrap(err, "create stripe provider")
		}
		return p, nil
	case "sandbox":
		return sandbox.New(), nil
	default:
		return nil, errors.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

func openOrders(ctx context.Context, cfg OrdersConfig, hs *health.Health) (order.Repository, func(), error) {
	switch cfg.Backend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		hs.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
		return postgres.NewOrderRepository(pool), pool.Close, nil
	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create firestore client")
		}
		return firestorestore.NewOrderRepository(client), func() { _ = client.Close() }, nil
	case "memory":
		return memory.NewOrderRepository(), func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown order backend %q", cfg.Backend)
	}
}

func openBaskets(ctx context.Context, cfg BasketConfig, hs *health.Health) (basket.Store, func(), error) {
	switch cfg.Backend {
	case "redis":
		client, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create redis client")
		}
		hs.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		store := redisstore.NewBasketStore(client, redisstore.Options{Prefix: cfg.Prefix, TTL: cfg.TTL})
		return store, func() { _ = client.Close() }, nil
	case "memory":
		return memory.NewBasketStore(), func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown basket backend %q", cfg.Backend)
	}
}
