package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ha165/orderdesk/internal/domain/order"
	"github.com/ha165/orderdesk/internal/handler"
	"github.com/ha165/orderdesk/internal/invoice"
	"github.com/ha165/orderdesk/internal/notify"
	"github.com/ha165/orderdesk/internal/payment"
	"github.com/ha165/orderdesk/internal/payment/paypal"
	"github.com/ha165/orderdesk/internal/session"
	"github.com/ha165/orderdesk/internal/storage/postgres"
	"github.com/ha165/orderdesk/pkg/health"
	"github.com/ha165/orderdesk/pkg/httpmiddleware"
)

// sessionTTL bounds how long an applied coupon survives without a checkout.
const sessionTTL = 24 * time.Hour

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Session store: Redis when configured, in-process otherwise. The
	// in-process fallback loses applied coupons on restart, which is
	// acceptable for single-node deployments.
	var sessions session.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, sessionTTL)
	} else {
		lg.Info("Redis not configured, using in-process session store")
		sessions = session.NewMemoryStore()
	}

	// Admin notification sink.
	var notifier notify.Notifier = notify.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kn := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kn.Close()
		notifier = kn
	} else {
		lg.Info("Kafka not configured, admin notifications disabled")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	shippingRepo := postgres.NewShippingRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	// Payment provider.
	provider := paypal.New(paypal.Config{
		BaseURL:   cfg.PayPal.BaseURL,
		ClientID:  cfg.PayPal.ClientID,
		Secret:    cfg.PayPal.Secret,
		ReturnURL: cfg.BaseURL + "/api/payment/success",
		CancelURL: cfg.BaseURL + "/api/payment/cancel",
	})

	// Domain services.
	orderService := order.NewService(orderRepo, cartRepo, shippingRepo, userRepo, sessions, notifier, cfg.BaseURL)
	paymentService := payment.NewService(orderRepo, cartRepo, productRepo, sessions, provider, cfg.PayPal.Currency)
	invoiceRenderer := invoice.NewRenderer(productRepo, cfg.SellerName)

	// HTTP handlers.
	h := handler.NewHandler(
		handler.Config{
			APIKeyPepper:     cfg.APIKeyPepper,
			PaymentFailedURL: cfg.PayPal.FailedURL,
		},
		apikeyRepo, productRepo, cartRepo, couponRepo, sessions,
		orderService, paymentService, invoiceRenderer,
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("orderdesk-api"),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
