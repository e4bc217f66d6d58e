package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/chavepixclub/backend/internal/config"
	"github.com/chavepixclub/backend/internal/handler"
	"github.com/chavepixclub/backend/internal/logger"
	appMiddleware "github.com/chavepixclub/backend/internal/middleware"
	"github.com/chavepixclub/backend/internal/repository"
	"github.com/chavepixclub/backend/internal/service"
	"github.com/chavepixclub/backend/internal/telemetry"
	"github.com/chavepixclub/backend/pkg/payment"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load .env file if present (for local development)
	_ = godotenv.Load()

	configPath := flag.String("config", config.ConfigPath(), "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	zlog, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer zlog.Sync()
	zap.ReplaceGlobals(zlog)

	tel, err := telemetry.New(ctx, cfg.Otel, cfg.App)
	if err != nil {
		zlog.Warn("telemetry disabled", zap.Error(err))
	}

	db, err := repository.NewDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := repository.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	zlog.Info("database connected & migrated", zap.Int32("max_conns", cfg.Database.MaxConns))

	rdb := connectRedis(ctx, cfg.Redis, zlog)
	if rdb != nil {
		defer rdb.Close()
	}

	gw, err := newGateway(cfg)
	if err != nil {
		return fmt.Errorf("payment gateway: %w", err)
	}
	zlog.Info("payment gateway ready", zap.String("provider", cfg.Payment.Provider))

	// Repositories
	orderRepo := repository.NewOrderRepository(db)
	keyRepo := repository.NewPixKeyRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// Services
	verifier := service.NewSessionVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience)
	checkoutSvc := service.NewCheckoutService(orderRepo, gw.gateway, zlog)
	webhookSvc := service.NewWebhookService(gw.gateway, orderRepo, eventRepo, zlog)
	keySvc := service.NewKeyService(keyRepo, zlog)
	profileSvc := service.NewProfileService(profileRepo, zlog)
	dashboardSvc := service.NewDashboardService(orderRepo, keyRepo)
	janitor := service.NewJanitor(orderRepo, zlog, cfg.Janitor.AbandonAfter)
	adminSvc := service.NewAdminService(statsRepo, janitor)

	if cfg.Janitor.Enabled {
		if err := janitor.Start(cfg.Janitor.Schedule); err != nil {
			return fmt.Errorf("janitor: %w", err)
		}
		defer janitor.Stop()
	}

	// Handlers
	checks := map[string]handler.Check{"database": db.Ping}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	globalRL := appMiddleware.NewRateLimiter(rdb,
		appMiddleware.Per(cfg.RateLimit.Requests, cfg.RateLimit.Burst, cfg.RateLimit.Window),
		appMiddleware.KeyByIP, zlog)
	defer globalRL.Close()
	strictRL := appMiddleware.NewRateLimiter(rdb,
		appMiddleware.PerMinute(cfg.RateLimit.StrictRequests, max(cfg.RateLimit.StrictRequests/6, 1)),
		appMiddleware.KeyByUser, zlog)
	defer strictRL.Close()

	rt := routes{
		health:      handler.NewHealthHandler(checks),
		plans:       handler.NewPlansHandler(),
		checkout:    handler.NewCheckoutHandler(checkoutSvc, cfg.App.PublicURL),
		keys:        handler.NewKeyHandler(keySvc),
		dashboard:   handler.NewDashboardHandler(dashboardSvc),
		session:     handler.NewSessionHandler(profileSvc),
		admin:       handler.NewAdminHandler(adminSvc),
		webhook:     handler.NewPaymentWebhookHandler(webhookSvc, gw.signatureHeader, cfg.Payment.WebhookMaxBytes),
		webhookPath: gw.webhookPath,
		verifier:    verifier,
		isAdmin:     cfg.Admin.IsAdmin,
		globalRL:    globalRL,
		strictRL:    strictRL,
		cors: cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		},
		log: zlog,
	}
	if gw.mock != nil {
		rt.devPay = handler.NewDevPayHandler(gw.mock, webhookSvc)
		zlog.Warn("mock payment provider active, checkout redirects to /dev/pay")
	}

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      newRouter(rt),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("listening", zap.String("addr", server.Addr), zap.String("environment", cfg.App.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		zlog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown error", zap.Error(err))
	}
	if tel != nil {
		if err := tel.Shutdown(shutdownCtx); err != nil {
			zlog.Error("telemetry shutdown error", zap.Error(err))
		}
	}
	return nil
}

// connectRedis returns nil when Redis is not configured or unreachable;
// rate limiting then falls back to in-process buckets.
func connectRedis(ctx context.Context, cfg config.RedisConfig, zlog *zap.Logger) *redis.Client {
	if cfg.URL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		zlog.Warn("invalid redis url, using local rate limiting", zap.Error(err))
		return nil
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		zlog.Warn("redis unreachable, using local rate limiting", zap.Error(err))
		client.Close()
		return nil
	}
	zlog.Info("redis connected", zap.Int("pool_size", cfg.PoolSize))
	return client
}

type gatewaySetup struct {
	gateway         payment.Gateway
	signatureHeader string
	webhookPath     string
	mock            *payment.MockGateway
}

// newGateway builds the configured payment gateway together with the route
// and header its webhooks arrive on.
func newGateway(cfg *config.Config) (*gatewaySetup, error) {
	switch cfg.Payment.Provider {
	case "stripe":
		return &gatewaySetup{
			gateway:         payment.NewStripeGateway(cfg.Payment.StripeSecretKey, cfg.Payment.StripeWebhookSecret),
			signatureHeader: "Stripe-Signature",
			webhookPath:     "/api/webhooks/stripe",
		}, nil
	case "mock":
		base := cfg.Payment.MockBaseURL
		if base == "" {
			base = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		}
		mock := payment.NewMockGateway(base, cfg.Payment.MockSecret)
		return &gatewaySetup{
			gateway:         mock,
			signatureHeader: "X-Signature-256",
			webhookPath:     "/api/webhooks/payment",
			mock:            mock,
		}, nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
	}
}
