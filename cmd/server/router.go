package main

import (
	"net/http"

	"github.com/chavepixclub/backend/internal/handler"
	appMiddleware "github.com/chavepixclub/backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// routes holds everything the router mounts.
type routes struct {
	health    *handler.HealthHandler
	plans     *handler.PlansHandler
	checkout  *handler.CheckoutHandler
	keys      *handler.KeyHandler
	dashboard *handler.DashboardHandler
	session   *handler.SessionHandler
	admin     *handler.AdminHandler

	webhook     *handler.PaymentWebhookHandler
	webhookPath string
	devPay      *handler.DevPayHandler // mock provider only

	verifier appMiddleware.TokenVerifier
	isAdmin  func(email string) bool
	globalRL *appMiddleware.RateLimiter
	strictRL *appMiddleware.RateLimiter
	cors     cors.Options
	log      *zap.Logger
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()

	r.Use(appMiddleware.Recovery(rt.log))
	r.Use(chimw.RequestID)
	r.Use(appMiddleware.Tracing)
	r.Use(appMiddleware.Logger(rt.log))

	// Gateway deliveries skip CORS and the per-IP limiter.
	// Deliveries come from a few shared IPs.
	r.Post(rt.webhookPath, rt.webhook.Handle)

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(rt.cors))
		r.Use(rt.globalRL.Middleware())

		// Public routes
		r.Get("/health", rt.health.Check)
		r.Get("/health/live", rt.health.Live)
		r.Get("/api/plans", rt.plans.List)
		if rt.devPay != nil {
			r.Get("/dev/pay", rt.devPay.Pay)
		}

		// Protected API routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.Auth(rt.verifier))

			r.Get("/api/me", rt.session.Me)
			r.Post("/api/session", rt.session.Sync)
			r.Get("/api/dashboard", rt.dashboard.Get)
			r.Get("/api/orders", rt.checkout.ListOrders)
			r.Get("/api/orders/{id}", rt.checkout.GetOrder)
			r.Get("/api/keys", rt.keys.List)

			r.Group(func(r chi.Router) {
				r.Use(rt.strictRL.Middleware())
				r.Post("/api/checkout", rt.checkout.Create)
				r.Post("/api/keys", rt.keys.Create)
			})

			// Admin routes
			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.AdminOnly(rt.isAdmin))
				r.Get("/api/admin/stats", rt.admin.GetStats)
				r.Patch("/api/admin/keys/{id}", rt.keys.SetStatus)
				r.Post("/api/admin/orders/sweep", rt.admin.SweepOrders)
			})
		})
	})

	return r
}
