package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"event-ticketing-core/internal/middleware"
)

// RouterConfig wires handlers and middleware into the API router
type RouterConfig struct {
	Identity       *middleware.Identity
	PurchaseLimit  *middleware.RateLimiter
	AllowedOrigins []string
	UploadsDir     string

	Purchases     *PurchaseHandler
	Orders        *OrderHandler
	Events        *EventHandler
	Tickets       *TicketHandler
	Verifications *VerificationHandler
	Health        *HealthHandler
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.ErrorHandlingMiddleware)
	r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(cfg.AllowedOrigins)))
	r.Use(middleware.SecurityHeadersMiddleware)

	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Health)
	}
	r.Handle("/metrics", promhttp.Handler())

	if cfg.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))
	}

	r.Route("/api", func(r chi.Router) {
		if cfg.Identity != nil {
			r.Use(cfg.Identity.LoadUser)
		}

		r.Get("/events/{id}/availability", cfg.Events.Availability)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.With(rateLimit(cfg.PurchaseLimit)).Post("/purchases", cfg.Purchases.Purchase)

			r.Get("/orders", cfg.Orders.ListOrders)
			r.Get("/orders/{id}", cfg.Orders.GetOrder)

			r.Get("/tickets/{id}/qrcode", cfg.Tickets.QRCode)
			r.Get("/tickets/{id}/history", cfg.Tickets.History)
			r.Get("/tickets/{id}/state", cfg.Tickets.State)

			r.Post("/verifications", cfg.Verifications.Verify)
			r.Get("/events/{id}/verification-logs", cfg.Verifications.ListLogs)
		})
	})

	return r
}

func rateLimit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.PerUser(rl)
}
