/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Identity:   X-User-ID resolution (API routes only)

ROUTE GROUPS:
  /api/expenses       Record shared expenses
  /api/payments       Record settlement payments
  /api/wallet/*       Wallet balance and adjustments
  /api/settlements/*  Settlement views
  /api/transactions   History
  /metrics            Prometheus scrape endpoint
  /healthz            Liveness

SECURITY NOTE:
  X-User-ID is trusted as-is; there is no authentication middleware.
  Front with an authenticating proxy before exposing this publicly.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", UserIDHeader},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(RequireIdentity)

		r.Post("/expenses", h.RecordExpense)
		r.Post("/payments", h.RecordPayment)

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", h.GetWallet)
			r.Post("/add", h.WalletAdd)
			r.Post("/deduct", h.WalletDeduct)
		})

		r.Route("/settlements", func(r chi.Router) {
			r.Get("/", h.GetSettlements)
			r.Get("/delta", h.GetSettlementDelta)
		})

		r.Get("/transactions", h.GetTransactions)
	})

	// Operational endpoints, no identity required.
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", h.Health)

	return r
}
