package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Routes(m *Middleware, corsOrigins []string, rateLimitRPM int) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.Compress)
	r.Use(m.Timeout(15 * time.Second))
	r.Use(middleware.Heartbeat("/ping"))

	// CORS and rate limiting - configured from main
	r.Use(m.CORS(corsOrigins))
	r.Use(m.RateLimit(rateLimitRPM))

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	// v1 API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/chains", h.ListChains)

		r.Route("/bridge", func(r chi.Router) {
			r.Get("/pairs", h.ListPairs)
			r.Get("/assets", h.ListAssets)
			r.Get("/quote", h.GetQuote)
			r.Get("/token-mapping", h.GetMappedToken)
			r.Get("/balance", h.GetBalance)
			r.Get("/allowance", h.GetAllowance)
			r.Post("/approve", h.ApproveToken)
			r.Get("/health", h.RouteHealth)

			r.Route("/transfers", func(r chi.Router) {
				r.Post("/", h.SubmitTransfer)
				r.Get("/", h.ListTransfers)
				r.Get("/{id}", h.GetTransfer)
			})

			r.Get("/claimable", h.ListClaimable)
			r.Post("/claim", h.FinalizeClaim)
		})

		// Live updates
		r.Get("/ws", h.HandleWebSocket)
	})

	return r
}
