/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/products/*      Catalogue + history + stock breakdown
  /api/locations/*     Stock locations
  /api/purchases, /api/productions, /api/transfers, /api/sales,
  /api/wastages        Transaction recording + listing
  /api/transactions/*  Reversal
  /api/reports/*       Low-stock report
  /api/processes       BOM catalogue
  /api/seed            Demo seed (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Catalogue routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			r.Get("/{id}/history", h.GetProductHistory)
			r.Get("/{id}/stock", h.GetProductStock)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", h.ListLocations)
			r.Post("/", h.CreateLocation)
		})

		// Transaction routes
		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", h.ListPurchases)
			r.Post("/", h.RecordPurchase)
		})
		r.Route("/productions", func(r chi.Router) {
			r.Get("/", h.ListProductions)
			r.Post("/", h.RecordProduction)
		})
		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", h.ListTransfers)
			r.Post("/", h.RecordTransfer)
		})
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Post("/", h.RecordSale)
		})
		r.Route("/wastages", func(r chi.Router) {
			r.Get("/", h.ListWastages)
			r.Post("/", h.RecordWastage)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/{id}/reverse", h.ReverseTransaction)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/low-stock", h.LowStockReport)
		})
		r.Get("/processes", h.ListProcesses)

		// Demo seed (dev only)
		r.Post("/seed", h.SeedDemo)
	})

	return r
}
