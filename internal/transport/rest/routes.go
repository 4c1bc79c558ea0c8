// Package rest wires the HTTP API surface onto the domain services.
package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/trinitystore/backoffice/pkg/web"
)

// loggerWithReqID returns the handler logger enriched with the request id.
func loggerWithReqID(r *http.Request, logger *slog.Logger) *slog.Logger {
	return logger.With("request_id", middleware.GetReqID(r.Context()))
}

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Product  *ProductHandler
	Checkout *CheckoutHandler
	Invoice  *InvoiceHandler
	Report   *ReportHandler
}

// RegisterRoutes mounts the API under /api/v1. Every route requires an
// authenticated identity; catalog mutations and reports additionally require
// the manager role.
func RegisterRoutes(r chi.Router, h Handlers, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Product.FindAll)
			r.Get("/search", h.Product.Search)
			r.Get("/{id}", h.Product.FindByID)

			r.Group(func(r chi.Router) {
				r.Use(web.RequireRole(web.RoleManager))
				r.Post("/", h.Product.Create)
				r.Post("/scan/{barcode}", h.Product.Scan)
				r.Put("/{id}", h.Product.Update)
				r.Patch("/{id}/price", h.Product.UpdatePrice)
				r.Delete("/{id}", h.Product.Delete)
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/intent", h.Checkout.PrepareIntent)
			r.Post("/", h.Checkout.Complete)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.Invoice.FindMine)
			r.Get("/{id}", h.Invoice.FindByID)
		})

		r.Group(func(r chi.Router) {
			r.Use(web.RequireRole(web.RoleManager))
			r.Get("/reports", h.Report.Summary)
		})
	})
}
