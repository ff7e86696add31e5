// Package postinghttp exposes the posting engine over JSON.
package postinghttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
)

// MountRoutes registers document, transaction and inventory endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(h.writeLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "write rate limit exceeded")
		}),
	)

	r.Get("/documents", h.listDocuments)
	r.Get("/documents/{id}", h.showDocument)
	r.Get("/accounts/{id}/balance", h.showBalance)
	r.Get("/inventory/levels", h.showLevel)
	r.Get("/integrity", h.showIntegrity)

	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Post("/documents", h.createDocument)
		gr.Post("/documents/{id}/post", h.postDocument)
		gr.Post("/documents/{id}/cancel", h.cancelDocument)
		gr.Delete("/documents/{id}", h.deleteDocument)
		gr.Post("/transactions", h.createTransaction)
		gr.Delete("/transactions/{id}", h.deleteTransaction)
		gr.Post("/inventory/adjustments", h.createAdjustment)
		gr.Post("/inventory/transfers", h.createTransfer)
	})
}
