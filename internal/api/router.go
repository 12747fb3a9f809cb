/**
 * @description
 * This file sets up the HTTP router for the coach service. The only inbound
 * HTTP surface is the payment provider webhook plus a health endpoint; all
 * user interaction happens over the Telegram connection.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new Chi router and registers the service routes.
func NewRouter(webhook *PaymentWebhookHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Post("/webhooks/payments", webhook.ServeHTTP)

	return r
}
