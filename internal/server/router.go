package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cloud-gov/pages-core-sub005/internal/server/handler"
)

// maxWebhookBody is the largest payload GitHub delivers.
const maxWebhookBody = 25 << 20

// NewRouter mounts the health probe, the optional metrics endpoint and the
// GitHub webhook receiver.
func NewRouter(webhookSecret string, ingester handler.Ingester, metrics http.Handler, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	webhooks := handler.NewWebhookHandler(webhookSecret, ingester, logger)
	r.Route("/api/v1/webhook", func(r chi.Router) {
		r.Use(middleware.Logger)
		r.Use(middleware.RequestSize(maxWebhookBody))
		r.Use(middleware.Timeout(60 * time.Second))
		r.Post("/github", webhooks.Handle)
	})

	return r
}
