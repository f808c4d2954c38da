package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/tasknotify/internal/api/middleware"
)

// NewRouter mounts the health check and the authenticated operator routes.
func NewRouter(handler *AdminHandler, auth *middleware.AuthMiddleware, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(log))

	r.Get("/health", handler.Health)

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Post("/notifications/check", handler.CheckNotifications)
		r.Post("/notifications/test-email", handler.SendTestEmail)
		r.Get("/notifications/tasks/{id}/attempts", handler.ListAttempts)
		r.Post("/tasks/{id}/reschedule", handler.RescheduleTask)
	})

	return r
}
