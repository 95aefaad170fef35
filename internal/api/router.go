// Package api exposes the studio, billing and build services over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"oneclick/internal/services"
)

type Options struct {
	CORSOrigins []string
}

type handler struct {
	svc *services.Services
}

// NewRouter mounts every route on a chi router.
func NewRouter(svc *services.Services, opts Options) http.Handler {
	h := &handler{svc: svc}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Get("/packages", h.listPackages)

		r.Group(func(r chi.Router) {
			r.Use(authenticate(svc.Users))

			r.Get("/auth/session", h.session)
			r.Get("/profile", h.profile)

			r.Post("/transactions", h.submitTransaction)
			r.Get("/transactions", h.listTransactions)

			r.Get("/studio", h.studio)
			r.Post("/studio/instructions", h.applyInstruction)
			r.Post("/studio/reset", h.resetStudio)
			r.Get("/studio/preview/*", h.preview)

			r.Get("/settings/repository", h.getCredential)
			r.Put("/settings/repository", h.putCredential)
			r.Delete("/settings/repository", h.deleteCredential)
			r.Get("/settings/preferences", h.getPreferences)
			r.Put("/settings/preferences", h.putPreferences)

			r.Get("/models", h.listModels)

			r.Post("/builds", h.startBuild)
			r.Get("/builds", h.buildHistory)
			r.Get("/builds/current", h.currentBuild)
			r.Post("/builds/current/reset", h.resetBuild)
			r.Post("/builds/current/cancel", h.cancelBuild)
			r.Get("/builds/current/artifact", h.downloadArtifact)

			r.Get("/events", h.events)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/transactions", h.pendingTransactions)
				r.Post("/transactions/{id}/approve", h.approveTransaction)
				r.Post("/transactions/{id}/reject", h.rejectTransaction)
				r.Put("/models/{key}", h.setModelEnabled)
			})
		})
	})
	return r
}
