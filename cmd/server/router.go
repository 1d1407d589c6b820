package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/posting-api/internal/api"
	apiMiddleware "github.com/phrazzld/posting-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(app.logger))
	r.Use(middleware.Recoverer)

	postingHandler := api.NewPostingHandler(app.postingService, app.logger)
	recordHandler := api.NewRecordHandler(app.policyService, app.logger)
	healthHandler := api.NewHealthHandler(app.runner.QueueLen)

	r.Route("/api/tenants/{tenant}", func(r chi.Router) {
		r.Post("/posting-jobs", postingHandler.RequestPosting)

		r.Route("/records/{class}", func(r chi.Router) {
			r.Get("/", recordHandler.ListRecords)
			r.Put("/", recordHandler.UpsertRecord)
			r.Get("/active", recordHandler.GetActiveRecord)
			r.Get("/{id}", recordHandler.GetRecord)
		})
	})

	r.Get("/health", healthHandler.Health)

	return r
}
