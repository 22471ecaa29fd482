package main

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/crucial707/patient-sync/internal/config"
	"github.com/crucial707/patient-sync/internal/handlers"
	"github.com/crucial707/patient-sync/internal/middleware"
	"github.com/crucial707/patient-sync/internal/repo"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newRouter builds the control API on db. status reports the live orchestrator.
func newRouter(db *sql.DB, cfg config.Config, status handlers.StatusSource, logger *slog.Logger) http.Handler {
	settingsHandler := handlers.NewSettingsHandler(repo.NewSettingsRepo(db))
	patientHandler := &handlers.PatientHandler{Repo: repo.NewPatientRepo(db)}
	syncHandler := &handlers.SyncHandler{
		Runs:     repo.NewSyncRunRepo(db),
		Settings: repo.NewSettingsRepo(db),
		Status:   status,
	}
	limiter := middleware.MutationRateLimiter()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLog(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""))

	r.Get("/health", handlers.Health)
	r.Get("/ready", handlers.Ready(db))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", settingsHandler.GetSettings)
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.With(middleware.MaxBytes(middleware.DefaultMaxBodyBytes)).Put("/", settingsHandler.UpdateSettings)
			r.Post("/pause", settingsHandler.Pause)
			r.Post("/resume", settingsHandler.Resume)
		})
	})

	r.Route("/patients", func(r chi.Router) {
		r.Get("/", patientHandler.ListPatients)
		r.Get("/{id}", patientHandler.GetPatient)
	})

	r.Route("/sync", func(r chi.Router) {
		r.Get("/status", syncHandler.GetStatus)
		r.Get("/runs", syncHandler.ListRuns)
	})

	return r
}
