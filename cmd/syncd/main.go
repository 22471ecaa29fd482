// Command syncd runs the patient sync service: the scheduled CSV import and
// export loop plus a small HTTP control API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crucial707/patient-sync/internal/config"
	"github.com/crucial707/patient-sync/internal/db"
	"github.com/crucial707/patient-sync/internal/logging"
	"github.com/crucial707/patient-sync/internal/reconcile"
	"github.com/crucial707/patient-sync/internal/repo"
	"github.com/crucial707/patient-sync/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("patient sync exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logger := logging.New(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	logger.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if cfg.MigrateOnStart {
		if err := db.Run(cfg.DatabaseURL()); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	patients := repo.NewPatientRepo(database)
	orchestrator := syncer.New(
		repo.NewSettingsRepo(database),
		reconcile.New(reconcile.NewSQLStore(patients), cfg.SyncChunkSize),
		patients,
		repo.NewSyncRunRepo(database),
		logger,
		syncer.Config{
			Interval:   cfg.SyncTickInterval,
			PageSize:   cfg.SyncPageSize,
			FlushEvery: cfg.SyncFlushEvery,
			Location:   loc,
		},
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(database, cfg, orchestrator, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("control API listening", "addr", srv.Addr, "tls", cfg.TLSCertFile != "")
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		orchestrator.Run(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("control API failed", "error", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("control API shutdown", "error", err)
	}

	// The loop finishes the task in flight before returning.
	<-loopDone
	logger.Info("patient sync stopped cleanly")
	return nil
}
