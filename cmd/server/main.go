// Package main is the entry point for the recallbox server: it loads
// configuration, wires the storage backend, the scheduling model, the
// review session manager and the optimizer, and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/recallbox/recallbox/internal/api"
	"github.com/recallbox/recallbox/internal/config"
	"github.com/recallbox/recallbox/internal/domain/srs"
	"github.com/recallbox/recallbox/internal/extensions"
	"github.com/recallbox/recallbox/internal/platform/logger"
	"github.com/recallbox/recallbox/internal/service/optimizer"
	"github.com/recallbox/recallbox/internal/service/review_session"
	"github.com/recallbox/recallbox/internal/store"
	"github.com/recallbox/recallbox/internal/store/logfile"
	"github.com/recallbox/recallbox/internal/store/notefile"
	"github.com/recallbox/recallbox/internal/store/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg := logger.Setup(cfg.Server.LogLevel)
	logg.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("backend", cfg.Storage.Backend),
		slog.String("notes_dir", cfg.Storage.NotesDir))

	ctx := context.Background()

	// Cards are always read from the notes directory; the backend choice
	// moves scheduling state and the review log.
	notes := notefile.New(cfg.Storage.NotesDir)

	var (
		states store.CardStateStore
		logs   store.ReviewLogStore
	)
	switch cfg.Storage.Backend {
	case "notefile":
		states = notes
		logs = logfile.New(cfg.Storage.ReviewLogPath)
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			_ = db.Close()
		}()
		if err := postgres.Migrate(ctx, db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		states = postgres.NewCardStateStore(db)
		logs = postgres.NewReviewLogStore(db)
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	model, err := srs.NewService(srs.Config{
		Weights:             cfg.Scheduler.Weights,
		DesiredRetention:    cfg.Scheduler.DesiredRetention,
		EnableShortTerm:     cfg.Scheduler.EnableShortTerm,
		MaximumIntervalDays: cfg.Scheduler.MaximumIntervalDays,
	})
	if err != nil {
		return fmt.Errorf("invalid scheduler configuration: %w", err)
	}

	hooks := extensions.NewRegistry()
	builder := review_session.NewQueueBuilder(notes, logg)
	manager := review_session.NewManager(builder, states, logs, model, hooks, logg)

	opt := optimizer.New(func(enableShortTerm bool) (optimizer.WeightFitter, error) {
		return optimizer.NewGradientFitter(optimizer.GradientConfig{
			Epochs:          cfg.Optimizer.Epochs,
			MiniBatchSize:   cfg.Optimizer.MiniBatchSize,
			LearningRate:    cfg.Optimizer.LearningRate,
			MaxSeqLen:       cfg.Optimizer.MaxSeqLen,
			EnableShortTerm: enableShortTerm,
		}), nil
	}, logg)

	router := api.NewRouter(
		api.NewSessionHandler(manager, logg),
		api.NewOptimizerHandler(opt, logs, logg),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logg.Info("shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logg.Info("server stopped")
	return nil
}
