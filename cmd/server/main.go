package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/idcards/internal/config"
	"github.com/JonMunkholm/idcards/internal/core"
	_ "github.com/JonMunkholm/idcards/internal/core/records" // Register student and employee schemas
	"github.com/JonMunkholm/idcards/internal/logging"
	"github.com/JonMunkholm/idcards/internal/store"
	"github.com/JonMunkholm/idcards/internal/web"
)

func main() {
	// Variables already set in the environment win over .env
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()

	if err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is done or the listener fails. Deferred cleanup,
// including closing the store, has finished by the time it returns.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	recordStore, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s record store: %w", cfg.Store.Driver, err)
	}
	defer closeStore()

	service := core.NewService(recordStore, core.Options{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWaitTime:   cfg.Upload.MaxWaitTime,
		BatchSize:     cfg.Upload.BatchSize,
		SessionTTL:    cfg.Upload.SessionTTL,
		QuotedFields:  cfg.Upload.QuotedFields,
	})

	slog.Info("record types registered", "types", core.RecordTypes())

	// Background jobs stop with the signal context
	go service.StartSessionSweeper(ctx, cfg.Upload.SweepInterval)

	server := web.NewServer(ctx, service, cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if status := service.LimiterStatus(); status.Active > 0 {
		slog.Info("waiting for imports to complete", "active", status.Active)
		if err := service.WaitForImports(shutdownCtx); err != nil {
			slog.Warn("imports did not complete in time", "error", err)
		} else {
			slog.Info("all imports completed")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return nil
}
