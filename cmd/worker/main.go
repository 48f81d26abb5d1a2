package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/TADABA21/voting-app/internal/app/bootstrap"
)

// Worker process entrypoint.
// Runs full synchronization of the primary store into the secondary store
// on SYNC_INTERVAL, or once with SYNC_ONCE=true.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildWorker(ctx)
	if err != nil {
		slog.Error("worker bootstrap failed", "event", "worker_bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("worker close failed", "event", "worker_close_failed", "error", err.Error())
		}
	}()

	if err := app.Run(ctx); err != nil {
		slog.Error("worker stopped with error", "event", "worker_run_failed", "error", err.Error())
		stop()
		os.Exit(1)
	}
	slog.Info("worker stopped", "event", "worker_stopped")
}
