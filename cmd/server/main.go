// Command server runs the webhook listener and the daily job scheduler.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloud-gov/pages-core-sub005/internal/wire"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx); err != nil {
		slog.Error("pages core exited", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	app, cleanup, err := wire.InitializeApp(ctx)
	if err != nil {
		return errors.Join(errors.New("initialize pages core"), err)
	}
	defer cleanup()

	log := app.Logger()
	log.Debug("pages core initialized")

	failed := make(chan error, 1)
	go func() { failed <- app.Start() }()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case runErr = <-failed:
		if runErr != nil {
			log.Error("listener stopped", "error", runErr)
		}
	}

	if err := app.Stop(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}
