package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cloud-gov/pages-core-sub005/internal/app"
	"github.com/cloud-gov/pages-core-sub005/internal/wire"
)

var rootCmd = &cobra.Command{
	Use:   "pages-cli",
	Short: "pages-cli runs build orchestration jobs on demand.",
	Long: `A CLI for operating the build orchestration service: run the daily jobs
once, queue editor builds and build tasks, and tear down sites.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// withApp initializes the application, runs fn, and releases connections.
// An interrupt cancels the context passed to fn.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := wire.InitializeApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize app services: %w", err)
	}
	defer cleanup()

	return fn(ctx, a)
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}
