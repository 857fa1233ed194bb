// Package app initializes and orchestrates the main components of the build
// orchestration service. It wires together the configuration, server, and
// other services.
package app

import (
	"context"
	"log/slog"

	"github.com/cloud-gov/pages-core-sub005/internal/builds"
	"github.com/cloud-gov/pages-core-sub005/internal/buildtasks"
	"github.com/cloud-gov/pages-core-sub005/internal/config"
	"github.com/cloud-gov/pages-core-sub005/internal/jobs"
	"github.com/cloud-gov/pages-core-sub005/internal/server"
	"github.com/cloud-gov/pages-core-sub005/internal/storage"
)

// App holds the main application components.
type App struct {
	ctx       context.Context
	cfg       *config.Config
	server    *server.Server
	scheduler *jobs.Scheduler
	logger    *slog.Logger

	// Exposed for one-off runs from the CLI.
	Builds *builds.Service
	Tasks  *buildtasks.Scheduler
	Jobs   *jobs.Handlers
	Store  storage.Store
}

// NewApp sets up the application with all its dependencies.
func NewApp(
	ctx context.Context,
	cfg *config.Config,
	httpServer *server.Server,
	scheduler *jobs.Scheduler,
	buildService *builds.Service,
	tasks *buildtasks.Scheduler,
	handlers *jobs.Handlers,
	store storage.Store,
	logger *slog.Logger,
) *App {
	return &App{
		ctx:       ctx,
		cfg:       cfg,
		server:    httpServer,
		scheduler: scheduler,
		logger:    logger,
		Builds:    buildService,
		Tasks:     tasks,
		Jobs:      handlers,
		Store:     store,
	}
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Start runs the daily job scheduler and then the HTTP server, blocking
// until the server stops.
func (a *App) Start() error {
	a.logger.Info("starting pages core",
		"server_port", a.cfg.Server.Port,
		"jobs", a.scheduler.JobNames())

	a.scheduler.Start()

	err := a.server.Start()
	if err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}

	return nil
}

// Stop shuts down the application cleanly. Connections are closed by the
// cleanup function returned alongside the App.
func (a *App) Stop() error {
	a.logger.Info("shutting down pages core services")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	// Stop the scheduler, allowing in-flight jobs to finish.
	if err := a.scheduler.Stop(); err != nil {
		a.logger.Error("error during scheduler shutdown", "error", err)
	}

	if serverErr != nil {
		a.logger.Error("pages core stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("pages core stopped successfully")
	return nil
}
