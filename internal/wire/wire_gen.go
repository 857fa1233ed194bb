// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/cloud-gov/pages-core-sub005/internal/app"
	"github.com/cloud-gov/pages-core-sub005/internal/builds"
	"github.com/cloud-gov/pages-core-sub005/internal/buildtasks"
	"github.com/cloud-gov/pages-core-sub005/internal/config"
	"github.com/cloud-gov/pages-core-sub005/internal/db"
	"github.com/cloud-gov/pages-core-sub005/internal/destroy"
	"github.com/cloud-gov/pages-core-sub005/internal/gitutil"
	"github.com/cloud-gov/pages-core-sub005/internal/queue"
	"github.com/cloud-gov/pages-core-sub005/internal/server"
	"github.com/cloud-gov/pages-core-sub005/internal/storage"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	loggerConfig := provideLoggerConfig(cfg)
	slogLogger := provideSlogLogger(loggerConfig)

	// Database, migrated on connect
	dbConfig := provideDBConfig(cfg)
	dbConn, dbCleanup, err := db.NewDatabase(dbConfig, slogLogger)
	if err != nil {
		return nil, nil, err
	}
	store := storage.NewStore(provideSQL(dbConn))

	// Queue
	backend, queueCleanup, err := provideQueueBackend(provideRedisConfig(cfg))
	if err != nil {
		dbCleanup()
		return nil, nil, err
	}
	cleanup := func() {
		queueCleanup()
		dbCleanup()
	}
	policy, err := provideRetryPolicy(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	registry := provideRegistry()
	recorder := provideRecorder(registry)
	gateway := queue.NewGateway(backend, policy, recorder, slogLogger)

	// Code host
	auth, err := provideGitHubAuth(ctx, cfg, slogLogger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	reporter := provideStatusReporter(auth, cfg, slogLogger)

	// Build lifecycle
	buildService := builds.NewService(store, gateway, reporter, recorder, provideBuildsConfig(cfg), slogLogger)
	taskScheduler := buildtasks.NewScheduler(store, gateway, slogLogger)

	// Teardown
	objects, err := provideObjectRemover(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	platform := destroy.NewPlatformClient(providePlatformConfig(cfg))
	orchestrator := provideOrchestrator(objects, platform, store, gateway, recorder, cfg, slogLogger)

	// Scheduled jobs
	manager := provideSandboxManager(store, gateway, orchestrator, cfg, slogLogger)
	resolver := gitutil.NewResolver(slogLogger)
	trigger := provideTrigger(store, buildService, resolver, auth, cfg, slogLogger)
	handlers := provideHandlers(trigger, manager, orchestrator, store, cfg, recorder, slogLogger)
	jobScheduler, err := provideJobScheduler(handlers, cfg, slogLogger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// HTTP
	router := provideRouter(cfg, buildService, registry, slogLogger)
	httpServer := server.NewServer(ctx, provideServerConfig(cfg), router, slogLogger)

	application := app.NewApp(ctx, cfg, httpServer, jobScheduler, buildService, taskScheduler, handlers, store, slogLogger)
	return application, cleanup, nil
}
