package wire

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/wire"
	"github.com/jmoiron/sqlx"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/cloud-gov/pages-core-sub005/internal/app"
	"github.com/cloud-gov/pages-core-sub005/internal/builds"
	"github.com/cloud-gov/pages-core-sub005/internal/buildtasks"
	"github.com/cloud-gov/pages-core-sub005/internal/config"
	"github.com/cloud-gov/pages-core-sub005/internal/core"
	"github.com/cloud-gov/pages-core-sub005/internal/db"
	"github.com/cloud-gov/pages-core-sub005/internal/destroy"
	"github.com/cloud-gov/pages-core-sub005/internal/github"
	"github.com/cloud-gov/pages-core-sub005/internal/gitutil"
	"github.com/cloud-gov/pages-core-sub005/internal/jobs"
	"github.com/cloud-gov/pages-core-sub005/internal/logger"
	"github.com/cloud-gov/pages-core-sub005/internal/metrics"
	"github.com/cloud-gov/pages-core-sub005/internal/queue"
	"github.com/cloud-gov/pages-core-sub005/internal/retry"
	"github.com/cloud-gov/pages-core-sub005/internal/sandbox"
	"github.com/cloud-gov/pages-core-sub005/internal/scheduled"
	"github.com/cloud-gov/pages-core-sub005/internal/server"
	"github.com/cloud-gov/pages-core-sub005/internal/storage"
)

var AppSet = wire.NewSet(
	app.NewApp,
	server.NewServer,
	config.LoadConfig,
	db.NewDatabase,
	storage.NewStore,
	queue.NewGateway,
	builds.NewService,
	buildtasks.NewScheduler,
	destroy.NewPlatformClient,
	gitutil.NewResolver,
	wire.Bind(new(core.Dispatcher), new(*queue.Gateway)),
	wire.Bind(new(destroy.InfraRemover), new(*destroy.PlatformClient)),
	provideSlogLogger,
	provideLoggerConfig,
	provideDBConfig,
	provideSQL,
	provideRedisConfig,
	provideQueueBackend,
	provideRetryPolicy,
	provideRegistry,
	provideRecorder,
	provideGitHubAuth,
	provideStatusReporter,
	provideBuildsConfig,
	provideObjectRemover,
	providePlatformConfig,
	provideOrchestrator,
	provideSandboxManager,
	provideTrigger,
	provideHandlers,
	provideJobScheduler,
	provideRouter,
	provideServerConfig,
)

// gitHubAuth is the code-host client together with its token source.
type gitHubAuth struct {
	client github.Client
	token  github.TokenFunc
}

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideSlogLogger(cfg logger.Config) *slog.Logger {
	l := logger.NewLogger(cfg, nil)
	slog.SetDefault(l)
	return l
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}

func provideSQL(conn *db.DB) *sqlx.DB {
	return conn.DB
}

func provideRedisConfig(cfg *config.Config) config.RedisConfig {
	return cfg.Redis
}

func provideQueueBackend(cfg config.RedisConfig) (queue.Backend, func(), error) {
	backend, cleanup, err := queue.NewRedisBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	return backend, cleanup, nil
}

func provideRetryPolicy(cfg *config.Config) (retry.Policy, error) {
	p := retry.NewPolicy(retry.BackoffMode(cfg.Queue.ReadyBackoff), cfg.Queue.ReadyInitial, cfg.Queue.ReadyMax, cfg.Queue.ReadyAttempts)
	return p, p.Validate()
}

func provideRegistry() *prom.Registry {
	return prom.NewRegistry()
}

func provideRecorder(reg *prom.Registry) metrics.Recorder {
	return metrics.NewPrometheusRecorder(reg)
}

func provideGitHubAuth(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gitHubAuth, error) {
	client, token, err := github.NewClientFromConfig(ctx, &cfg.GitHub, logger)
	if err != nil {
		return nil, err
	}
	return &gitHubAuth{client: client, token: token}, nil
}

func provideStatusReporter(auth *gitHubAuth, cfg *config.Config, logger *slog.Logger) core.StatusReporter {
	return github.NewStatusReporter(auth.client, cfg.GitHub.StatusContext, cfg.AppURL, logger)
}

func provideBuildsConfig(cfg *config.Config) builds.Config {
	return builds.Config{
		EditorUsername:     cfg.Identities.EditorUsername,
		FederalistUsersOrg: cfg.Identities.FederalistUsersOrg,
	}
}

func provideObjectRemover(cfg *config.Config) (destroy.ObjectRemover, error) {
	return destroy.NewMinioRemover(cfg.Storage)
}

func providePlatformConfig(cfg *config.Config) config.PlatformConfig {
	return cfg.Platform
}

func provideOrchestrator(
	objects destroy.ObjectRemover,
	infra destroy.InfraRemover,
	store storage.Store,
	dispatcher core.Dispatcher,
	recorder metrics.Recorder,
	cfg *config.Config,
	logger *slog.Logger,
) *destroy.Orchestrator {
	return destroy.NewOrchestrator(objects, infra, store, dispatcher, recorder, cfg.Alerts.Recipients, logger)
}

func provideSandboxManager(store storage.Store, dispatcher core.Dispatcher, orchestrator *destroy.Orchestrator, cfg *config.Config, logger *slog.Logger) *sandbox.Manager {
	return sandbox.NewManager(store, dispatcher, orchestrator, cfg.Sandbox.CleaningDays, logger)
}

func provideTrigger(store storage.Store, service *builds.Service, resolver *gitutil.Resolver, auth *gitHubAuth, cfg *config.Config, logger *slog.Logger) *scheduled.Trigger {
	return scheduled.NewTrigger(store, service, resolver, scheduled.TokenSource(auth.token), cfg.Identities.AuditorUsername, logger)
}

func provideHandlers(
	trigger *scheduled.Trigger,
	manager *sandbox.Manager,
	orchestrator *destroy.Orchestrator,
	store storage.Store,
	cfg *config.Config,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *jobs.Handlers {
	return jobs.NewHandlers(trigger, manager, orchestrator, store, cfg.Sandbox.NoticeDays, recorder, logger)
}

func provideJobScheduler(handlers *jobs.Handlers, cfg *config.Config, logger *slog.Logger) (*jobs.Scheduler, error) {
	return jobs.NewScheduler(handlers, cfg.Schedule, logger)
}

func provideRouter(cfg *config.Config, service *builds.Service, reg *prom.Registry, logger *slog.Logger) http.Handler {
	return server.NewRouter(cfg.GitHub.WebhookSecret, service, metrics.HTTPHandler(reg), logger)
}

func provideServerConfig(cfg *config.Config) *config.ServerConfig {
	return &cfg.Server
}
