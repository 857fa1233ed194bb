package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cloud-gov/pages-core-sub005/internal/batch"
	"github.com/cloud-gov/pages-core-sub005/internal/core"
	"github.com/cloud-gov/pages-core-sub005/internal/metrics"
	"github.com/cloud-gov/pages-core-sub005/internal/storage"
)

// Job names, used in summaries and metric labels.
const (
	JobNightlyBuilds     = "nightly-builds"
	JobSandboxNotice     = "sandbox-notice"
	JobSandboxClean      = "sandbox-clean"
	JobSiteInfraTeardown = "site-infra-teardown"
)

// NightlyTrigger creates scheduled builds.
type NightlyTrigger interface {
	TriggerScheduledBuilds(ctx context.Context) ([]batch.Outcome[*core.Build], error)
}

// SandboxLifecycle notifies and cleans sandbox organizations.
type SandboxLifecycle interface {
	NotifyOrganizations(ctx context.Context, cleaningDate time.Time) ([]batch.Outcome[string], error)
	CleanSandboxes(ctx context.Context, asOf time.Time) ([]batch.Outcome[string], error)
}

// InfraTeardown destroys a site and reports per-component outcomes.
type InfraTeardown interface {
	DestroySiteInfra(ctx context.Context, site *core.Site, user *core.User) ([]batch.Outcome[string], error)
}

// Handlers runs each bulk job once.
type Handlers struct {
	trigger    NightlyTrigger
	sandbox    SandboxLifecycle
	teardown   InfraTeardown
	store      storage.Store
	noticeDays int
	recorder   metrics.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewHandlers creates the job handlers. Sandbox notices go out noticeDays
// before a cleaning.
func NewHandlers(
	trigger NightlyTrigger,
	sandbox SandboxLifecycle,
	teardown InfraTeardown,
	store storage.Store,
	noticeDays int,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *Handlers {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Handlers{
		trigger:    trigger,
		sandbox:    sandbox,
		teardown:   teardown,
		store:      store,
		noticeDays: noticeDays,
		recorder:   recorder,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NightlyBuilds schedules every nightly branch.
func (h *Handlers) NightlyBuilds(ctx context.Context) (batch.Summary, error) {
	return RunBatch(ctx, JobNightlyBuilds, h.logger, h.recorder, h.trigger.TriggerScheduledBuilds)
}

// SandboxNotice notifies organizations whose cleaning is noticeDays away.
func (h *Handlers) SandboxNotice(ctx context.Context) (batch.Summary, error) {
	cleaningDate := h.now().AddDate(0, 0, h.noticeDays)
	return RunBatch(ctx, JobSandboxNotice, h.logger, h.recorder, func(ctx context.Context) ([]batch.Outcome[string], error) {
		return h.sandbox.NotifyOrganizations(ctx, cleaningDate)
	})
}

// SandboxClean cleans every organization due today or earlier.
func (h *Handlers) SandboxClean(ctx context.Context) (batch.Summary, error) {
	asOf := h.now()
	return RunBatch(ctx, JobSandboxClean, h.logger, h.recorder, func(ctx context.Context) ([]batch.Outcome[string], error) {
		return h.sandbox.CleanSandboxes(ctx, asOf)
	})
}

// SiteInfraTeardown destroys one site. username identifies the requester
// and may be empty or unknown.
func (h *Handlers) SiteInfraTeardown(ctx context.Context, siteID int64, username string) (batch.Summary, error) {
	return RunBatch(ctx, JobSiteInfraTeardown, h.logger, h.recorder, func(ctx context.Context) ([]batch.Outcome[string], error) {
		site, err := h.store.GetSite(ctx, siteID)
		if err != nil {
			return nil, err
		}
		var user *core.User
		if username != "" {
			user, err = h.store.GetUserByUsername(ctx, username)
			if err != nil && !errors.Is(err, core.ErrNotFound) {
				return nil, err
			}
		}
		// The teardown error repeats what the outcomes already carry.
		outcomes, _ := h.teardown.DestroySiteInfra(ctx, site, user)
		return outcomes, nil
	})
}
