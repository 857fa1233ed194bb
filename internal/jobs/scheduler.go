package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/cloud-gov/pages-core-sub005/internal/batch"
	"github.com/cloud-gov/pages-core-sub005/internal/config"
)

// DailyJobs are the bulk jobs run on a daily cadence.
type DailyJobs interface {
	NightlyBuilds(ctx context.Context) (batch.Summary, error)
	SandboxNotice(ctx context.Context) (batch.Summary, error)
	SandboxClean(ctx context.Context) (batch.Summary, error)
}

// Scheduler wraps a gocron scheduler running the daily jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler registers the daily jobs with their crontab expressions.
// A job still running when its next run is due is not started again.
func NewScheduler(jobs DailyJobs, cfg config.ScheduleConfig, logger *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone %q: %w", cfg.Timezone, err)
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := &Scheduler{scheduler: s, logger: logger, ctx: ctx, cancel: cancel}

	entries := []struct {
		name    string
		crontab string
		run     func(context.Context) (batch.Summary, error)
	}{
		{JobNightlyBuilds, cfg.Nightly, jobs.NightlyBuilds},
		{JobSandboxNotice, cfg.SandboxNotice, jobs.SandboxNotice},
		{JobSandboxClean, cfg.SandboxClean, jobs.SandboxClean},
	}
	for _, e := range entries {
		if _, err := s.NewJob(
			gocron.CronJob(e.crontab, false),
			gocron.NewTask(sched.execute, e.name, e.run),
			gocron.WithName(e.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			cancel()
			_ = s.Shutdown()
			return nil, fmt.Errorf("failed to schedule %s with %q: %w", e.name, e.crontab, err)
		}
	}
	return sched, nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.logger.Info("starting job scheduler", "jobs", len(s.scheduler.Jobs()))
	s.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.logger.Info("stopping job scheduler")
	s.cancel()
	return s.scheduler.Shutdown()
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

// execute is called by gocron. Failures are logged by RunBatch and retried
// on the next scheduled run.
func (s *Scheduler) execute(name string, run func(context.Context) (batch.Summary, error)) {
	start := time.Now()
	summary, err := run(s.ctx)
	if err != nil {
		s.logger.Error("scheduled job finished with failures", "job", name, "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Info("scheduled job finished", "job", name, "duration", time.Since(start), "succeeded", summary.Succeeded)
}
