// Package buildtasks queues post-build tasks with a per-site fairness priority.
//
// A task's priority is one more than the number of the site's other
// unfinished tasks, so a site's first pending task always competes at
// priority 1 no matter how large another site's backlog is. The count is a
// point-in-time read: two concurrent enqueues for one site may receive the
// same priority.
package buildtasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloud-gov/pages-core-sub005/internal/core"
	"github.com/cloud-gov/pages-core-sub005/internal/storage"
)

// Scheduler computes task priorities and queues tasks.
type Scheduler struct {
	store      storage.Store
	dispatcher core.Dispatcher
	logger     *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(store storage.Store, dispatcher core.Dispatcher, logger *slog.Logger) *Scheduler {
	return &Scheduler{store: store, dispatcher: dispatcher, logger: logger}
}

// Priority returns the fairness priority the task would be queued with.
func (s *Scheduler) Priority(ctx context.Context, task *core.BuildTask) (int, error) {
	pending, err := s.store.CountPendingBuildTasksForSite(ctx, task.SiteID, task.ID)
	if err != nil {
		return 0, err
	}
	return pending + 1, nil
}

// Enqueue submits the task with its fairness priority and marks it queued.
// task must carry its SiteID and TypeName.
func (s *Scheduler) Enqueue(ctx context.Context, task *core.BuildTask) (int, error) {
	if task.Status.IsTerminal() {
		return 0, fmt.Errorf("build task %d is already %s", task.ID, task.Status)
	}
	priority, err := s.Priority(ctx, task)
	if err != nil {
		return 0, err
	}
	if err := s.dispatcher.EnqueueBuildTask(ctx, task, priority); err != nil {
		return 0, fmt.Errorf("enqueue build task %d: %w", task.ID, err)
	}
	queued, err := s.store.MarkBuildTaskQueued(ctx, task.ID, priority)
	if err != nil {
		return 0, err
	}
	task.Priority = &priority
	if !queued {
		s.logger.Debug("build task advanced before queued", "build_task_id", task.ID)
		return priority, nil
	}
	task.Status = core.TaskQueued

	s.logger.Info("queued build task",
		"build_task_id", task.ID, "site_id", task.SiteID, "type", task.TypeName, "priority", priority)
	return priority, nil
}

// EnqueueByID loads a task with its site and type, then enqueues it.
func (s *Scheduler) EnqueueByID(ctx context.Context, taskID int64) (int, error) {
	task, err := s.store.GetBuildTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return s.Enqueue(ctx, task)
}
