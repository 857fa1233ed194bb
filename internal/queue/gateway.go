package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloud-gov/pages-core-sub005/internal/core"
	"github.com/cloud-gov/pages-core-sub005/internal/metrics"
	"github.com/cloud-gov/pages-core-sub005/internal/retry"
)

// CleaningDateLayout formats sandbox cleaning dates in notices.
const CleaningDateLayout = "January 2, 2006"

var errNotReady = errors.New("queue is not accepting work")

// SiteBuildPayload is the body of a site build job.
type SiteBuildPayload struct {
	BuildID int64 `json:"buildId"`
}

// BuildTaskPayload is the body of a build task job.
type BuildTaskPayload struct {
	BuildTaskID int64  `json:"buildTaskId"`
	Name        string `json:"name"`
}

// MailPayload is the body of an outbound notification job.
type MailPayload struct {
	Kind    string   `json:"kind"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	// Data carries structured fields for kinds rendered by the mail worker.
	Data any `json:"data,omitempty"`
}

// SandboxReminderData is the Data of a sandbox reminder mail.
type SandboxReminderData struct {
	OrganizationID   int64               `json:"organizationId"`
	OrganizationName string              `json:"organizationName"`
	CleaningDate     string              `json:"cleaningDate"`
	DaysUntil        int                 `json:"daysUntil"`
	Sites            []core.ReminderSite `json:"sites"`
}

// Gateway implements core.Dispatcher on top of a Backend.
type Gateway struct {
	backend  Backend
	policy   retry.Policy
	recorder metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

var _ core.Dispatcher = (*Gateway)(nil)

// NewGateway creates a Gateway. policy governs the readiness wait before each submit.
func NewGateway(backend Backend, policy retry.Policy, recorder metrics.Recorder, logger *slog.Logger) *Gateway {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Gateway{
		backend:  backend,
		policy:   policy,
		recorder: recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SiteBuildJobName is the display name of a site build job.
func SiteBuildJobName(site *core.Site, branch string) string {
	return fmt.Sprintf("%s/%s: %s", site.Owner, site.Repository, branch)
}

// EnqueueSiteBuild submits a build job. The payload carries only the build ID
// so workers always read the current row.
func (g *Gateway) EnqueueSiteBuild(ctx context.Context, build *core.Build, site *core.Site, priority int) error {
	return g.submit(ctx, SiteBuildQueue, SiteBuildJobName(site, build.Branch),
		SiteBuildPayload{BuildID: build.ID}, priority)
}

// EnqueueBuildTask submits a build task job named after its task type.
func (g *Gateway) EnqueueBuildTask(ctx context.Context, task *core.BuildTask, priority int) error {
	return g.submit(ctx, BuildTasksQueue, task.TypeName,
		BuildTaskPayload{BuildTaskID: task.ID, Name: task.TypeName}, priority)
}

// EnqueueMail submits an outbound notification. Recipients are not validated here.
func (g *Gateway) EnqueueMail(ctx context.Context, kind string, recipients []string, subject, body string) error {
	return g.submit(ctx, MailQueue, kind,
		MailPayload{Kind: kind, To: recipients, Subject: subject, HTML: body}, core.DefaultBuildPriority)
}

// EnqueueSandboxReminder submits the notice sent to managers before a sandbox cleaning.
func (g *Gateway) EnqueueSandboxReminder(ctx context.Context, r core.SandboxReminder) error {
	payload := MailPayload{
		Kind:    core.MailKindSandboxReminder,
		To:      r.Recipients,
		Subject: fmt.Sprintf("Your sandbox organization's sites will be removed in %d days", r.DaysUntil),
		Data: SandboxReminderData{
			OrganizationID:   r.OrganizationID,
			OrganizationName: r.OrganizationName,
			CleaningDate:     r.CleaningDate.UTC().Format(CleaningDateLayout),
			DaysUntil:        r.DaysUntil,
			Sites:            r.Sites,
		},
	}
	return g.submit(ctx, MailQueue, core.MailKindSandboxReminder, payload, core.DefaultBuildPriority)
}

func (g *Gateway) submit(ctx context.Context, queue, name string, payload any, priority int) error {
	if err := g.waitReady(ctx, queue); err != nil {
		g.recorder.IncJobEnqueueFailure(queue)
		return fmt.Errorf("%w: %s: %w", core.ErrQueueUnavailable, queue, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", queue, err)
	}
	job := Job{
		ID:        uuid.NewString(),
		Queue:     queue,
		Name:      name,
		Payload:   body,
		Priority:  priority,
		CreatedAt: g.now(),
	}
	if err := g.backend.Submit(ctx, queue, job); err != nil {
		g.recorder.IncJobEnqueueFailure(queue)
		return fmt.Errorf("%w: %s: %w", core.ErrQueueUnavailable, queue, err)
	}

	g.recorder.IncJobEnqueued(queue)
	g.logger.Debug("job enqueued", "queue", queue, "job", name, "job_id", job.ID, "priority", priority)
	return nil
}

func (g *Gateway) waitReady(ctx context.Context, queue string) error {
	return g.policy.Do(ctx, func(ctx context.Context) error {
		ready, err := g.backend.IsReady(ctx, queue)
		if err != nil {
			return err
		}
		if !ready {
			return errNotReady
		}
		return nil
	})
}
