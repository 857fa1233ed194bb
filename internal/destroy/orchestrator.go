// Package destroy tears down sites across object storage, provisioned
// platform infrastructure and the relational store.
package destroy

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloud-gov/pages-core-sub005/internal/batch"
	"github.com/cloud-gov/pages-core-sub005/internal/core"
	"github.com/cloud-gov/pages-core-sub005/internal/metrics"
	"github.com/cloud-gov/pages-core-sub005/internal/storage"
)

// Teardown component labels.
const (
	ComponentStorage        = "storage"
	ComponentInfrastructure = "infrastructure"
	ComponentDatabase       = "database"
)

var errStorageNotRemoved = errors.New("not attempted: storage removal failed")

// TeardownError lists the components of a site that could not be removed.
type TeardownError struct {
	SiteID   int64
	Failures []string
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown of site %d failed: %s", e.SiteID, strings.Join(e.Failures, "; "))
}

// Orchestrator removes every externally visible artifact of a site.
type Orchestrator struct {
	objects         ObjectRemover
	infra           InfraRemover
	store           storage.Store
	dispatcher      core.Dispatcher
	recorder        metrics.Recorder
	alertRecipients []string
	logger          *slog.Logger
}

// NewOrchestrator wires the removers, the store and the alert channel.
func NewOrchestrator(
	objects ObjectRemover,
	infra InfraRemover,
	store storage.Store,
	dispatcher core.Dispatcher,
	recorder metrics.Recorder,
	alertRecipients []string,
	logger *slog.Logger,
) *Orchestrator {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Orchestrator{
		objects:         objects,
		infra:           infra,
		store:           store,
		dispatcher:      dispatcher,
		recorder:        recorder,
		alertRecipients: alertRecipients,
		logger:          logger,
	}
}

// DestroySite removes a site's storage and then its infrastructure, while
// deleting its row concurrently. Both paths always run to completion; a
// failure in either fails the call and nothing is rolled back.
func (o *Orchestrator) DestroySite(ctx context.Context, site *core.Site) error {
	var errs []error
	for _, out := range o.teardown(ctx, site) {
		if out.Failed() {
			errs = append(errs, fmt.Errorf("%s: %w", out.Label, out.Err))
		}
	}
	if len(errs) > 0 {
		o.recorder.IncSiteDestruction(metrics.ResultFailure)
		return fmt.Errorf("destroy site %d: %w", site.ID, errors.Join(errs...))
	}
	o.recorder.IncSiteDestruction(metrics.ResultSuccess)
	o.logger.Info("site destroyed", "site_id", site.ID, "site", site.FullName())
	return nil
}

// DestroySiteInfra runs the same teardown, reports each component's outcome,
// and alerts operators when any component failed. user is the requester and
// may be nil.
func (o *Orchestrator) DestroySiteInfra(ctx context.Context, site *core.Site, user *core.User) ([]batch.Outcome[string], error) {
	outcomes := o.teardown(ctx, site)
	summary := batch.Summarize(fmt.Sprintf("teardown of site %d", site.ID), outcomes)
	if summary.Failed == 0 {
		o.recorder.IncSiteDestruction(metrics.ResultSuccess)
		return outcomes, nil
	}
	o.recorder.IncSiteDestruction(metrics.ResultFailure)

	o.logger.Error("site teardown failed", "site_id", site.ID, "failed", summary.Failed)
	o.recordFailure(ctx, site, user, summary)
	if err := o.alert(ctx, site, user, summary); err != nil {
		o.logger.Error("failed to send teardown alert", "site_id", site.ID, "error", err)
	}
	return outcomes, &TeardownError{SiteID: site.ID, Failures: summary.Reasons}
}

// teardown returns the storage, infrastructure and database outcomes in that order.
func (o *Orchestrator) teardown(ctx context.Context, site *core.Site) []batch.Outcome[string] {
	out := []batch.Outcome[string]{
		{Label: ComponentStorage, Value: site.FullName()},
		{Label: ComponentInfrastructure, Value: site.ServiceName},
		{Label: ComponentDatabase, Value: fmt.Sprintf("site %d", site.ID)},
	}

	var g errgroup.Group
	g.Go(func() error {
		if out[0].Err = o.objects.RemoveSiteObjects(ctx, site); out[0].Err != nil {
			out[1].Err = errStorageNotRemoved
			return out[0].Err
		}
		out[1].Err = o.infra.RemoveSiteInfra(ctx, site)
		return out[1].Err
	})
	g.Go(func() error {
		out[2].Err = o.store.DeleteSite(ctx, site.ID)
		return out[2].Err
	})
	_ = g.Wait()
	return out
}

func (o *Orchestrator) recordFailure(ctx context.Context, site *core.Site, user *core.User, summary batch.Summary) {
	body := map[string]any{
		"site":     site.FullName(),
		"failures": summary.Reasons,
	}
	if user != nil {
		body["requestedBy"] = user.Username
	}
	event := &core.AuditEvent{
		Type:      core.EventTypeError,
		Label:     core.EventLabelSiteTeardown,
		Model:     "Site",
		ModelID:   site.ID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.store.RecordEvent(ctx, event); err != nil {
		o.logger.Warn("failed to record teardown event", "site_id", site.ID, "error", err)
	}
}

func (o *Orchestrator) alert(ctx context.Context, site *core.Site, user *core.User, summary batch.Summary) error {
	if len(o.alertRecipients) == 0 {
		o.logger.Warn("no alert recipients configured", "site_id", site.ID)
		return nil
	}
	subject := fmt.Sprintf("Site teardown failed: %s (id %d)", site.FullName(), site.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Teardown of site <strong>%s</strong> (id %d) did not complete.</p>", html.EscapeString(site.FullName()), site.ID)
	if user != nil {
		fmt.Fprintf(&b, "<p>Requested by %s.</p>", html.EscapeString(user.Username))
	}
	b.WriteString("<ul>")
	for _, reason := range summary.Reasons {
		fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(reason))
	}
	b.WriteString("</ul>")

	return o.dispatcher.EnqueueMail(ctx, core.MailKindAlert, o.alertRecipients, subject, b.String())
}
