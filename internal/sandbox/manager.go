// Package sandbox runs the two-phase lifecycle of sandbox organizations:
// managers are notified a fixed number of days before a cleaning, and on the
// cleaning day every site of the organization is destroyed.
//
// Notification matches the cleaning day exactly so that it fires once per
// cycle. Cleaning matches every organization due on or before the given day
// so that a late run still catches up.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloud-gov/pages-core-sub005/internal/batch"
	"github.com/cloud-gov/pages-core-sub005/internal/core"
	"github.com/cloud-gov/pages-core-sub005/internal/storage"
)

// DestroyConcurrency caps simultaneous site destructions within one organization.
const DestroyConcurrency = 5

// Manager notifies and cleans sandbox organizations.
type Manager struct {
	store        storage.Store
	dispatcher   core.Dispatcher
	destroyer    core.SiteDestroyer
	cleaningDays int
	logger       *slog.Logger
	now          func() time.Time
}

// NewManager creates a Manager that reschedules cleanings every cleaningDays.
func NewManager(store storage.Store, dispatcher core.Dispatcher, destroyer core.SiteDestroyer, cleaningDays int, logger *slog.Logger) *Manager {
	return &Manager{
		store:        store,
		dispatcher:   dispatcher,
		destroyer:    destroyer,
		cleaningDays: cleaningDays,
		logger:       logger,
		now:          time.Now,
	}
}

// NotifyOrganizations dispatches one reminder per sandbox organization whose
// next cleaning falls on cleaningDate's UTC day. Organizations without sites
// or without reachable managers are skipped and produce no outcome.
func (m *Manager) NotifyOrganizations(ctx context.Context, cleaningDate time.Time) ([]batch.Outcome[string], error) {
	orgs, err := m.store.ListSandboxOrganizationsForNotice(ctx, cleaningDate)
	if err != nil {
		return nil, err
	}

	var tasks []batch.Task[string]
	for _, org := range orgs {
		reminder, ok, err := m.reminderFor(ctx, org, cleaningDate)
		if err != nil {
			tasks = append(tasks, failedTask[string](orgLabel(org), err))
			continue
		}
		if !ok {
			m.logger.Debug("skipping sandbox notice", "organization_id", org.ID)
			continue
		}
		tasks = append(tasks, batch.Task[string]{
			Label: orgLabel(org),
			Run: func(ctx context.Context) (string, error) {
				if err := m.dispatcher.EnqueueSandboxReminder(ctx, reminder); err != nil {
					return "", err
				}
				return org.Name, nil
			},
		})
	}
	return batch.Settle(ctx, tasks), nil
}

func (m *Manager) reminderFor(ctx context.Context, org *core.Organization, cleaningDate time.Time) (core.SandboxReminder, bool, error) {
	managers, err := m.store.ListOrganizationManagers(ctx, org.ID)
	if err != nil {
		return core.SandboxReminder{}, false, err
	}
	var recipients []string
	for _, u := range managers {
		if u.HasVerifiedIdentity() {
			recipients = append(recipients, u.UAAEmail)
		}
	}
	if len(recipients) == 0 {
		return core.SandboxReminder{}, false, nil
	}

	sites, err := m.store.ListSitesByOrganization(ctx, org.ID)
	if err != nil {
		return core.SandboxReminder{}, false, err
	}
	if len(sites) == 0 {
		return core.SandboxReminder{}, false, nil
	}
	reminderSites := make([]core.ReminderSite, 0, len(sites))
	for _, s := range sites {
		reminderSites = append(reminderSites, core.ReminderSite{ID: s.ID, Owner: s.Owner, Repository: s.Repository})
	}

	day, _ := storage.DayBounds(cleaningDate)
	today, _ := storage.DayBounds(m.now())
	return core.SandboxReminder{
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		CleaningDate:     day,
		DaysUntil:        int(day.Sub(today).Hours() / 24),
		Sites:            reminderSites,
		Recipients:       recipients,
	}, true, nil
}

// CleanSandboxes destroys every site of each sandbox organization due on or
// before asOf's UTC day. Organizations are cleaned independently; one whose
// sites all went away is rescheduled to asOf plus the cleaning interval.
func (m *Manager) CleanSandboxes(ctx context.Context, asOf time.Time) ([]batch.Outcome[string], error) {
	orgs, err := m.store.ListSandboxOrganizationsDue(ctx, asOf)
	if err != nil {
		return nil, err
	}

	tasks := make([]batch.Task[string], 0, len(orgs))
	for _, org := range orgs {
		tasks = append(tasks, batch.Task[string]{
			Label: orgLabel(org),
			Run: func(ctx context.Context) (string, error) {
				return org.Name, m.cleanOrganization(ctx, org, asOf)
			},
		})
	}
	return batch.Settle(ctx, tasks), nil
}

func (m *Manager) cleanOrganization(ctx context.Context, org *core.Organization, asOf time.Time) error {
	sites, err := m.store.ListSitesByOrganization(ctx, org.ID)
	if err != nil {
		return err
	}

	tasks := make([]batch.Task[int64], 0, len(sites))
	for _, site := range sites {
		tasks = append(tasks, batch.Task[int64]{
			Label: fmt.Sprintf("site %d", site.ID),
			Run: func(ctx context.Context) (int64, error) {
				return site.ID, m.destroyer.DestroySite(ctx, site)
			},
		})
	}
	outcomes := batch.SettleLimit(ctx, DestroyConcurrency, tasks)

	var failures []string
	for _, o := range outcomes {
		if o.Failed() {
			failures = append(failures, fmt.Sprintf("%s: %v", o.Label, o.Err))
		}
	}
	if len(failures) > 0 {
		m.logger.Error("sandbox cleaning incomplete", "organization_id", org.ID, "failed_sites", len(failures))
		return fmt.Errorf("%d of %d sites not removed: %s", len(failures), len(sites), strings.Join(failures, "; "))
	}

	next := asOf.AddDate(0, 0, m.cleaningDays)
	if err := m.store.UpdateSandboxNextCleaningAt(ctx, org.ID, next); err != nil {
		return err
	}
	m.logger.Info("sandbox cleaned", "organization_id", org.ID, "sites", len(sites), "next_cleaning_at", next)
	return nil
}

func orgLabel(org *core.Organization) string {
	return fmt.Sprintf("organization %d (%s)", org.ID, org.Name)
}

func failedTask[T any](label string, err error) batch.Task[T] {
	return batch.Task[T]{
		Label: label,
		Run: func(context.Context) (T, error) {
			var zero T
			return zero, err
		},
	}
}
