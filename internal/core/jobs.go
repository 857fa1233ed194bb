// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"context"
	"time"
)

// Mail kinds understood by the notification worker.
const (
	MailKindSandboxReminder = "sandbox-reminder"
	MailKindAlert           = "alert"
)

// DefaultBuildPriority is the queue priority for site builds.
const DefaultBuildPriority = 1

// Dispatcher is the single point through which work is submitted to the
// durable queues. Every method submits exactly one job, or returns an error
// wrapping ErrQueueUnavailable.
//
//go:generate mockgen -destination=../../mocks/mock_dispatcher.go -package=mocks . Dispatcher,StatusReporter
type Dispatcher interface {
	EnqueueSiteBuild(ctx context.Context, build *Build, site *Site, priority int) error
	EnqueueBuildTask(ctx context.Context, task *BuildTask, priority int) error
	EnqueueMail(ctx context.Context, kind string, recipients []string, subject, body string) error
	EnqueueSandboxReminder(ctx context.Context, reminder SandboxReminder) error
}

// StatusReporter publishes a build's state to the code host. Callers treat
// its errors as best-effort.
type StatusReporter interface {
	ReportBuildStatus(ctx context.Context, site *Site, build *Build) error
}

// SiteDestroyer tears down every externally visible artifact of a site.
type SiteDestroyer interface {
	DestroySite(ctx context.Context, site *Site) error
}

// SandboxReminder is the notice sent to organization managers ahead of a
// sandbox cleaning.
type SandboxReminder struct {
	OrganizationID   int64
	OrganizationName string
	CleaningDate     time.Time
	DaysUntil        int
	Sites            []ReminderSite
	Recipients       []string
}

// ReminderSite identifies a site that will be removed by a cleaning.
type ReminderSite struct {
	ID         int64  `json:"id"`
	Owner      string `json:"owner"`
	Repository string `json:"repository"`
}
