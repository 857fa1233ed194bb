package github

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v73/github"

	"github.com/cloud-gov/pages-core-sub005/internal/core"
)

// Commit status states accepted by GitHub.
const (
	statePending = "pending"
	stateSuccess = "success"
	stateError   = "error"
)

// StatusReporter publishes build states as GitHub commit statuses.
type StatusReporter struct {
	client  Client
	context string
	appURL  string
	logger  *slog.Logger
}

var _ core.StatusReporter = (*StatusReporter)(nil)

// NewStatusReporter creates a StatusReporter. statusContext names the check
// on GitHub; appURL is the base of the build log links.
func NewStatusReporter(client Client, statusContext, appURL string, logger *slog.Logger) *StatusReporter {
	return &StatusReporter{client: client, context: statusContext, appURL: appURL, logger: logger}
}

// ReportBuildStatus sets the commit status for the build's requested commit.
// Builds without a commit, and skipped builds, are not reported.
func (r *StatusReporter) ReportBuildStatus(ctx context.Context, site *core.Site, build *core.Build) error {
	if build.RequestedCommitSHA == "" {
		r.logger.Debug("no commit to report status on", "build_id", build.ID)
		return nil
	}
	state, description, ok := commitState(build.State)
	if !ok {
		return nil
	}

	status := &github.RepoStatus{
		State:       github.Ptr(state),
		Context:     github.Ptr(r.context),
		Description: github.Ptr(description),
		TargetURL:   github.Ptr(r.logsURL(site, build)),
	}
	if err := r.client.CreateStatus(ctx, site.Owner, site.Repository, build.RequestedCommitSHA, status); err != nil {
		return fmt.Errorf("report status of build %d: %w", build.ID, err)
	}
	return nil
}

func (r *StatusReporter) logsURL(site *core.Site, build *core.Build) string {
	return fmt.Sprintf("%s/sites/%d/builds/%d/logs", r.appURL, site.ID, build.ID)
}

func commitState(s core.BuildState) (state, description string, ok bool) {
	switch s {
	case core.BuildCreated, core.BuildQueued:
		return statePending, "The build is queued.", true
	case core.BuildTasked, core.BuildProcessing:
		return statePending, "The build is running.", true
	case core.BuildSuccess:
		return stateSuccess, "The build is complete!", true
	case core.BuildError:
		return stateError, "The build has encountered an error.", true
	case core.BuildTimeout:
		return stateError, "The build timed out.", true
	default:
		return "", "", false
	}
}
