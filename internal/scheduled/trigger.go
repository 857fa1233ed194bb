// Package scheduled creates the nightly rebuilds of branches whose config
// opts into them.
package scheduled

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloud-gov/pages-core-sub005/internal/batch"
	"github.com/cloud-gov/pages-core-sub005/internal/builds"
	"github.com/cloud-gov/pages-core-sub005/internal/config"
	"github.com/cloud-gov/pages-core-sub005/internal/core"
	"github.com/cloud-gov/pages-core-sub005/internal/gitutil"
	"github.com/cloud-gov/pages-core-sub005/internal/storage"
)

// BuildCreator is the shared build creation path.
type BuildCreator interface {
	CreateBuild(ctx context.Context, req builds.BuildRequest) (builds.Result, error)
}

// HeadResolver looks up the current commit of a remote branch.
type HeadResolver interface {
	ResolveBranchHead(ctx context.Context, repoURL, branch, token string) (string, error)
}

// TokenSource returns a token for reading remote repositories.
type TokenSource func(ctx context.Context) (string, error)

// Trigger schedules nightly builds as the auditor account.
type Trigger struct {
	store           storage.Store
	creator         BuildCreator
	resolver        HeadResolver
	token           TokenSource
	auditorUsername string
	logger          *slog.Logger
}

// NewTrigger creates a Trigger. resolver and token may be nil, in which case
// builds are created without a requested commit.
func NewTrigger(store storage.Store, creator BuildCreator, resolver HeadResolver, token TokenSource, auditorUsername string, logger *slog.Logger) *Trigger {
	return &Trigger{
		store:           store,
		creator:         creator,
		resolver:        resolver,
		token:           token,
		auditorUsername: auditorUsername,
		logger:          logger,
	}
}

// TriggerScheduledBuilds creates one build per nightly site branch and
// returns one outcome per branch considered.
func (t *Trigger) TriggerScheduledBuilds(ctx context.Context) ([]batch.Outcome[*core.Build], error) {
	configs, err := t.store.ListBranchConfigsWithBranch(ctx)
	if err != nil {
		return nil, err
	}

	var nightly []*core.SiteBranchConfig
	for _, cfg := range configs {
		if config.IsNightly(cfg.Config) {
			nightly = append(nightly, cfg)
		}
	}
	if len(nightly) == 0 {
		return nil, nil
	}

	auditor, auditorErr := t.store.GetUserByUsername(ctx, t.auditorUsername)
	if auditorErr != nil {
		auditorErr = fmt.Errorf("resolve auditor %q: %w", t.auditorUsername, auditorErr)
	}

	tasks := make([]batch.Task[*core.Build], 0, len(nightly))
	for _, cfg := range nightly {
		branch := *cfg.Branch
		tasks = append(tasks, batch.Task[*core.Build]{
			Label: fmt.Sprintf("%s@%s", cfg.Site.FullName(), branch),
			Run: func(ctx context.Context) (*core.Build, error) {
				if auditorErr != nil {
					return nil, wrap(cfg.SiteID, branch, auditorErr)
				}
				build, err := t.schedule(ctx, cfg.Site, branch, auditor)
				if err != nil {
					return nil, wrap(cfg.SiteID, branch, err)
				}
				return build, nil
			},
		})
	}
	return batch.Settle(ctx, tasks), nil
}

func (t *Trigger) schedule(ctx context.Context, site *core.Site, branch string, auditor *core.User) (*core.Build, error) {
	res, err := t.creator.CreateBuild(ctx, builds.BuildRequest{
		Site:      site,
		Branch:    branch,
		CommitSHA: t.headOf(ctx, site, branch),
		User:      auditor,
		Username:  auditor.Username,
		Source:    builds.SourceNightly,
	})
	if err != nil {
		return nil, err
	}
	return res.Build, nil
}

// headOf resolves the branch head, returning "" when it cannot.
func (t *Trigger) headOf(ctx context.Context, site *core.Site, branch string) string {
	if t.resolver == nil {
		return ""
	}
	var token string
	if t.token != nil {
		var err error
		if token, err = t.token(ctx); err != nil {
			t.logger.Warn("no token for branch head lookup", "site_id", site.ID, "error", err)
		}
	}
	sha, err := t.resolver.ResolveBranchHead(ctx, gitutil.RepositoryURL(site.Owner, site.Repository), branch, token)
	if err != nil {
		t.logger.Warn("could not resolve branch head", "site_id", site.ID, "branch", branch, "error", err)
		return ""
	}
	return sha
}

func wrap(siteID int64, branch string, err error) error {
	return fmt.Errorf("scheduled build for site %d branch %q: %w", siteID, branch, err)
}
