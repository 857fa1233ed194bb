// Package builds turns pushes, editor requests and scheduled triggers into
// queued Build records, keeping at most one active build per site branch.
package builds

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloud-gov/pages-core-sub005/internal/core"
	"github.com/cloud-gov/pages-core-sub005/internal/metrics"
	"github.com/cloud-gov/pages-core-sub005/internal/storage"
)

// EditorBranch is the branch editor builds always target.
const EditorBranch = "main"

// QueueFailureMessage is recorded on a build that could not be queued.
const QueueFailureMessage = "unable to queue build"

// Build sources, used as metric labels.
const (
	SourcePush    = "push"
	SourceEditor  = "editor"
	SourceNightly = "nightly"
)

// Action is what an ingestion did.
type Action string

const (
	ActionIgnored Action = "ignored"
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Result reports the outcome of a build request.
type Result struct {
	Action Action
	Build  *core.Build
}

// BuildRequest is the shared input of every build creation path.
type BuildRequest struct {
	Site      *core.Site
	Branch    string
	CommitSHA string
	// User is optional; Username is recorded either way.
	User     *core.User
	Username string
	Source   string
}

// Config holds the identities the service acts as or on.
type Config struct {
	EditorUsername     string
	FederalistUsersOrg string
}

// Service implements build lifecycle operations.
type Service struct {
	store      storage.Store
	dispatcher core.Dispatcher
	reporter   core.StatusReporter
	recorder   metrics.Recorder
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a Service.
func NewService(
	store storage.Store,
	dispatcher core.Dispatcher,
	reporter core.StatusReporter,
	recorder metrics.Recorder,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		reporter:   reporter,
		recorder:   recorder,
		cfg:        cfg,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// IngestPush creates or refreshes the active build for a pushed branch.
// Pushes to unknown or inactive sites, branch deletions and tag pushes are
// ignored.
func (s *Service) IngestPush(ctx context.Context, ev *core.PushEvent) (Result, error) {
	if err := core.Validate(ev); err != nil {
		return Result{}, err
	}
	branch := ev.Branch()
	if ev.Deleted || branch == "" {
		s.logger.Debug("ignoring push", "ref", ev.Ref, "deleted", ev.Deleted)
		return Result{Action: ActionIgnored}, nil
	}

	site, err := s.store.FindSiteByRepository(ctx, ev.RepoOwner, ev.RepoName)
	if errors.Is(err, core.ErrNotFound) {
		s.logger.Debug("ignoring push for unknown site", "owner", ev.RepoOwner, "repo", ev.RepoName)
		return Result{Action: ActionIgnored}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if !site.CanBuild() {
		s.logger.Info("ignoring push for inactive site", "site_id", site.ID)
		return Result{Action: ActionIgnored}, nil
	}

	user := s.touchPusher(ctx, ev)

	return s.CreateBuild(ctx, BuildRequest{
		Site:      site,
		Branch:    branch,
		CommitSHA: ev.HeadSHA,
		User:      user,
		Username:  core.NormalizeUsername(ev.Pusher),
		Source:    SourcePush,
	})
}

// touchPusher resolves the pushing user and records the push time. Failures
// are logged and yield a nil user.
func (s *Service) touchPusher(ctx context.Context, ev *core.PushEvent) *core.User {
	user, err := s.store.GetUserByUsername(ctx, ev.Pusher)
	if err != nil {
		s.logger.Debug("push from unresolved user", "username", ev.Pusher, "error", err)
		return nil
	}
	if err := s.store.UpdateUserPushedAt(ctx, user.ID, ev.PushedAt); err != nil {
		s.logger.Warn("failed to update user push time", "user_id", user.ID, "error", err)
	}
	return user
}

// CreateEditorBuild requests a build of the site's main branch on behalf of
// the editor service account.
func (s *Service) CreateEditorBuild(ctx context.Context, siteID int64) (Result, error) {
	site, err := s.store.GetSite(ctx, siteID)
	if err != nil {
		return Result{}, err
	}
	user, err := s.store.GetUserByUsername(ctx, s.cfg.EditorUsername)
	if err != nil {
		return Result{}, fmt.Errorf("resolve editor account: %w", err)
	}
	return s.CreateBuild(ctx, BuildRequest{
		Site:     site,
		Branch:   EditorBranch,
		User:     user,
		Username: user.Username,
		Source:   SourceEditor,
	})
}

// CreateBuild finds or creates the active build for the request's site
// branch. A new build is queued; an existing one takes the new commit and
// user and is not queued again.
func (s *Service) CreateBuild(ctx context.Context, req BuildRequest) (Result, error) {
	token, err := newToken()
	if err != nil {
		return Result{}, err
	}
	build := &core.Build{
		SiteID:             req.Site.ID,
		Branch:             req.Branch,
		RequestedCommitSHA: req.CommitSHA,
		Username:           req.Username,
		Token:              token,
	}
	if req.User != nil {
		build.UserID = &req.User.ID
		if build.Username == "" {
			build.Username = req.User.Username
		}
	}

	created, err := s.store.FindOrCreateActiveBuild(ctx, build)
	if err != nil {
		return Result{}, err
	}

	if !created {
		s.recorder.IncBuildDeduplicated(req.Source)
		s.logger.Info("updated pending build",
			"site_id", req.Site.ID, "build_id", build.ID, "branch", req.Branch, "sha", build.RequestedCommitSHA)
		s.reportStatus(ctx, req.Site, build)
		return Result{Action: ActionUpdated, Build: build}, nil
	}

	if err := s.dispatcher.EnqueueSiteBuild(ctx, build, req.Site, core.DefaultBuildPriority); err != nil {
		// An unqueued build must leave the active states.
		if _, uerr := s.store.TransitionBuildState(ctx, build.ID, core.BuildCreated, core.BuildError, QueueFailureMessage); uerr != nil {
			s.logger.Error("failed to mark unqueued build", "build_id", build.ID, "error", uerr)
		}
		return Result{}, fmt.Errorf("enqueue build %d: %w", build.ID, err)
	}
	queued, err := s.store.TransitionBuildState(ctx, build.ID, core.BuildCreated, core.BuildQueued, "")
	if err != nil {
		return Result{}, err
	}
	build.State = core.BuildQueued
	if !queued {
		// A worker took the build before it was marked queued.
		if current, err := s.store.GetBuild(ctx, build.ID); err == nil {
			build.State = current.State
		}
		s.logger.Debug("build advanced before queued", "build_id", build.ID, "state", build.State)
	}

	s.recorder.IncBuildCreated(req.Source)
	s.logger.Info("queued build",
		"site_id", req.Site.ID, "build_id", build.ID, "branch", req.Branch, "source", req.Source)
	s.reportStatus(ctx, req.Site, build)
	return Result{Action: ActionCreated, Build: build}, nil
}

func (s *Service) reportStatus(ctx context.Context, site *core.Site, build *core.Build) {
	if err := s.reporter.ReportBuildStatus(ctx, site, build); err != nil {
		s.logger.Warn("failed to report build status", "build_id", build.ID, "error", err)
	}
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate build token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
