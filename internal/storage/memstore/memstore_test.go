package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/pages-core-sub005/internal/core"
)

func ptr[T any](v T) *T { return &v }

func TestFindOrCreateActiveBuild(t *testing.T) {
	ctx := context.Background()
	s := New()
	site := s.AddSite(&core.Site{Owner: "owner", Repository: "repo", IsActive: true})

	first := &core.Build{SiteID: site.ID, Branch: "main", RequestedCommitSHA: "aaa", Username: "alice"}
	created, err := s.FindOrCreateActiveBuild(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, core.BuildCreated, first.State)

	second := &core.Build{SiteID: site.ID, Branch: "main", RequestedCommitSHA: "bbb", Username: "bob"}
	created, err = s.FindOrCreateActiveBuild(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "bbb", second.RequestedCommitSHA)

	other := &core.Build{SiteID: site.ID, Branch: "demo", RequestedCommitSHA: "ccc"}
	created, err = s.FindOrCreateActiveBuild(ctx, other)
	require.NoError(t, err)
	assert.True(t, created, "another branch gets its own build")

	s.SetBuildState(first.ID, core.BuildProcessing)
	third := &core.Build{SiteID: site.ID, Branch: "main", RequestedCommitSHA: "ddd"}
	created, err = s.FindOrCreateActiveBuild(ctx, third)
	require.NoError(t, err)
	assert.True(t, created, "a build picked up by a worker no longer absorbs pushes")
	assert.Len(t, s.Builds(), 3)
}

func TestSandboxOrganizationQueries(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC)

	withSite := s.AddOrganization(&core.Organization{Name: "sandbox", IsSandbox: true, SandboxNextCleaningAt: &d})
	s.AddSite(&core.Site{Owner: "o", Repository: "r", OrganizationID: ptr(withSite.ID)})
	s.AddOrganization(&core.Organization{Name: "empty", IsSandbox: true, SandboxNextCleaningAt: &d})
	permanent := s.AddOrganization(&core.Organization{Name: "permanent", SandboxNextCleaningAt: &d})
	s.AddSite(&core.Site{Owner: "o", Repository: "p", OrganizationID: ptr(permanent.ID)})

	day := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	orgs, err := s.ListSandboxOrganizationsForNotice(ctx, day)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, withSite.ID, orgs[0].ID)

	orgs, err = s.ListSandboxOrganizationsForNotice(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, orgs)

	orgs, err = s.ListSandboxOrganizationsDue(ctx, day)
	require.NoError(t, err)
	assert.Len(t, orgs, 1, "due on the same day even before the cleaning hour")

	orgs, err = s.ListSandboxOrganizationsDue(ctx, day.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, orgs)
}

func TestCountPendingBuildTasksForSite(t *testing.T) {
	ctx := context.Background()
	s := New()
	site := s.AddSite(&core.Site{Owner: "o", Repository: "r"})
	build := s.AddBuild(&core.Build{SiteID: site.ID, Branch: "main", State: core.BuildSuccess})
	typ := s.AddBuildTaskType(&core.BuildTaskType{Name: "a11y"})

	a := s.AddBuildTask(&core.BuildTask{BuildID: build.ID, BuildTaskTypeID: typ.ID})
	s.AddBuildTask(&core.BuildTask{BuildID: build.ID, BuildTaskTypeID: typ.ID, Status: core.TaskProcessing})
	s.AddBuildTask(&core.BuildTask{BuildID: build.ID, BuildTaskTypeID: typ.ID, Status: core.TaskSuccess})
	s.AddBuildTask(&core.BuildTask{BuildID: build.ID, BuildTaskTypeID: typ.ID, Status: core.TaskCancelled})

	n, err := s.CountPendingBuildTasksForSite(ctx, site.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	task, err := s.GetBuildTask(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, site.ID, task.SiteID)
	assert.Equal(t, "a11y", task.TypeName)
}

func TestConditionalTransitions(t *testing.T) {
	ctx := context.Background()
	s := New()
	site := s.AddSite(&core.Site{Owner: "owner", Repository: "repo"})
	build := s.AddBuild(&core.Build{SiteID: site.ID, Branch: "main", State: core.BuildCreated})

	moved, err := s.TransitionBuildState(ctx, build.ID, core.BuildCreated, core.BuildQueued, "")
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = s.TransitionBuildState(ctx, build.ID, core.BuildCreated, core.BuildError, "unable to queue build")
	require.NoError(t, err)
	assert.False(t, moved)
	got, _ := s.GetBuild(ctx, build.ID)
	assert.Equal(t, core.BuildQueued, got.State)
	assert.Empty(t, got.Error)

	_, err = s.TransitionBuildState(ctx, 999, core.BuildCreated, core.BuildQueued, "")
	assert.ErrorIs(t, err, core.ErrNotFound)

	taskType := s.AddBuildTaskType(&core.BuildTaskType{Name: "owasp-zap"})
	task := s.AddBuildTask(&core.BuildTask{BuildID: build.ID, BuildTaskTypeID: taskType.ID})
	s.SetBuildTaskStatus(task.ID, core.TaskSuccess)

	queued, err := s.MarkBuildTaskQueued(ctx, task.ID, 3)
	require.NoError(t, err)
	assert.False(t, queued)
	stored, _ := s.Task(task.ID)
	assert.Equal(t, core.TaskSuccess, stored.Status)

	_, err = s.MarkBuildTaskQueued(ctx, 999, 1)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
