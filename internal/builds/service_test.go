package builds_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cloud-gov/pages-core-sub005/internal/builds"
	"github.com/cloud-gov/pages-core-sub005/internal/core"
	"github.com/cloud-gov/pages-core-sub005/internal/storage/memstore"
	"github.com/cloud-gov/pages-core-sub005/mocks"
)

type fixture struct {
	store      *memstore.Store
	dispatcher *mocks.MockDispatcher
	reporter   *mocks.MockStatusReporter
	svc        *builds.Service
	site       *core.Site
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		store:      memstore.New(),
		dispatcher: mocks.NewMockDispatcher(ctrl),
		reporter:   mocks.NewMockStatusReporter(ctrl),
	}
	f.svc = builds.NewService(f.store, f.dispatcher, f.reporter, nil, builds.Config{
		EditorUsername:     "pages-editor",
		FederalistUsersOrg: "federalist-users",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.site = f.store.AddSite(&core.Site{Owner: "owner", Repository: "repo", IsActive: true})
	return f
}

func push(sha string) *core.PushEvent {
	return &core.PushEvent{
		RepoOwner: "Owner",
		RepoName:  "Repo",
		Ref:       "refs/heads/main",
		HeadSHA:   sha,
		Pusher:    "Alice",
		PushedAt:  time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestIngestPush_FirstPushQueuesBuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.dispatcher.EXPECT().
		EnqueueSiteBuild(gomock.Any(), gomock.Any(), gomock.Any(), core.DefaultBuildPriority).
		DoAndReturn(func(_ context.Context, b *core.Build, s *core.Site, _ int) error {
			assert.Equal(t, "main", b.Branch)
			assert.Equal(t, f.site.ID, s.ID)
			return nil
		}).Times(1)
	f.reporter.EXPECT().ReportBuildStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

	res, err := f.svc.IngestPush(ctx, push("aaa"))
	require.NoError(t, err)
	assert.Equal(t, builds.ActionCreated, res.Action)
	assert.Equal(t, core.BuildQueued, res.Build.State)

	all := f.store.Builds()
	require.Len(t, all, 1)
	assert.Equal(t, core.BuildQueued, all[0].State)
	assert.Equal(t, "aaa", all[0].RequestedCommitSHA)
	assert.Equal(t, "alice", all[0].Username)
	assert.Len(t, all[0].Token, 64)
}

func TestIngestPush_SecondPushUpdatesPendingBuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.dispatcher.EXPECT().EnqueueSiteBuild(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.reporter.EXPECT().ReportBuildStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	_, err := f.svc.IngestPush(ctx, push("aaa"))
	require.NoError(t, err)

	second := push("bbb")
	second.PushedAt = second.PushedAt.Add(2 * time.Second)
	res, err := f.svc.IngestPush(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, builds.ActionUpdated, res.Action)

	all := f.store.Builds()
	require.Len(t, all, 1, "a burst of pushes collapses into one build")
	assert.Equal(t, "bbb", all[0].RequestedCommitSHA)
	assert.Equal(t, core.BuildQueued, all[0].State)
}

func TestIngestPush_NewBuildOnceWorkerStarted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.dispatcher.EXPECT().EnqueueSiteBuild(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	f.reporter.EXPECT().ReportBuildStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	first, err := f.svc.IngestPush(ctx, push("aaa"))
	require.NoError(t, err)
	f.store.SetBuildState(first.Build.ID, core.BuildProcessing)

	res, err := f.svc.IngestPush(ctx, push("bbb"))
	require.NoError(t, err)
	assert.Equal(t, builds.ActionCreated, res.Action)
	assert.Len(t, f.store.Builds(), 2)
}

func TestIngestPush_WorkerStartsBeforeQueuedMark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gomock.InOrder(
		f.dispatcher.EXPECT().EnqueueSiteBuild(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, b *core.Build, _ *core.Site, _ int) error {
				f.store.SetBuildState(b.ID, core.BuildProcessing)
				return nil
			}),
		f.dispatcher.EXPECT().EnqueueSiteBuild(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil),
	)
	f.reporter.EXPECT().ReportBuildStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	first, err := f.svc.IngestPush(ctx, push("aaa"))
	require.NoError(t, err)
	assert.Equal(t, builds.ActionCreated, first.Action)
	assert.Equal(t, core.BuildProcessing, first.Build.State)

	stored, err := f.store.GetBuild(ctx, first.Build.ID)
	require.NoError(t, err)
	assert.Equal(t, core.BuildProcessing, stored.State, "a running build is not moved back to queued")

	second, err := f.svc.IngestPush(ctx, push("bbb"))
	require.NoError(t, err)
	assert.Equal(t, builds.ActionCreated, second.Action)
	assert.Len(t, f.store.Builds(), 2)
}

func TestIngestPush_ConcurrentPushesShareOneBuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const pushes = 20

	f.dispatcher.EXPECT().EnqueueSiteBuild(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.reporter.EXPECT().ReportBuildStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(pushes)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		actions = map[builds.Action]int{}
	)
	for i := range pushes {
		wg.Add(1)
		go func(sha string) {
			defer wg.Done()
			res, err := f.svc.IngestPush(ctx, push(sha))
			assert.NoError(t, err)
			mu.Lock()
			actions[res.Action]++
			mu.Unlock()
		}(fmt.Sprintf("sha-%02d", i))
	}
	wg.Wait()

	assert.Equal(t, 1, actions[builds.ActionCreated])
	assert.Equal(t, pushes-1, actions[builds.ActionUpdated])
	assert.Len(t, f.store.Builds(), 1)
}

func TestIngestPush_Ignored(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture) *core.PushEvent
	}{
		{
			name:  "unknown site",
			setup: func(f *fixture) *core.PushEvent { e := push("a"); e.RepoName = "other"; return e },
		},
		{
			name: "inactive site",
			setup: func(f *fixture) *core.PushEvent {
				f.store.AddSite(&core.Site{ID: f.site.ID, Owner: "owner", Repository: "repo", IsActive: false})
				return push("a")
			},
		},
		{
			name: "inactive organization",
			setup: func(f *fixture) *core.PushEvent {
				org := f.store.AddOrganization(&core.Organization{Name: "agency", IsActive: false})
				f.store.AddSite(&core.Site{ID: f.site.ID, Owner: "owner", Repository: "repo", IsActive: true, OrganizationID: &org.ID})
				return push("a")
			},
		},
		{
			name:  "tag push",
			setup: func(f *fixture) *core.PushEvent { e := push("a"); e.Ref = "refs/tags/v1"; return e },
		},
		{
			name: "branch deletion",
			setup: func(f *fixture) *core.PushEvent {
				e := push("")
				e.Deleted = true
				return e
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res, err := f.svc.IngestPush(context.Background(), tt.setup(f))
			require.NoError(t, err)
			assert.Equal(t, builds.ActionIgnored, res.Action)
			assert.Empty(t, f.store.Builds())
		})
	}
}

func TestIngestPush_InvalidPayload(t *testing.T) {
	f := newFixture(t)
	ev := push("aaa")
	ev.RepoOwner = ""
	_, err := f.svc.IngestPush(context.Background(), ev)
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestIngestPush_UpdatesPusherAndToleratesFailures(t *testing.T) {
	f := newFixture(t)
	alice := f.store.AddUser(&core.User{Username: "alice"})

	f.dispatcher.EXPECT().EnqueueSiteBuild(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.reporter.EXPECT().ReportBuildStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("github down"))

	res, err := f.svc.IngestPush(context.Background(), push("aaa"))
	require.NoError(t, err, "status reporting is best effort")
	assert.Equal(t, builds.ActionCreated, res.Action)
	require.NotNil(t, res.Build.UserID)
	assert.Equal(t, alice.ID, *res.Build.UserID)

	stored, ok := f.store.User(alice.ID)
	require.True(t, ok)
	require.NotNil(t, stored.PushedAt)
	assert.True(t, stored.PushedAt.Equal(push("").PushedAt))
}

func TestIngestPush_QueueUnavailable(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.EXPECT().EnqueueSiteBuild(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(core.ErrQueueUnavailable)

	_, err := f.svc.IngestPush(context.Background(), push("aaa"))
	require.ErrorIs(t, err, core.ErrQueueUnavailable)

	all := f.store.Builds()
	require.Len(t, all, 1)
	assert.Equal(t, core.BuildError, all[0].State)
	assert.Equal(t, builds.QueueFailureMessage, all[0].Error)
}

func TestCreateEditorBuild(t *testing.T) {
	f := newFixture(t)
	editor := f.store.AddUser(&core.User{Username: "pages-editor"})

	f.dispatcher.EXPECT().EnqueueSiteBuild(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.reporter.EXPECT().ReportBuildStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	res, err := f.svc.CreateEditorBuild(context.Background(), f.site.ID)
	require.NoError(t, err)
	assert.Equal(t, builds.ActionCreated, res.Action)
	assert.Equal(t, builds.EditorBranch, res.Build.Branch)
	assert.Equal(t, editor.ID, *res.Build.UserID)

	res, err = f.svc.CreateEditorBuild(context.Background(), f.site.ID)
	require.NoError(t, err)
	assert.Equal(t, builds.ActionUpdated, res.Action, "editor builds share the dedup rule")
}

func TestCreateEditorBuild_MissingSite(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateEditorBuild(context.Background(), 9999)
	require.ErrorIs(t, err, core.ErrNotFound)
}
