package scheduled_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cloud-gov/pages-core-sub005/internal/builds"
	"github.com/cloud-gov/pages-core-sub005/internal/core"
	"github.com/cloud-gov/pages-core-sub005/internal/scheduled"
	"github.com/cloud-gov/pages-core-sub005/internal/storage/memstore"
	"github.com/cloud-gov/pages-core-sub005/mocks"
)

type fakeCreator struct {
	mu       sync.Mutex
	requests []builds.BuildRequest
	failSite int64
}

func (f *fakeCreator) CreateBuild(_ context.Context, req builds.BuildRequest) (builds.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if req.Site.ID == f.failSite {
		return builds.Result{}, core.ErrQueueUnavailable
	}
	return builds.Result{Action: builds.ActionCreated, Build: &core.Build{SiteID: req.Site.ID, Branch: req.Branch}}, nil
}

type fakeResolver struct {
	heads map[string]string
}

func (f *fakeResolver) ResolveBranchHead(_ context.Context, repoURL, branch, _ string) (string, error) {
	if sha, ok := f.heads[repoURL+"#"+branch]; ok {
		return sha, nil
	}
	return "", errors.New("remote unreachable")
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func seed(t *testing.T) (*memstore.Store, *core.Site, *core.Site) {
	t.Helper()
	store := memstore.New()
	store.AddUser(&core.User{Username: "federalist"})
	a := store.AddSite(&core.Site{Owner: "agency", Repository: "alpha", IsActive: true})
	b := store.AddSite(&core.Site{Owner: "agency", Repository: "beta", IsActive: true})
	main, preview, docs := "main", "preview", "docs"
	store.AddBranchConfig(&core.SiteBranchConfig{SiteID: a.ID, Branch: &main, Config: "schedule: nightly\n"})
	store.AddBranchConfig(&core.SiteBranchConfig{SiteID: a.ID, Branch: &preview, Config: "headers:\n  - x-frame-options: DENY\n"})
	store.AddBranchConfig(&core.SiteBranchConfig{SiteID: b.ID, Branch: &docs, Config: `{"schedule": "nightly"}`})
	store.AddBranchConfig(&core.SiteBranchConfig{SiteID: b.ID, Config: "schedule: nightly\n"})
	return store, a, b
}

func TestTriggerScheduledBuilds(t *testing.T) {
	store, a, b := seed(t)
	creator := &fakeCreator{}
	resolver := &fakeResolver{heads: map[string]string{"https://github.com/agency/alpha.git#main": "abc123"}}
	trigger := scheduled.NewTrigger(store, creator, resolver, nil, "federalist", discard())

	outcomes, err := trigger.TriggerScheduledBuilds(context.Background())

	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.NoError(t, o.Err, o.Label)
	}
	require.Len(t, creator.requests, 2)

	bySite := map[int64]builds.BuildRequest{}
	for _, r := range creator.requests {
		bySite[r.Site.ID] = r
	}
	assert.Equal(t, "main", bySite[a.ID].Branch)
	assert.Equal(t, "abc123", bySite[a.ID].CommitSHA)
	assert.Equal(t, "docs", bySite[b.ID].Branch)
	assert.Empty(t, bySite[b.ID].CommitSHA, "head resolution is best-effort")
	for _, r := range creator.requests {
		assert.Equal(t, "federalist", r.Username)
		assert.Equal(t, builds.SourceNightly, r.Source)
	}
}

func TestTriggerScheduledBuilds_FailureIsolatedAndWrapped(t *testing.T) {
	store, _, b := seed(t)
	creator := &fakeCreator{failSite: b.ID}
	trigger := scheduled.NewTrigger(store, creator, nil, nil, "federalist", discard())

	outcomes, err := trigger.TriggerScheduledBuilds(context.Background())

	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Failed())
	require.True(t, outcomes[1].Failed())
	assert.ErrorIs(t, outcomes[1].Err, core.ErrQueueUnavailable)
	assert.Contains(t, outcomes[1].Err.Error(), `scheduled build for site 3 branch "docs"`)
}

func TestTriggerScheduledBuilds_MissingAuditor(t *testing.T) {
	store, _, _ := seed(t)
	creator := &fakeCreator{}
	trigger := scheduled.NewTrigger(store, creator, nil, nil, "nobody", discard())

	outcomes, err := trigger.TriggerScheduledBuilds(context.Background())

	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.ErrorIs(t, o.Err, core.ErrNotFound)
	}
	assert.Empty(t, creator.requests)
}

func TestTriggerScheduledBuilds_ReusesDedup(t *testing.T) {
	store, _, _ := seed(t)
	ctrl := gomock.NewController(t)
	dispatcher := mocks.NewMockDispatcher(ctrl)
	reporter := mocks.NewMockStatusReporter(ctrl)
	reporter.EXPECT().ReportBuildStatus(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	dispatcher.EXPECT().EnqueueSiteBuild(gomock.Any(), gomock.Any(), gomock.Any(), core.DefaultBuildPriority).Return(nil).Times(2)

	service := builds.NewService(store, dispatcher, reporter, nil, builds.Config{EditorUsername: "pages-editor"}, discard())
	trigger := scheduled.NewTrigger(store, service, nil, nil, "federalist", discard())

	for range 2 {
		outcomes, err := trigger.TriggerScheduledBuilds(context.Background())
		require.NoError(t, err)
		for _, o := range outcomes {
			require.NoError(t, o.Err)
		}
	}
	assert.Len(t, store.Builds(), 2)
}
