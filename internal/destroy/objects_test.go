package destroy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/pages-core-sub005/internal/core"
)

type fakeObjectAPI struct {
	buckets map[string][]string
	failOn  string
	// rejectBucket fails RemoveObjects before it reads any object.
	rejectBucket bool
	removed      []string
	listed  []string
}

func (f *fakeObjectAPI) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.listed = append(f.listed, bucket+":"+opts.Prefix)
	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		for _, key := range f.buckets[bucket] {
			if !strings.HasPrefix(key, opts.Prefix) {
				continue
			}
			select {
			case ch <- minio.ObjectInfo{Key: key}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (f *fakeObjectAPI) RemoveObjects(_ context.Context, _ string, objects <-chan minio.ObjectInfo, _ minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError {
	errs := make(chan minio.RemoveObjectError, 16)
	if f.rejectBucket {
		errs <- minio.RemoveObjectError{Err: errors.New("invalid bucket name")}
		close(errs)
		return errs
	}
	go func() {
		defer close(errs)
		for obj := range objects {
			if obj.Key == f.failOn {
				errs <- minio.RemoveObjectError{ObjectName: obj.Key, Err: errors.New("access denied")}
				continue
			}
			f.removed = append(f.removed, obj.Key)
		}
	}()
	return errs
}

func TestSitePrefixes(t *testing.T) {
	site := &core.Site{Owner: "agency", Repository: "site"}
	assert.Equal(t, []string{"site/agency/site/", "preview/agency/site/", "demo/agency/site/"}, SitePrefixes(site))
}

func TestMinioRemover_RemoveSiteObjects(t *testing.T) {
	api := &fakeObjectAPI{buckets: map[string][]string{
		"shared": {
			"site/agency/site/index.html",
			"preview/agency/site/feature/index.html",
			"demo/agency/site/index.html",
			"site/agency/site-two/index.html",
		},
	}}
	remover := &MinioRemover{client: api, bucket: "shared"}

	err := remover.RemoveSiteObjects(context.Background(), &core.Site{ID: 1, Owner: "agency", Repository: "site"})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"site/agency/site/index.html",
		"preview/agency/site/feature/index.html",
		"demo/agency/site/index.html",
	}, api.removed)
}

func TestMinioRemover_DedicatedBucket(t *testing.T) {
	api := &fakeObjectAPI{buckets: map[string][]string{"dedicated": {"site/agency/site/a.css"}}}
	remover := &MinioRemover{client: api, bucket: "shared"}

	err := remover.RemoveSiteObjects(context.Background(), &core.Site{Owner: "agency", Repository: "site", BucketName: "dedicated"})

	require.NoError(t, err)
	assert.Equal(t, []string{"site/agency/site/a.css"}, api.removed)
	for _, l := range api.listed {
		assert.True(t, strings.HasPrefix(l, "dedicated:"))
	}
}

func TestMinioRemover_CollectsRemovalErrors(t *testing.T) {
	api := &fakeObjectAPI{
		buckets: map[string][]string{"shared": {"site/agency/site/a.html", "site/agency/site/b.html"}},
		failOn:  "site/agency/site/a.html",
	}
	remover := &MinioRemover{client: api, bucket: "shared"}

	err := remover.RemoveSiteObjects(context.Background(), &core.Site{Owner: "agency", Repository: "site"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "remove site/agency/site/a.html: access denied")
	assert.Equal(t, []string{"site/agency/site/b.html"}, api.removed)
}

func TestMinioRemover_NoBucket(t *testing.T) {
	remover := &MinioRemover{client: &fakeObjectAPI{}}
	assert.Error(t, remover.RemoveSiteObjects(context.Background(), &core.Site{ID: 3}))
}

func TestMinioRemover_RemoveStopsReadingEarly(t *testing.T) {
	api := &fakeObjectAPI{
		rejectBucket: true,
		buckets: map[string][]string{"Bad_Bucket": {
			"site/agency/site/a.html",
			"site/agency/site/b.html",
		}},
	}
	remover := &MinioRemover{client: api, bucket: "Bad_Bucket"}

	done := make(chan error, 1)
	go func() { done <- remover.RemoveSiteObjects(context.Background(), &core.Site{ID: 1, Owner: "agency", Repository: "site"}) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid bucket name")
		assert.Empty(t, api.removed)
	case <-time.After(5 * time.Second):
		t.Fatal("removal did not return after RemoveObjects stopped reading")
	}
}
