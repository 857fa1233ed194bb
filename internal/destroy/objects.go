package destroy

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cloud-gov/pages-core-sub005/internal/config"
	"github.com/cloud-gov/pages-core-sub005/internal/core"
)

// ObjectRemover deletes every stored object that belongs to a site.
type ObjectRemover interface {
	RemoveSiteObjects(ctx context.Context, site *core.Site) error
}

// objectAPI is the subset of *minio.Client used for removal.
type objectAPI interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObjects(ctx context.Context, bucketName string, objectsCh <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError
}

// SitePrefixes lists the key prefixes under which a site's published,
// preview and demo files live.
func SitePrefixes(site *core.Site) []string {
	path := site.Owner + "/" + site.Repository + "/"
	return []string{"site/" + path, "preview/" + path, "demo/" + path}
}

// MinioRemover removes site objects from an S3-compatible store.
type MinioRemover struct {
	client objectAPI
	bucket string
}

// NewMinioRemover connects to the configured object store.
func NewMinioRemover(cfg config.StorageConfig) (*MinioRemover, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client for %s: %w", cfg.Endpoint, err)
	}
	return &MinioRemover{client: client, bucket: cfg.Bucket}, nil
}

// RemoveSiteObjects removes every object under the site's prefixes from the
// site's bucket, or the shared bucket when the site has none.
func (m *MinioRemover) RemoveSiteObjects(ctx context.Context, site *core.Site) error {
	bucket := site.BucketName
	if bucket == "" {
		bucket = m.bucket
	}
	if bucket == "" {
		return fmt.Errorf("no storage bucket for site %d", site.ID)
	}

	var errs []error
	for _, prefix := range SitePrefixes(site) {
		errs = append(errs, m.removePrefix(ctx, bucket, prefix)...)
	}
	return errors.Join(errs...)
}

func (m *MinioRemover) removePrefix(ctx context.Context, bucket, prefix string) []error {
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var listErr error
	listed := make(chan struct{})
	objects := make(chan minio.ObjectInfo)
	go func() {
		defer close(listed)
		defer close(objects)
		for obj := range m.client.ListObjects(listCtx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				listErr = fmt.Errorf("list %s: %w", prefix, obj.Err)
				continue
			}
			select {
			case objects <- obj:
			case <-listCtx.Done():
				return
			}
		}
	}()

	var errs []error
	for removeErr := range m.client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("remove %s: %w", removeErr.ObjectName, removeErr.Err))
	}
	// RemoveObjects may stop reading early; release the lister before
	// reading its result.
	cancel()
	<-listed
	if listErr != nil {
		errs = append(errs, listErr)
	}
	return errs
}
