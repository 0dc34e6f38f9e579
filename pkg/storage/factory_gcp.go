//go:build gcp

package storage

import (
	"context"
	"fmt"
	"os"
)

func newGCSStoreFromEnv(ctx context.Context) (BlobStore, error) {
	bucket := os.Getenv("RESOURCE_GCS_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("storage: RESOURCE_GCS_BUCKET is required for GCS storage")
	}

	return NewGCSStore(ctx, GCSStoreConfig{
		Bucket: bucket,
		Prefix: os.Getenv("RESOURCE_GCS_PREFIX"),
	})
}
