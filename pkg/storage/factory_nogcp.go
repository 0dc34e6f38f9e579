//go:build !gcp

package storage

import (
	"context"
	"fmt"
)

func newGCSStoreFromEnv(ctx context.Context) (BlobStore, error) {
	return nil, fmt.Errorf("storage: GCS storage is not enabled in this build (use -tags gcp)")
}
