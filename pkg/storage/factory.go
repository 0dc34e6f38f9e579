package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// StoreType represents the blob storage backend.
type StoreType string

const (
	StoreTypeFS  StoreType = "fs"
	StoreTypeS3  StoreType = "s3"
	StoreTypeGCS StoreType = "gcs"
)

// NewStoreFromEnv creates a blob store based on environment variables.
//
// Environment variables:
//   - RESOURCE_STORAGE_TYPE: "fs" (default), "s3", or "gcs"
//   - DATA_DIR: Base directory for filesystem store (default: "data")
//
// For S3:
//   - AWS_REGION or RESOURCE_S3_REGION
//   - RESOURCE_S3_BUCKET (required)
//   - RESOURCE_S3_ENDPOINT (optional, for MinIO/LocalStack)
//   - RESOURCE_S3_PREFIX (optional)
//
// For GCS:
//   - RESOURCE_GCS_BUCKET (required)
//   - RESOURCE_GCS_PREFIX (optional)
func NewStoreFromEnv(ctx context.Context) (BlobStore, error) {
	storeType := StoreType(os.Getenv("RESOURCE_STORAGE_TYPE"))
	if storeType == "" {
		storeType = StoreTypeFS
	}

	switch storeType {
	case StoreTypeFS:
		return newFileStoreFromEnv()
	case StoreTypeS3:
		return newS3StoreFromEnv(ctx)
	case StoreTypeGCS:
		return newGCSStoreFromEnv(ctx)
	default:
		return nil, fmt.Errorf("storage: unsupported storage type: %s", storeType)
	}
}

func newFileStoreFromEnv() (BlobStore, error) {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	return NewFileStore(filepath.Join(dataDir, "resources"))
}

func newS3StoreFromEnv(ctx context.Context) (BlobStore, error) {
	bucket := os.Getenv("RESOURCE_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("storage: RESOURCE_S3_BUCKET is required for S3 storage")
	}

	region := os.Getenv("RESOURCE_S3_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	return NewS3Store(ctx, S3StoreConfig{
		Bucket:   bucket,
		Region:   region,
		Endpoint: os.Getenv("RESOURCE_S3_ENDPOINT"),
		Prefix:   os.Getenv("RESOURCE_S3_PREFIX"),
	})
}
