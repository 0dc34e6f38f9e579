// Package store persists published extension versions and their
// extracted resource references.
package store

import (
	"context"
	"time"

	"github.com/vsxhub/vsxhub/pkg/extension"
)

// VersionRecord is one published extension version together with its
// derived metadata.
type VersionRecord struct {
	ID          string
	Namespace   string
	Name        string
	Version     string
	Metadata    *extension.Metadata
	PublishedAt time.Time
}

// ResourceRecord references one extracted resource blob of a version.
type ResourceRecord struct {
	VersionID  string
	Kind       extension.ResourceKind
	Name       string
	StorageKey string
	Size       int64
}

// VersionStore is the contract for version persistence.
type VersionStore interface {
	// StoreVersion persists a version record and its resource
	// references in one transaction.
	StoreVersion(ctx context.Context, record *VersionRecord, resources []*ResourceRecord) error
	// GetVersion retrieves a version by its coordinates.
	GetVersion(ctx context.Context, namespace, name, version string) (*VersionRecord, error)
	// ListVersions returns all versions of an extension, newest first.
	ListVersions(ctx context.Context, namespace, name string) ([]*VersionRecord, error)
	// Resources returns the resource references of a version.
	Resources(ctx context.Context, versionID string) ([]*ResourceRecord, error)
	// DeleteVersion removes a version and its resource references.
	DeleteVersion(ctx context.Context, versionID string) error
}
