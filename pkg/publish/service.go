// Package publish implements the ingestion pipeline: an uploaded
// package is processed, its resources are persisted to blob storage,
// the version is recorded, and the extension is registered in the
// catalog.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsxhub/vsxhub/pkg/config"
	"github.com/vsxhub/vsxhub/pkg/extension"
	"github.com/vsxhub/vsxhub/pkg/observability"
	"github.com/vsxhub/vsxhub/pkg/ratelimit"
	"github.com/vsxhub/vsxhub/pkg/registry"
	"github.com/vsxhub/vsxhub/pkg/storage"
	"github.com/vsxhub/vsxhub/pkg/store"
)

var (
	ErrRateLimited       = errors.New("publish: namespace is rate limited")
	ErrIncompletePackage = errors.New("publish: package metadata is incomplete")
	ErrLicenseNotAllowed = errors.New("publish: license is not allowed for this namespace")
)

// Options configure the ingestion pipeline.
type Options struct {
	// SizeLimit caps the uploaded package size in bytes.
	SizeLimit int64
	// IncludeWebResources extracts the web-resource tree for web
	// extensions.
	IncludeWebResources bool
	// Profiles holds per-namespace policy overrides, keyed by
	// namespace.
	Profiles map[string]*config.NamespaceProfile
}

// Result describes a completed publish.
type Result struct {
	VersionID string
	Metadata  *extension.Metadata
	Resources []*store.ResourceRecord
	Warnings  []string
}

// Service runs the ingestion pipeline.
type Service struct {
	blobs     storage.BlobStore
	versions  store.VersionStore
	catalog   registry.Catalog
	limiter   ratelimit.Limiter
	telemetry *observability.Provider
	opts      Options
	logger    *slog.Logger
}

// New assembles the pipeline. The limiter and telemetry provider are
// optional; a nil limiter admits everything.
func New(blobs storage.BlobStore, versions store.VersionStore, catalog registry.Catalog,
	limiter ratelimit.Limiter, telemetry *observability.Provider, opts Options) *Service {
	return &Service{
		blobs:     blobs,
		versions:  versions,
		catalog:   catalog,
		limiter:   limiter,
		telemetry: telemetry,
		opts:      opts,
		logger:    slog.Default().With("component", "publish"),
	}
}

// Publish ingests one uploaded package. User errors (oversized input,
// broken archives, missing or invalid manifests, incomplete metadata,
// throttling) are reported to the caller; everything else is an
// internal failure.
func (s *Service) Publish(ctx context.Context, input io.Reader) (result *Result, err error) {
	if s.telemetry != nil {
		var done func(error)
		ctx, done = s.telemetry.TrackPublish(ctx)
		defer func() { done(err) }()
	}

	processor := extension.New(input, extension.Options{
		SizeLimit:           s.opts.SizeLimit,
		IncludeWebResources: s.opts.IncludeWebResources,
	})
	defer func() { _ = processor.Close() }()

	md, err := processor.Metadata()
	if err != nil {
		s.logger.WarnContext(ctx, "package rejected", "error", err)
		return nil, err
	}
	if md.Name == "" || md.Namespace == "" || md.Version == "" {
		return nil, fmt.Errorf("%w: name, publisher and version are required", ErrIncompletePackage)
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("extension.namespace", md.Namespace),
		attribute.String("extension.name", md.Name),
		attribute.String("extension.version", md.Version),
	)

	if s.limiter != nil {
		allowed, limitErr := s.limiter.Allow(ctx, md.Namespace)
		if limitErr != nil {
			return nil, fmt.Errorf("publish: rate limiter: %w", limitErr)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, md.Namespace)
		}
	}

	resources, err := processor.Resources(md)
	if err != nil {
		return nil, err
	}

	profile := s.opts.Profiles[md.Namespace]
	if profile != nil && !profile.AllowsLicense(md.License) {
		return nil, fmt.Errorf("%w: %q", ErrLicenseNotAllowed, md.License)
	}

	var warnings []string
	for _, res := range resources {
		if res.Kind == extension.KindManifest {
			warnings = extension.ManifestWarnings(res.Content)
			break
		}
	}

	versionID := uuid.New().String()
	records := make([]*store.ResourceRecord, 0, len(resources))
	for _, res := range resources {
		key := storage.ResourceKey(res)
		if putErr := s.blobs.Put(ctx, key, res.Content); putErr != nil {
			return nil, fmt.Errorf("publish: store resource %s: %w", key, putErr)
		}
		records = append(records, &store.ResourceRecord{
			VersionID:  versionID,
			Kind:       res.Kind,
			Name:       res.Name,
			StorageKey: key,
			Size:       int64(len(res.Content)),
		})
	}

	record := &store.VersionRecord{
		ID:          versionID,
		Namespace:   md.Namespace,
		Name:        md.Name,
		Version:     md.Version,
		Metadata:    md,
		PublishedAt: time.Now().UTC(),
	}
	if err := s.versions.StoreVersion(ctx, record, records); err != nil {
		s.rollbackBlobs(ctx, records)
		return nil, fmt.Errorf("publish: store version: %w", err)
	}

	entry := &registry.Entry{
		ID:          versionID,
		Namespace:   md.Namespace,
		Name:        md.Name,
		Version:     md.Version,
		DisplayName: md.DisplayName,
		Description: md.Description,
		License:     md.License,
		Categories:  md.Categories,
		Tags:        md.Tags,
		Preview:     md.Preview,
		PublishedAt: record.PublishedAt,
	}
	if err := s.catalog.Register(ctx, entry); err != nil {
		s.rollbackVersion(ctx, versionID, records)
		return nil, fmt.Errorf("publish: register extension: %w", err)
	}

	s.logger.InfoContext(ctx, "extension published",
		"namespace", md.Namespace,
		"name", md.Name,
		"version", md.Version,
		"resources", len(records),
		"warnings", len(warnings),
	)

	return &Result{
		VersionID: versionID,
		Metadata:  md,
		Resources: records,
		Warnings:  warnings,
	}, nil
}

// rollbackBlobs removes blobs written before a later pipeline stage
// failed. Removal is best effort.
func (s *Service) rollbackBlobs(ctx context.Context, records []*store.ResourceRecord) {
	for _, record := range records {
		if err := s.blobs.Remove(ctx, record.StorageKey); err != nil {
			s.logger.WarnContext(ctx, "rollback: remove blob failed",
				"key", record.StorageKey, "error", err)
		}
	}
}

func (s *Service) rollbackVersion(ctx context.Context, versionID string, records []*store.ResourceRecord) {
	if err := s.versions.DeleteVersion(ctx, versionID); err != nil {
		s.logger.WarnContext(ctx, "rollback: delete version failed",
			"version_id", versionID, "error", err)
	}
	s.rollbackBlobs(ctx, records)
}

// IsUserError reports whether the publish failure should be shown to
// the uploader rather than treated as an internal fault.
func IsUserError(err error) bool {
	return extension.IsUserError(err) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrIncompletePackage) ||
		errors.Is(err, ErrLicenseNotAllowed)
}
