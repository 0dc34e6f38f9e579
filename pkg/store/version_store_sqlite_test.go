package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsxhub/vsxhub/pkg/extension"

	_ "modernc.org/sqlite"
)

func newTestVersionStore(t *testing.T) *SQLiteVersionStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLiteVersionStore(db)
	require.NoError(t, err)
	return store
}

func demoRecord(version string) *VersionRecord {
	return &VersionRecord{
		ID:        uuid.NewString(),
		Namespace: "acme",
		Name:      "demo",
		Version:   version,
		Metadata: &extension.Metadata{
			Name:      "demo",
			Namespace: "acme",
			Version:   version,
			License:   "MIT",
		},
		PublishedAt: time.Now().UTC(),
	}
}

func TestStoreAndGetVersion(t *testing.T) {
	store := newTestVersionStore(t)
	ctx := context.Background()

	record := demoRecord("1.0.0")
	resources := []*ResourceRecord{
		{VersionID: record.ID, Kind: extension.KindDownload, Name: "acme.demo-1.0.0.vsix", StorageKey: "acme/demo/1.0.0/acme.demo-1.0.0.vsix", Size: 1024},
		{VersionID: record.ID, Kind: extension.KindReadme, Name: "README.md", StorageKey: "acme/demo/1.0.0/README.md", Size: 6},
	}
	require.NoError(t, store.StoreVersion(ctx, record, resources))

	got, err := store.GetVersion(ctx, "acme", "demo", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, "MIT", got.Metadata.License)
	assert.WithinDuration(t, record.PublishedAt, got.PublishedAt, time.Second)

	stored, err := store.Resources(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, extension.KindDownload, stored[0].Kind)
	assert.Equal(t, int64(1024), stored[0].Size)
}

func TestGetVersionNotFound(t *testing.T) {
	store := newTestVersionStore(t)

	_, err := store.GetVersion(context.Background(), "acme", "demo", "9.9.9")
	assert.ErrorContains(t, err, "version not found")
}

func TestDuplicateVersionRejected(t *testing.T) {
	store := newTestVersionStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreVersion(ctx, demoRecord("1.0.0"), nil))
	err := store.StoreVersion(ctx, demoRecord("1.0.0"), nil)
	assert.Error(t, err, "coordinates are unique")
}

func TestListVersionsNewestFirst(t *testing.T) {
	store := newTestVersionStore(t)
	ctx := context.Background()

	older := demoRecord("1.0.0")
	older.PublishedAt = time.Now().UTC().Add(-time.Hour)
	newer := demoRecord("1.1.0")

	require.NoError(t, store.StoreVersion(ctx, older, nil))
	require.NoError(t, store.StoreVersion(ctx, newer, nil))

	versions, err := store.ListVersions(ctx, "acme", "demo")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "1.1.0", versions[0].Version)
	assert.Equal(t, "1.0.0", versions[1].Version)
}

func TestDeleteVersion(t *testing.T) {
	store := newTestVersionStore(t)
	ctx := context.Background()

	record := demoRecord("1.0.0")
	resources := []*ResourceRecord{
		{VersionID: record.ID, Kind: extension.KindManifest, Name: "package.json", StorageKey: "acme/demo/1.0.0/package.json"},
	}
	require.NoError(t, store.StoreVersion(ctx, record, resources))
	require.NoError(t, store.DeleteVersion(ctx, record.ID))

	_, err := store.GetVersion(ctx, "acme", "demo", "1.0.0")
	assert.Error(t, err)

	remaining, err := store.Resources(ctx, record.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
