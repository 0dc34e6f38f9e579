package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedTime() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func entry(namespace, name, version string) *Entry {
	return &Entry{Namespace: namespace, Name: name, Version: version}
}

func TestMemoryCatalogRegister(t *testing.T) {
	catalog := NewMemoryCatalog()
	ctx := context.Background()

	e := entry("acme", "demo", "1.0.0")
	require.NoError(t, catalog.Register(ctx, e))
	assert.NotEmpty(t, e.ID, "an id is assigned on registration")
	assert.False(t, e.PublishedAt.IsZero())
	assert.Equal(t, 1, catalog.Count())
}

func TestMemoryCatalogRejectsDuplicates(t *testing.T) {
	catalog := NewMemoryCatalog()
	ctx := context.Background()

	require.NoError(t, catalog.Register(ctx, entry("acme", "demo", "1.0.0")))
	err := catalog.Register(ctx, entry("acme", "demo", "1.0.0"))
	assert.ErrorContains(t, err, "already published")
}

func TestMemoryCatalogRejectsInvalidVersions(t *testing.T) {
	catalog := NewMemoryCatalog()

	err := catalog.Register(context.Background(), entry("acme", "demo", "not-semver"))
	assert.ErrorContains(t, err, "invalid version")
}

func TestMemoryCatalogLatest(t *testing.T) {
	catalog := NewMemoryCatalog()
	ctx := context.Background()

	require.NoError(t, catalog.Register(ctx, entry("acme", "demo", "1.0.0")))
	require.NoError(t, catalog.Register(ctx, entry("acme", "demo", "1.10.0")))
	require.NoError(t, catalog.Register(ctx, entry("acme", "demo", "1.2.0")))

	latest, err := catalog.Latest(ctx, "acme", "demo")
	require.NoError(t, err)
	assert.Equal(t, "1.10.0", latest.Version, "semantic ordering, not lexical")

	_, err = catalog.Latest(ctx, "acme", "missing")
	assert.ErrorIs(t, err, ErrExtensionNotFound)
}

func TestMemoryCatalogVersions(t *testing.T) {
	catalog := NewMemoryCatalog()
	ctx := context.Background()

	for _, v := range []string{"2.0.0", "1.0.0", "1.5.0"} {
		require.NoError(t, catalog.Register(ctx, entry("acme", "demo", v)))
	}

	versions, err := catalog.Versions(ctx, "acme", "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"2.0.0", "1.5.0", "1.0.0"}, versions)
}

func TestMemoryCatalogUnregister(t *testing.T) {
	catalog := NewMemoryCatalog()
	ctx := context.Background()

	require.NoError(t, catalog.Register(ctx, entry("acme", "demo", "1.0.0")))
	require.NoError(t, catalog.Unregister(ctx, "acme", "demo", "1.0.0"))
	assert.Equal(t, 0, catalog.Count())

	err := catalog.Unregister(ctx, "acme", "demo", "1.0.0")
	assert.ErrorIs(t, err, ErrExtensionNotFound)
}

func TestMemoryCatalogSearch(t *testing.T) {
	catalog := NewMemoryCatalog()
	ctx := context.Background()

	linter := entry("acme", "linter", "1.0.0")
	linter.Categories = []string{"Linters"}
	linter.Tags = []string{"style"}
	require.NoError(t, catalog.Register(ctx, linter))

	theme := entry("zen", "theme", "2.0.0")
	theme.Categories = []string{"Themes"}
	require.NoError(t, catalog.Register(ctx, theme))

	t.Run("by namespace", func(t *testing.T) {
		results := catalog.Search(ctx, SearchQuery{Namespace: "acme"})
		require.Len(t, results, 1)
		assert.Equal(t, "linter", results[0].Name)
	})

	t.Run("by category", func(t *testing.T) {
		results := catalog.Search(ctx, SearchQuery{Category: "Themes"})
		require.Len(t, results, 1)
		assert.Equal(t, "theme", results[0].Name)
	})

	t.Run("by tag", func(t *testing.T) {
		results := catalog.Search(ctx, SearchQuery{Tag: "style"})
		require.Len(t, results, 1)
		assert.Equal(t, "linter", results[0].Name)
	})

	t.Run("unfiltered returns deterministic order", func(t *testing.T) {
		results := catalog.Search(ctx, SearchQuery{})
		require.Len(t, results, 2)
		assert.Equal(t, "acme", results[0].Namespace)
		assert.Equal(t, "zen", results[1].Namespace)
	})

	t.Run("limit", func(t *testing.T) {
		results := catalog.Search(ctx, SearchQuery{Limit: 1})
		assert.Len(t, results, 1)
	})
}

func TestMemoryCatalogStateHash(t *testing.T) {
	ctx := context.Background()

	build := func(versions ...string) *MemoryCatalog {
		catalog := NewMemoryCatalog()
		for _, v := range versions {
			e := entry("acme", "demo", v)
			e.ID = "fixed-" + v
			e.PublishedAt = fixedTime()
			require.NoError(t, catalog.Register(ctx, e))
		}
		return catalog
	}

	first, err := build("1.0.0", "1.1.0").StateHash()
	require.NoError(t, err)
	second, err := build("1.1.0", "1.0.0").StateHash()
	require.NoError(t, err)
	assert.Equal(t, first, second, "hash is independent of registration order")

	third, err := build("1.0.0").StateHash()
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}
