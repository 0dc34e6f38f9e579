// Package registry catalogs published extensions and answers version
// queries. The in-memory implementation backs tests and single-node
// deployments; PostgresCatalog persists the same contract.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
)

var ErrExtensionNotFound = errors.New("registry: extension not found")

// Entry is one published extension version in the catalog.
type Entry struct {
	ID          string    `json:"id"`
	Namespace   string    `json:"namespace"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	DisplayName string    `json:"display_name,omitempty"`
	Description string    `json:"description,omitempty"`
	License     string    `json:"license,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Preview     bool      `json:"preview,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

func (e *Entry) coordinates() string {
	return e.Namespace + "." + e.Name
}

// Catalog is the source of truth for published extensions.
type Catalog interface {
	// Register records a published version. The same coordinates may
	// not be registered twice.
	Register(ctx context.Context, entry *Entry) error
	// Latest returns the highest semantic version of an extension.
	Latest(ctx context.Context, namespace, name string) (*Entry, error)
	// Versions returns all published versions, highest first.
	Versions(ctx context.Context, namespace, name string) ([]string, error)
	// Unregister removes one published version.
	Unregister(ctx context.Context, namespace, name, version string) error
}

// MemoryCatalog is a thread-safe in-memory Catalog.
type MemoryCatalog struct {
	mu      sync.RWMutex
	entries map[string][]*Entry // namespace.name -> versions
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{entries: make(map[string][]*Entry)}
}

func (c *MemoryCatalog) Register(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("registry: nil entry")
	}
	if entry.Namespace == "" || entry.Name == "" {
		return errors.New("registry: namespace and name are required")
	}
	if _, err := semver.NewVersion(entry.Version); err != nil {
		return fmt.Errorf("registry: invalid version %q: %w", entry.Version, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := entry.coordinates()
	for _, existing := range c.entries[key] {
		if existing.Version == entry.Version {
			return fmt.Errorf("registry: %s@%s is already published", key, entry.Version)
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.PublishedAt.IsZero() {
		entry.PublishedAt = time.Now().UTC()
	}
	c.entries[key] = append(c.entries[key], entry)
	return nil
}

func (c *MemoryCatalog) Latest(ctx context.Context, namespace, name string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	versions := c.entries[namespace+"."+name]
	if len(versions) == 0 {
		return nil, ErrExtensionNotFound
	}

	latest := versions[0]
	latestVer, _ := semver.NewVersion(latest.Version)
	for _, entry := range versions[1:] {
		v, _ := semver.NewVersion(entry.Version)
		if v.GreaterThan(latestVer) {
			latest, latestVer = entry, v
		}
	}
	return latest, nil
}

func (c *MemoryCatalog) Versions(ctx context.Context, namespace, name string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := c.entries[namespace+"."+name]
	if len(entries) == 0 {
		return nil, ErrExtensionNotFound
	}

	parsed := make([]*semver.Version, 0, len(entries))
	for _, entry := range entries {
		if v, err := semver.NewVersion(entry.Version); err == nil {
			parsed = append(parsed, v)
		}
	}
	sort.Sort(sort.Reverse(semver.Collection(parsed)))

	versions := make([]string, len(parsed))
	for i, v := range parsed {
		versions[i] = v.Original()
	}
	return versions, nil
}

func (c *MemoryCatalog) Unregister(ctx context.Context, namespace, name, version string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := namespace + "." + name
	entries := c.entries[key]
	for i, entry := range entries {
		if entry.Version == version {
			c.entries[key] = append(entries[:i], entries[i+1:]...)
			if len(c.entries[key]) == 0 {
				delete(c.entries, key)
			}
			return nil
		}
	}
	return ErrExtensionNotFound
}

// SearchQuery filters catalog entries.
type SearchQuery struct {
	Namespace string
	Category  string
	Tag       string
	Limit     int
}

// Search finds the latest version of every extension matching the
// query, in deterministic coordinate order.
func (c *MemoryCatalog) Search(ctx context.Context, query SearchQuery) []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var results []*Entry
	for _, key := range keys {
		entry := latestOf(c.entries[key])
		if entry == nil {
			continue
		}
		if query.Namespace != "" && entry.Namespace != query.Namespace {
			continue
		}
		if query.Category != "" && !containsString(entry.Categories, query.Category) {
			continue
		}
		if query.Tag != "" && !containsString(entry.Tags, query.Tag) {
			continue
		}
		results = append(results, entry)
		if query.Limit > 0 && len(results) == query.Limit {
			break
		}
	}
	return results
}

// StateHash computes a canonical hash of the catalog contents. Two
// catalogs holding the same entries hash identically regardless of
// registration order.
func (c *MemoryCatalog) StateHash() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make([]*Entry, 0)
	for _, entries := range c.entries {
		all = append(all, entries...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].coordinates() != all[j].coordinates() {
			return all[i].coordinates() < all[j].coordinates()
		}
		return all[i].Version < all[j].Version
	})

	data, err := json.Marshal(all)
	if err != nil {
		return "", fmt.Errorf("registry: marshal state: %w", err)
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("registry: canonicalize state: %w", err)
	}
	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:]), nil
}

// Count returns the total number of registered versions.
func (c *MemoryCatalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, entries := range c.entries {
		total += len(entries)
	}
	return total
}

func latestOf(entries []*Entry) *Entry {
	var (
		latest    *Entry
		latestVer *semver.Version
	)
	for _, entry := range entries {
		v, err := semver.NewVersion(entry.Version)
		if err != nil {
			continue
		}
		if latest == nil || v.GreaterThan(latestVer) {
			latest, latestVer = entry, v
		}
	}
	return latest
}

func containsString(list []string, value string) bool {
	for _, element := range list {
		if element == value {
			return true
		}
	}
	return false
}
