package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"

	_ "github.com/lib/pq"
)

// PostgresCatalog implements Catalog with SQL persistence.
type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

const pgCatalogSchema = `
CREATE TABLE IF NOT EXISTS catalog_entries (
	namespace TEXT NOT NULL,
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	entry_json JSONB NOT NULL,
	published_at TIMESTAMP NOT NULL,
	PRIMARY KEY (namespace, name, version)
);
`

func (c *PostgresCatalog) Init(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, pgCatalogSchema)
	return err
}

func (c *PostgresCatalog) Register(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("registry: nil entry")
	}
	if _, err := semver.NewVersion(entry.Version); err != nil {
		return fmt.Errorf("registry: invalid version %q: %w", entry.Version, err)
	}
	if entry.PublishedAt.IsZero() {
		entry.PublishedAt = time.Now().UTC()
	}

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("registry: marshal entry: %w", err)
	}

	query := `
		INSERT INTO catalog_entries (namespace, name, version, entry_json, published_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = c.db.ExecContext(ctx, query, entry.Namespace, entry.Name, entry.Version, entryJSON, entry.PublishedAt)
	if err != nil {
		return fmt.Errorf("registry: insert entry: %w", err)
	}
	return nil
}

func (c *PostgresCatalog) Latest(ctx context.Context, namespace, name string) (*Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT version, entry_json FROM catalog_entries WHERE namespace = $1 AND name = $2",
		namespace, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	type versionedEntry struct {
		v    *semver.Version
		data []byte
	}
	var entries []versionedEntry

	for rows.Next() {
		var verStr string
		var entryJSON []byte
		if err := rows.Scan(&verStr, &entryJSON); err != nil {
			continue
		}
		v, err := semver.NewVersion(verStr)
		if err != nil {
			continue
		}
		entries = append(entries, versionedEntry{v: v, data: entryJSON})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, ErrExtensionNotFound
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].v.GreaterThan(entries[j].v)
	})

	var entry Entry
	if err := json.Unmarshal(entries[0].data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *PostgresCatalog) Versions(ctx context.Context, namespace, name string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT version FROM catalog_entries WHERE namespace = $1 AND name = $2",
		namespace, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var parsed []*semver.Version
	for rows.Next() {
		var verStr string
		if err := rows.Scan(&verStr); err != nil {
			continue
		}
		if v, err := semver.NewVersion(verStr); err == nil {
			parsed = append(parsed, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, ErrExtensionNotFound
	}

	sort.Sort(sort.Reverse(semver.Collection(parsed)))
	versions := make([]string, len(parsed))
	for i, v := range parsed {
		versions[i] = v.Original()
	}
	return versions, nil
}

func (c *PostgresCatalog) Unregister(ctx context.Context, namespace, name, version string) error {
	result, err := c.db.ExecContext(ctx,
		"DELETE FROM catalog_entries WHERE namespace = $1 AND name = $2 AND version = $3",
		namespace, name, version)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrExtensionNotFound
	}
	return nil
}
