package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vsxhub/vsxhub/pkg/extension"

	_ "modernc.org/sqlite"
)

// SQLiteVersionStore implements VersionStore on an SQLite database.
type SQLiteVersionStore struct {
	db *sql.DB
}

// NewSQLiteVersionStore wraps the database handle and applies the
// schema migration.
func NewSQLiteVersionStore(db *sql.DB) (*SQLiteVersionStore, error) {
	s := &SQLiteVersionStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteVersionStore) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS versions (
        id TEXT PRIMARY KEY,
        namespace TEXT NOT NULL,
        name TEXT NOT NULL,
        version TEXT NOT NULL,
        metadata JSON,
        published_at DATETIME,
        UNIQUE (namespace, name, version)
    );
    CREATE TABLE IF NOT EXISTS resources (
        version_id TEXT NOT NULL REFERENCES versions(id),
        kind TEXT NOT NULL,
        name TEXT NOT NULL,
        storage_key TEXT NOT NULL,
        size INTEGER NOT NULL DEFAULT 0
    );
    CREATE INDEX IF NOT EXISTS idx_resources_version ON resources(version_id);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteVersionStore) StoreVersion(ctx context.Context, record *VersionRecord, resources []*ResourceRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin version insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	metaJSON, _ := json.Marshal(record.Metadata)
	publishedAt := record.PublishedAt.UTC().Format(time.RFC3339Nano)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO versions (id, namespace, name, version, metadata, published_at) VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.Namespace, record.Name, record.Version, string(metaJSON), publishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}

	for _, res := range resources {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO resources (version_id, kind, name, storage_key, size) VALUES (?, ?, ?, ?, ?)`,
			record.ID, string(res.Kind), res.Name, res.StorageKey, res.Size,
		)
		if err != nil {
			return fmt.Errorf("failed to insert resource: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit version insert: %w", err)
	}
	return nil
}

func (s *SQLiteVersionStore) GetVersion(ctx context.Context, namespace, name, version string) (*VersionRecord, error) {
	query := `
        SELECT id, namespace, name, version, metadata, published_at
        FROM versions
        WHERE namespace = ? AND name = ? AND version = ?
    `
	row := s.db.QueryRowContext(ctx, query, namespace, name, version)
	record, err := scanVersionRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("version not found: %s.%s@%s", namespace, name, version)
		}
		return nil, err
	}
	return record, nil
}

func (s *SQLiteVersionStore) ListVersions(ctx context.Context, namespace, name string) ([]*VersionRecord, error) {
	query := `
        SELECT id, namespace, name, version, metadata, published_at
        FROM versions
        WHERE namespace = ? AND name = ?
        ORDER BY published_at DESC
    `
	rows, err := s.db.QueryContext(ctx, query, namespace, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []*VersionRecord
	for rows.Next() {
		record, err := scanVersionRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *SQLiteVersionStore) Resources(ctx context.Context, versionID string) ([]*ResourceRecord, error) {
	query := `
        SELECT version_id, kind, name, storage_key, size
        FROM resources
        WHERE version_id = ?
    `
	rows, err := s.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []*ResourceRecord
	for rows.Next() {
		var (
			record ResourceRecord
			kind   string
		)
		if err := rows.Scan(&record.VersionID, &kind, &record.Name, &record.StorageKey, &record.Size); err != nil {
			return nil, err
		}
		record.Kind = extension.ResourceKind(kind)
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *SQLiteVersionStore) DeleteVersion(ctx context.Context, versionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin version delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM resources WHERE version_id = ?`, versionID); err != nil {
		return fmt.Errorf("failed to delete resources: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM versions WHERE id = ?`, versionID); err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit version delete: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersionRow(row rowScanner) (*VersionRecord, error) {
	var (
		record      VersionRecord
		metaJSON    sql.NullString
		publishedAt string
	)
	if err := row.Scan(&record.ID, &record.Namespace, &record.Name, &record.Version, &metaJSON, &publishedAt); err != nil {
		return nil, err
	}
	record.PublishedAt = parseStoredTime(publishedAt)

	if metaJSON.Valid && metaJSON.String != "" {
		var md extension.Metadata
		if err := json.Unmarshal([]byte(metaJSON.String), &md); err == nil {
			record.Metadata = &md
		}
	}
	return &record, nil
}

func parseStoredTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
