package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/threadwarden/threadwarden/internal/common/sqlite"
)

// SQLiteStore implements ExclusionStore on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ ExclusionStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if necessary) the database at dbPath and
// ensures the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	normalizedPath := normalizeSQLitePath(dbPath)
	if err := ensureSQLiteDir(normalizedPath); err != nil {
		return nil, fmt.Errorf("failed to prepare database path: %w", err)
	}
	if err := ensureSQLiteFile(normalizedPath); err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_mode=rwc", normalizedPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func ensureSQLiteDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func ensureSQLiteFile(dbPath string) error {
	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	return file.Close()
}

func normalizeSQLitePath(dbPath string) string {
	if dbPath == "" {
		return dbPath
	}
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return dbPath
	}
	return abs
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exclusions (
		id TEXT PRIMARY KEY,
		excluded INTEGER NOT NULL DEFAULT 1,
		added_at DATETIME NOT NULL,
		last_updated DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_exclusions_added_at ON exclusions(added_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	// Older databases predate the last_updated column.
	return sqlite.EnsureColumn(s.db, "exclusions", "last_updated", "DATETIME NOT NULL DEFAULT ''")
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the record for id, or nil if absent.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*ExclusionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, excluded, added_at, last_updated FROM exclusions WHERE id = ?
	`, id)

	record, err := scanExclusion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exclusion %s: %w", id, err)
	}
	return record, nil
}

// Set upserts the record.
func (s *SQLiteStore) Set(ctx context.Context, record *ExclusionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exclusions (id, excluded, added_at, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			excluded = excluded.excluded,
			last_updated = excluded.last_updated
	`, record.ID, sqlite.BoolToInt(record.Excluded), record.AddedAt.UTC(), record.LastUpdated.UTC())
	if err != nil {
		return fmt.Errorf("failed to set exclusion %s: %w", record.ID, err)
	}
	return nil
}

// Delete removes the record for id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM exclusions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete exclusion %s: %w", id, err)
	}
	return nil
}

// List returns all records.
func (s *SQLiteStore) List(ctx context.Context) ([]*ExclusionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, excluded, added_at, last_updated FROM exclusions ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list exclusions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*ExclusionRecord
	for rows.Next() {
		record, err := scanExclusion(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListOlderThan returns the ids of records whose added_at precedes cutoff.
func (s *SQLiteStore) ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM exclusions WHERE added_at < ?
	`, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query stale exclusions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteBatch removes all records with the given ids.
func (s *SQLiteStore) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`DELETE FROM exclusions WHERE id IN (%s)`, placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to batch delete exclusions: %w", err)
	}
	return nil
}

// scanner is the shared subset of sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExclusion(row scanner) (*ExclusionRecord, error) {
	var record ExclusionRecord
	var excluded int
	if err := row.Scan(&record.ID, &excluded, &record.AddedAt, &record.LastUpdated); err != nil {
		return nil, err
	}
	record.Excluded = excluded == 1
	return &record, nil
}
