// Package sqlite keeps roster snapshots in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"rosterbot/internal/core/domain"
	"rosterbot/pkg/tracing"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS roster_snapshots (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`

// SnapshotStore persists snapshots in SQLite.
type SnapshotStore struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens the database file, creating the schema if needed.
func Open(path string) (*SnapshotStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SnapshotStore{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *SnapshotStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the database handle.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func (s *SnapshotStore) Load(ctx context.Context, key domain.SnapshotKey) ([]byte, error) {
	ctx, span := tracing.TraceStoreOperation(ctx, "load", "sqlite", string(key))
	defer span.End()

	var data []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT data FROM roster_snapshots WHERE key = ?`, string(key),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot %s: %w", key, err)
	}
	return data, nil
}

func (s *SnapshotStore) Save(ctx context.Context, key domain.SnapshotKey, data []byte) error {
	ctx, span := tracing.TraceStoreOperation(ctx, "save", "sqlite", string(key))
	defer span.End()

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO roster_snapshots (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(key), data, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", key, err)
	}
	return nil
}
