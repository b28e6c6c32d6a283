package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"goally/models"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLSnapshotStore keeps one JSON snapshot row per owner. SQLite serves the
// local single-device variant, Postgres a shared server deployment.
type SQLSnapshotStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*SQLSnapshotStore, error) {
	if path == "" {
		path = "goally.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer keeps SQLITE_BUSY out of the picture
	db.SetMaxOpenConns(1)
	return newSQLSnapshotStore(ctx, db, DialectSQLite)
}

func OpenPostgres(ctx context.Context, dsn string) (*SQLSnapshotStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLSnapshotStore(ctx, db, DialectPostgres)
}

func newSQLSnapshotStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLSnapshotStore, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS snapshots (
		owner TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		last_modified BIGINT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	return &SQLSnapshotStore{db: db, dialect: dialect}, nil
}

func (s *SQLSnapshotStore) Close() error {
	return s.db.Close()
}

// For returns the repository bound to owner's row. It satisfies Factory.
func (s *SQLSnapshotStore) For(owner string) SnapshotRepository {
	return &sqlSnapshotRepository{store: s, owner: owner}
}

func (s *SQLSnapshotStore) placeholders() (string, string) {
	if s.dialect == DialectPostgres {
		return "$1", "$1, $2, $3"
	}
	return "?", "?, ?, ?"
}

type sqlSnapshotRepository struct {
	store *SQLSnapshotStore
	owner string
}

func (r *sqlSnapshotRepository) Load(ctx context.Context) (models.Snapshot, bool, error) {
	one, _ := r.store.placeholders()
	var payload string
	err := r.store.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE owner = `+one, r.owner).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("select snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	normalize(&snap)
	return snap, true, nil
}

func (r *sqlSnapshotRepository) Save(ctx context.Context, snap models.Snapshot) error {
	normalize(&snap)
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, three := r.store.placeholders()
	query := `INSERT INTO snapshots (owner, payload, last_modified) VALUES (` + three + `)
		ON CONFLICT (owner) DO UPDATE SET payload = excluded.payload, last_modified = excluded.last_modified`
	if _, err := r.store.db.ExecContext(ctx, query, r.owner, string(data), snap.LastModified); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
