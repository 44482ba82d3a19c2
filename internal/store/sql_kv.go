package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	kvTableName         = "loveletter_overrides"
	sqlOperationTimeout = 5 * time.Second
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// sqlDialect captures the statements that differ between drivers.
type sqlDialect struct {
	driver string
	schema string
	get    string
	upsert string
	delete string
	setup  []string
}

var sqliteDialect = sqlDialect{
	driver: "sqlite",
	schema: `CREATE TABLE IF NOT EXISTS ` + kvTableName + ` (
		name TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	get: `SELECT value FROM ` + kvTableName + ` WHERE name = ?`,
	upsert: `INSERT INTO ` + kvTableName + ` (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
	delete: `DELETE FROM ` + kvTableName + ` WHERE name = ?`,
	setup: []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	},
}

var postgresDialect = sqlDialect{
	driver: "postgres",
	schema: `CREATE TABLE IF NOT EXISTS ` + kvTableName + ` (
		name TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	get: `SELECT value FROM ` + kvTableName + ` WHERE name = $1`,
	upsert: `INSERT INTO ` + kvTableName + ` (name, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
	delete: `DELETE FROM ` + kvTableName + ` WHERE name = $1`,
}

// SQLKV stores overrides in a single table of a SQL database. The connection is opened
// lazily on first use.
type SQLKV struct {
	dsn     string
	dialect sqlDialect
	openDB  sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

// NewSQLiteKV returns a KV backed by a SQLite file at path.
func NewSQLiteKV(path string) (*SQLKV, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrInvalidInput
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create sqlite dir: %w", err)
		}
	}
	return &SQLKV{dsn: path, dialect: sqliteDialect, openDB: sql.Open}, nil
}

// NewPostgresKV returns a KV backed by PostgreSQL.
func NewPostgresKV(dsn string) (*SQLKV, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrInvalidInput
	}
	return &SQLKV{dsn: dsn, dialect: postgresDialect, openDB: sql.Open}, nil
}

func (s *SQLKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, sqlOperationTimeout)
	defer cancel()

	var value []byte
	err := s.db.QueryRowContext(ctx, s.dialect.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: %s get: %w", s.dialect.driver, err)
	}
	return value, nil
}

func (s *SQLKV) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrInvalidInput
	}
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, sqlOperationTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, key, value); err != nil {
		return fmt.Errorf("store: %s set: %w", s.dialect.driver, err)
	}
	return nil
}

func (s *SQLKV) Delete(ctx context.Context, key string) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, sqlOperationTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, s.dialect.delete, key); err != nil {
		return fmt.Errorf("store: %s delete: %w", s.dialect.driver, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLKV) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLKV) ensureReady(ctx context.Context) error {
	s.initOnce.Do(func() {
		db, err := s.openDB(s.dialect.driver, s.dsn)
		if err != nil {
			s.initErr = fmt.Errorf("store: open %s: %w", s.dialect.driver, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sqlOperationTimeout)
		defer cancel()

		for _, stmt := range s.dialect.setup {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				_ = db.Close()
				s.initErr = fmt.Errorf("store: apply %q: %w", stmt, err)
				return
			}
		}
		if _, err := db.ExecContext(ctx, s.dialect.schema); err != nil {
			_ = db.Close()
			s.initErr = fmt.Errorf("store: create %s schema: %w", s.dialect.driver, err)
			return
		}
		s.db = db
	})
	return s.initErr
}
