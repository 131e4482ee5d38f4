package noncestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/sqlite"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS nonce_records (
	nonce      TEXT NOT NULL,
	context    TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	PRIMARY KEY (nonce, context)
);
CREATE INDEX IF NOT EXISTS idx_nonce_records_expires_at ON nonce_records(expires_at);
`

// SQLStore is a database/sql-backed Store, opened against a sqlite DSN by
// default (the same glebarez driver the embedded key store uses) but usable
// against any database/sql driver that supports `INSERT ... ON CONFLICT
// DO NOTHING`-style atomic inserts.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) a WAL-mode sqlite nonce store at path.
func OpenSQLiteStore(path string) (*SQLStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("noncestore: sqlite path required")
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("noncestore: open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("noncestore: enable wal: %w", err)
	}
	if _, err := db.Exec(sqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("noncestore: apply schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Claim relies on the primary key (nonce, context) to make the insert atomic:
// a second concurrent insert for the same key fails the unique constraint,
// which this reports back as duplicate=true rather than an error.
func (s *SQLStore) Claim(ctx context.Context, nonce, context_ string, now time.Time, ttl time.Duration) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrNotConfigured
	}
	createdAt := now.UTC().Unix()
	expiresAt := now.Add(ttl).UTC().Unix()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO nonce_records (nonce, context, created_at, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(nonce, context) DO NOTHING`,
		nonce, context_, createdAt, expiresAt)
	if err != nil {
		return false, fmt.Errorf("noncestore: insert claim: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("noncestore: rows affected: %w", err)
	}
	duplicate := affected == 0
	getStoreMetrics().observeClaim(duplicate)
	return duplicate, nil
}

// Prune deletes rows whose expires_at has passed.
func (s *SQLStore) Prune(ctx context.Context, now time.Time) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM nonce_records WHERE expires_at < ?`, now.UTC().Unix())
	if err != nil {
		return fmt.Errorf("noncestore: prune: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil {
		getStoreMetrics().observePruned(int(affected))
	}
	return nil
}
