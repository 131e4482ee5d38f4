package ksstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS key_records (
	key_id INTEGER PRIMARY KEY AUTOINCREMENT,
	public_key BLOB NOT NULL,
	sealed_secret_key BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
`

// SQLiteStore is the embedded, file-based backend. It enables WAL mode for
// durability under concurrent readers while writes are in flight.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if absent) a sqlite-backed key store at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("ksstore: sqlite path must be configured")
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("ksstore: open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ksstore: enable WAL: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ksstore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec Record) (uint32, error) {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO key_records(public_key, sealed_secret_key, created_at, expires_at)
		VALUES(?, ?, ?, ?)
	`, rec.PublicKey, rec.SealedSecretKey, created.Unix(), expiresAtUnix(rec.ExpiresAt))
	if err != nil {
		return 0, fmt.Errorf("ksstore: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ksstore: last insert id: %w", err)
	}
	return uint32(id), nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, keyID uint32) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key_id, public_key, sealed_secret_key, created_at, expires_at
		FROM key_records WHERE key_id = ?
	`, keyID)
	return scanRecord(row)
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM key_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ksstore: count: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) PruneExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM key_records WHERE expires_at != 0 AND expires_at < ?
	`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("ksstore: prune: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) (Health, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return Health{}, fmt.Errorf("ksstore: ping: %w", err)
	}
	count, err := s.Count(ctx)
	if err != nil {
		return Health{}, err
	}
	return Health{Backend: "sqlite", KeyCount: count}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var createdUnix, expiresUnix int64
	if err := row.Scan(&rec.KeyID, &rec.PublicKey, &rec.SealedSecretKey, &createdUnix, &expiresUnix); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("ksstore: scan: %w", err)
	}
	rec.CreatedAt = time.Unix(createdUnix, 0).UTC()
	if expiresUnix != 0 {
		rec.ExpiresAt = time.Unix(expiresUnix, 0).UTC()
	}
	return rec, nil
}

func expiresAtUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
