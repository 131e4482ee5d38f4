// Package keycache implements the issuer-side public-key cache (C8) and the
// validator-side private-key cache (C10): local durable sqlite caches that
// let the AIS issuer and the credential validator ride out a KS outage,
// ported from the original Rust KeyCache's schema and REPLACE-semantics
// idiom onto this module's database/sql+glebarez stack.
package keycache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/sqlite"
)

// DefaultAdvanceWindow is how far ahead of expiry should_refresh() fires.
const DefaultAdvanceWindow = 600 * time.Second

const publicKeySchema = `
CREATE TABLE IF NOT EXISTS public_key_cache (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	key_id INTEGER NOT NULL,
	public_key BLOB NOT NULL,
	fetched_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	tolerance_seconds INTEGER NOT NULL
);
`

// PublicKeyRow is the issuer's singleton cached key (§3.1 PublicKeyCacheRow).
type PublicKeyRow struct {
	KeyID            uint32
	PublicKey        []byte
	FetchedAt        time.Time
	ExpiresAt        time.Time // zero means "never expires"
	ToleranceSeconds time.Duration
}

// PublicKeyCache is the issuer-side singleton cache (C8).
type PublicKeyCache struct {
	db *sql.DB
}

// OpenPublicKeyCache opens (creating if absent) the public-key cache database.
func OpenPublicKeyCache(path string) (*PublicKeyCache, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("keycache: public key cache path must be configured")
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("keycache: open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("keycache: enable WAL: %w", err)
	}
	if _, err := db.Exec(publicKeySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("keycache: apply schema: %w", err)
	}
	return &PublicKeyCache{db: db}, nil
}

// Get returns the cached row, or (PublicKeyRow{}, false) if no row exists.
func (c *PublicKeyCache) Get(ctx context.Context) (PublicKeyRow, bool, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT key_id, public_key, fetched_at, expires_at, tolerance_seconds
		FROM public_key_cache WHERE id = 1
	`)
	var keyID uint32
	var pub []byte
	var fetchedUnix, expiresUnix, toleranceSecs int64
	if err := row.Scan(&keyID, &pub, &fetchedUnix, &expiresUnix, &toleranceSecs); err != nil {
		if err == sql.ErrNoRows {
			getCacheMetrics().observePublic(false)
			return PublicKeyRow{}, false, nil
		}
		return PublicKeyRow{}, false, fmt.Errorf("keycache: get: %w", err)
	}
	getCacheMetrics().observePublic(true)
	out := PublicKeyRow{
		KeyID:            keyID,
		PublicKey:        pub,
		FetchedAt:        time.Unix(fetchedUnix, 0).UTC(),
		ToleranceSeconds: time.Duration(toleranceSecs) * time.Second,
	}
	if expiresUnix != 0 {
		out.ExpiresAt = time.Unix(expiresUnix, 0).UTC()
	}
	return out, true, nil
}

// Update atomically replaces the singleton row.
func (c *PublicKeyCache) Update(ctx context.Context, row PublicKeyRow) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO public_key_cache(id, key_id, public_key, fetched_at, expires_at, tolerance_seconds)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			key_id = excluded.key_id,
			public_key = excluded.public_key,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at,
			tolerance_seconds = excluded.tolerance_seconds
	`, row.KeyID, row.PublicKey, row.FetchedAt.Unix(), expiresAtUnix(row.ExpiresAt), int64(row.ToleranceSeconds/time.Second))
	if err != nil {
		return fmt.Errorf("keycache: update: %w", err)
	}
	return nil
}

// ShouldRefresh reports whether the cache has no row, or is within
// advanceWindow of expiry (DefaultAdvanceWindow if zero).
func (c *PublicKeyCache) ShouldRefresh(ctx context.Context, now time.Time, advanceWindow time.Duration) (bool, error) {
	if advanceWindow <= 0 {
		advanceWindow = DefaultAdvanceWindow
	}
	row, ok, err := c.Get(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	if row.ExpiresAt.IsZero() {
		return false, nil
	}
	return !now.Before(row.ExpiresAt.Add(-advanceWindow)), nil
}

// IsExpiredBeyondTolerance reports whether the cached row's expiry plus its
// tolerance window has passed, meaning the issuer must refuse to issue.
func (row PublicKeyRow) IsExpiredBeyondTolerance(now time.Time) bool {
	if row.ExpiresAt.IsZero() {
		return false
	}
	return now.After(row.ExpiresAt.Add(row.ToleranceSeconds))
}

func (c *PublicKeyCache) Close() error { return c.db.Close() }

func expiresAtUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
