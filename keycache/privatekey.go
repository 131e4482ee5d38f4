package keycache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/sqlite"
)

// CleanupInterval bounds how often maybeCleanup actually sweeps, mirroring
// the original KeyCache's at-most-hourly cadence.
const CleanupInterval = time.Hour

const privateKeySchema = `
CREATE TABLE IF NOT EXISTS key_cache (
	key_id INTEGER PRIMARY KEY,
	secret_key BLOB NOT NULL,
	cached_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON key_cache(expires_at);
`

// PrivateKeyRow is one row of the validator-side cache (§3.1 PrivateKeyCacheRow).
type PrivateKeyRow struct {
	KeyID     uint32
	SecretKey []byte
	CachedAt  time.Time
	ExpiresAt time.Time // zero means "never expires"
}

// PrivateKeyCache is the validator-side private-key cache (C10), indexed by
// key_id with TTL from KS. lastCleanup gates the hourly-bounded sweep.
type PrivateKeyCache struct {
	db *sql.DB

	mu          sync.Mutex
	lastCleanup time.Time
	nowFn       func() time.Time
}

// OpenPrivateKeyCache opens (creating if absent) the private-key cache database.
func OpenPrivateKeyCache(path string) (*PrivateKeyCache, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("keycache: private key cache path must be configured")
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("keycache: open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("keycache: enable WAL: %w", err)
	}
	if _, err := db.Exec(privateKeySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("keycache: apply schema: %w", err)
	}
	return &PrivateKeyCache{db: db, nowFn: time.Now}, nil
}

func (c *PrivateKeyCache) now() time.Time {
	if c.nowFn != nil {
		return c.nowFn()
	}
	return time.Now()
}

// Get looks up keyID, triggering an hourly-bounded cleanup sweep first. A hit
// whose expires_at has already passed is deleted and reported as a miss —
// callers (the validator's check()) re-fetch from KS on a miss regardless of
// cause.
func (c *PrivateKeyCache) Get(ctx context.Context, keyID uint32) (PrivateKeyRow, bool, error) {
	c.maybeCleanup(ctx)

	now := c.now().UTC()
	row := c.db.QueryRowContext(ctx, `
		SELECT secret_key, cached_at, expires_at FROM key_cache WHERE key_id = ?
	`, keyID)
	var secretKey []byte
	var cachedUnix, expiresUnix int64
	if err := row.Scan(&secretKey, &cachedUnix, &expiresUnix); err != nil {
		if err == sql.ErrNoRows {
			getCacheMetrics().observePrivate(false)
			return PrivateKeyRow{}, false, nil
		}
		return PrivateKeyRow{}, false, fmt.Errorf("keycache: get: %w", err)
	}

	if expiresUnix > 0 && expiresUnix <= now.Unix() {
		_, _ = c.db.ExecContext(ctx, `DELETE FROM key_cache WHERE key_id = ?`, keyID)
		getCacheMetrics().observePrivate(false)
		return PrivateKeyRow{}, false, nil
	}

	getCacheMetrics().observePrivate(true)
	out := PrivateKeyRow{KeyID: keyID, SecretKey: secretKey, CachedAt: time.Unix(cachedUnix, 0).UTC()}
	if expiresUnix != 0 {
		out.ExpiresAt = time.Unix(expiresUnix, 0).UTC()
	}
	return out, true, nil
}

// Put inserts or replaces the row for keyID (REPLACE semantics).
func (c *PrivateKeyCache) Put(ctx context.Context, row PrivateKeyRow) error {
	cachedAt := row.CachedAt
	if cachedAt.IsZero() {
		cachedAt = c.now().UTC()
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO key_cache(key_id, secret_key, cached_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key_id) DO UPDATE SET
			secret_key = excluded.secret_key,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at
	`, row.KeyID, row.SecretKey, cachedAt.Unix(), expiresAtUnix(row.ExpiresAt))
	if err != nil {
		return fmt.Errorf("keycache: put: %w", err)
	}
	return nil
}

// CleanupExpired deletes every row whose expires_at is non-zero and in the
// past, returning the number of rows removed. Exported for an explicit,
// out-of-band sweep in addition to the hourly-bounded one Get triggers.
func (c *PrivateKeyCache) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM key_cache WHERE expires_at > 0 AND expires_at < ?
	`, c.now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("keycache: cleanup: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil {
		getCacheMetrics().observeEvicted(affected)
	}
	return affected, err
}

// maybeCleanup runs CleanupExpired at most once per CleanupInterval,
// lock-coordinated so concurrent Get calls never observe a partial sweep.
func (c *PrivateKeyCache) maybeCleanup(ctx context.Context) {
	now := c.now().UTC()

	c.mu.Lock()
	due := now.Sub(c.lastCleanup) >= CleanupInterval
	if due {
		c.lastCleanup = now
	}
	c.mu.Unlock()

	if !due {
		return
	}
	_, _ = c.CleanupExpired(ctx)
}

// Count returns the number of rows currently cached.
func (c *PrivateKeyCache) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM key_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("keycache: count: %w", err)
	}
	return count, nil
}

func (c *PrivateKeyCache) Close() error { return c.db.Close() }
