// Package ksstore defines the backend-agnostic key store abstraction
// consumed by the KS service, and its three interchangeable
// implementations: embedded sqlite, remote relational database, and remote
// in-memory KV.
package ksstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by GetByID when no record matches key_id.
var ErrNotFound = errors.New("ksstore: key record not found")

// Record is the persisted shape of a KS-side key: {key_id, public_key,
// sealed_secret_key, created_at, expires_at}.
type Record struct {
	KeyID           uint32
	PublicKey       []byte
	SealedSecretKey []byte
	CreatedAt       time.Time
	ExpiresAt       time.Time // zero value means "never expires"
}

// Health summarizes backend status for the KS HealthCheck RPC.
type Health struct {
	Backend  string
	KeyCount int64
}

// Store abstracts over {insert, get_by_id, count, prune_expired,
// health_check}. All implementations enforce key_id as primary key, accept
// sealed_secret_key as opaque bytes, return expires_at on reads, and allow
// concurrent readers while an insert is in flight.
type Store interface {
	// Insert assigns the next monotonic key_id and persists rec, returning
	// the assigned id. Callers must not set rec.KeyID; it is ignored.
	Insert(ctx context.Context, rec Record) (keyID uint32, err error)

	// GetByID returns the record for keyID, or ErrNotFound.
	GetByID(ctx context.Context, keyID uint32) (Record, error)

	// Count returns the total number of live (non-pruned) records.
	Count(ctx context.Context) (int64, error)

	// PruneExpired deletes records whose expires_at is non-zero and strictly
	// before cutoff, returning the number of rows removed.
	PruneExpired(ctx context.Context, cutoff time.Time) (int64, error)

	// HealthCheck reports backend connectivity and a current key count.
	HealthCheck(ctx context.Context) (Health, error)

	Close() error
}
