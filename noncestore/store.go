// Package noncestore implements the nonce store (C3): durable storage of
// {nonce, context, created_at, expires_at} with a unique (nonce, context)
// key, whose Claim operation is the atomic "first insert wins" primitive the
// anti-replay authenticator (authcred) builds on.
package noncestore

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned by a zero-value Store.
var ErrNotConfigured = errors.New("noncestore: store not configured")

// Record mirrors the NonceRecord entity from the data model.
type Record struct {
	Nonce     string
	Context   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store is the durable nonce store abstraction. Implementations MUST make
// Claim linearizable per (nonce, context): concurrent callers racing on the
// same key see exactly one success.
type Store interface {
	// Claim atomically inserts (nonce, context) with the given TTL. It
	// returns duplicate=true (and no error) if the key was already present,
	// which the caller must treat as DuplicateNonce.
	Claim(ctx context.Context, nonce, context_ string, now time.Time, ttl time.Duration) (duplicate bool, err error)
	// Prune deletes rows whose expires_at has passed.
	Prune(ctx context.Context, now time.Time) error
	// Close releases underlying resources.
	Close() error
}

func compositeKey(nonce, context_ string) string {
	if context_ == "" {
		return "\x00" + nonce
	}
	return context_ + "\x00" + nonce
}
