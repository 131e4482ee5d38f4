package noncestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) []Store {
	t.Helper()
	lvl, err := NewLevelDBStore(filepath.Join(t.TempDir(), "nonces.ldb"))
	require.NoError(t, err)
	t.Cleanup(func() { lvl.Close() })

	sq, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "nonces.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	return []Store{lvl, sq}
}

func TestClaimUniquenessPerNonceAndContext(t *testing.T) {
	for _, store := range newStores(t) {
		ctx := context.Background()
		now := time.Now()

		dup, err := store.Claim(ctx, "abc123", "ks", now, time.Minute)
		require.NoError(t, err)
		require.False(t, dup)

		dup, err = store.Claim(ctx, "abc123", "ks", now, time.Minute)
		require.NoError(t, err)
		require.True(t, dup, "second claim of the same (nonce, context) must report duplicate")

		// Same nonce under a different context is a distinct key.
		dup, err = store.Claim(ctx, "abc123", "ais", now, time.Minute)
		require.NoError(t, err)
		require.False(t, dup)
	}
}

func TestPruneRemovesExpiredClaims(t *testing.T) {
	for _, store := range newStores(t) {
		ctx := context.Background()
		past := time.Now().Add(-time.Hour)

		dup, err := store.Claim(ctx, "expired-nonce", "ks", past, time.Millisecond)
		require.NoError(t, err)
		require.False(t, dup)

		require.NoError(t, store.Prune(ctx, time.Now()))

		// Having been pruned, the same nonce can be claimed again.
		dup, err = store.Claim(ctx, "expired-nonce", "ks", time.Now(), time.Minute)
		require.NoError(t, err)
		require.False(t, dup)
	}
}
