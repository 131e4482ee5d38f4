package keycache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublicKeyCacheGetUpdate(t *testing.T) {
	cache, err := OpenPublicKeyCache(filepath.Join(t.TempDir(), "pub.db"))
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	shouldRefresh, err := cache.ShouldRefresh(ctx, time.Now(), 0)
	require.NoError(t, err)
	require.True(t, shouldRefresh, "empty cache always needs refresh")

	now := time.Now().UTC().Truncate(time.Second)
	row := PublicKeyRow{
		KeyID:            1,
		PublicKey:        []byte{1, 2, 3},
		FetchedAt:        now,
		ExpiresAt:        now.Add(time.Hour),
		ToleranceSeconds: 30 * time.Second,
	}
	require.NoError(t, cache.Update(ctx, row))

	got, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, row.KeyID, got.KeyID)
	require.Equal(t, row.PublicKey, got.PublicKey)
	require.Equal(t, row.ToleranceSeconds, got.ToleranceSeconds)

	// Update again to confirm the singleton row is replaced, not duplicated.
	row2 := row
	row2.KeyID = 2
	require.NoError(t, cache.Update(ctx, row2))
	got2, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(2), got2.KeyID)
}

func TestPublicKeyCacheShouldRefreshNearExpiry(t *testing.T) {
	cache, err := OpenPublicKeyCache(filepath.Join(t.TempDir(), "pub.db"))
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, cache.Update(ctx, PublicKeyRow{
		KeyID: 1, PublicKey: []byte{1}, FetchedAt: now, ExpiresAt: now.Add(5 * time.Minute),
	}))

	shouldRefresh, err := cache.ShouldRefresh(ctx, now, 10*time.Minute)
	require.NoError(t, err)
	require.True(t, shouldRefresh, "within advance window of expiry")

	shouldRefresh, err = cache.ShouldRefresh(ctx, now, time.Minute)
	require.NoError(t, err)
	require.False(t, shouldRefresh, "outside advance window of expiry")
}

func TestIsExpiredBeyondTolerance(t *testing.T) {
	now := time.Now().UTC()
	row := PublicKeyRow{ExpiresAt: now.Add(-time.Minute), ToleranceSeconds: 30 * time.Second}
	require.True(t, row.IsExpiredBeyondTolerance(now))

	row.ToleranceSeconds = 2 * time.Minute
	require.False(t, row.IsExpiredBeyondTolerance(now))

	neverExpires := PublicKeyRow{}
	require.False(t, neverExpires.IsExpiredBeyondTolerance(now))
}

func TestPrivateKeyCachePutGet(t *testing.T) {
	cache, err := OpenPrivateKeyCache(filepath.Join(t.TempDir(), "priv.db"))
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	row := PrivateKeyRow{KeyID: 7, SecretKey: []byte("sk-bytes"), CachedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, cache.Put(ctx, row))

	got, ok, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, row.SecretKey, got.SecretKey)

	_, ok, err = cache.Get(ctx, 8)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPrivateKeyCacheReplaceSemantics(t *testing.T) {
	cache, err := OpenPrivateKeyCache(filepath.Join(t.TempDir(), "priv.db"))
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, PrivateKeyRow{KeyID: 1, SecretKey: []byte("a")}))
	require.NoError(t, cache.Put(ctx, PrivateKeyRow{KeyID: 1, SecretKey: []byte("b")}))

	got, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("b"), got.SecretKey)

	count, err := cache.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestPrivateKeyCacheExpiredTreatedAsMiss(t *testing.T) {
	cache, err := OpenPrivateKeyCache(filepath.Join(t.TempDir(), "priv.db"))
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, cache.Put(ctx, PrivateKeyRow{KeyID: 1, SecretKey: []byte("a"), ExpiresAt: now.Add(-time.Minute)}))

	_, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPrivateKeyCacheExplicitCleanup(t *testing.T) {
	cache, err := OpenPrivateKeyCache(filepath.Join(t.TempDir(), "priv.db"))
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, cache.Put(ctx, PrivateKeyRow{KeyID: 1, SecretKey: []byte("a"), ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, cache.Put(ctx, PrivateKeyRow{KeyID: 2, SecretKey: []byte("b"), ExpiresAt: now.Add(time.Hour)}))

	removed, err := cache.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	count, err := cache.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
