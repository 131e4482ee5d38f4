package ksstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key layout for the remote in-memory KV backend:
//
//	ks:seq                 - INCR counter, source of monotonic key_id values
//	ks:ids                 - SET of live key_id members, backs Count
//	ks:key:<id>             - HASH {public_key, sealed_secret_key, created_at, expires_at}
//	ks:expiry               - ZSET key_id -> expires_at unix seconds (never-expiring ids omitted)
const (
	redisSeqKey    = "ks:seq"
	redisIDsKey    = "ks:ids"
	redisExpiryKey = "ks:expiry"
)

// RedisStore is the remote in-memory KV backend. Records carry no Redis TTL;
// their expiry is indexed in the ks:expiry sorted set and PruneExpired
// removes them.
type RedisStore struct {
	client *redis.Client
}

// OpenRedisStore connects to a Redis instance identified by a redis:// URL.
func OpenRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("ksstore: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ksstore: ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func redisKeyHash(keyID uint32) string {
	return "ks:key:" + strconv.FormatUint(uint64(keyID), 10)
}

func (s *RedisStore) Insert(ctx context.Context, rec Record) (uint32, error) {
	id, err := s.client.Incr(ctx, redisSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("ksstore: allocate key_id: %w", err)
	}
	keyID := uint32(id)

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisKeyHash(keyID), map[string]any{
		"public_key":        rec.PublicKey,
		"sealed_secret_key": rec.SealedSecretKey,
		"created_at":        created.Unix(),
		"expires_at":        expiresAtUnix(rec.ExpiresAt),
	})
	pipe.SAdd(ctx, redisIDsKey, keyID)
	if !rec.ExpiresAt.IsZero() {
		pipe.ZAdd(ctx, redisExpiryKey, redis.Z{Score: float64(rec.ExpiresAt.Unix()), Member: keyID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ksstore: insert: %w", err)
	}
	return keyID, nil
}

func (s *RedisStore) GetByID(ctx context.Context, keyID uint32) (Record, error) {
	vals, err := s.client.HGetAll(ctx, redisKeyHash(keyID)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("ksstore: get: %w", err)
	}
	if len(vals) == 0 {
		return Record{}, ErrNotFound
	}
	createdUnix, err := strconv.ParseInt(vals["created_at"], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("ksstore: decode created_at: %w", err)
	}
	expiresUnix, err := strconv.ParseInt(vals["expires_at"], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("ksstore: decode expires_at: %w", err)
	}
	rec := Record{
		KeyID:           keyID,
		PublicKey:       []byte(vals["public_key"]),
		SealedSecretKey: []byte(vals["sealed_secret_key"]),
		CreatedAt:       time.Unix(createdUnix, 0).UTC(),
	}
	if expiresUnix != 0 {
		rec.ExpiresAt = time.Unix(expiresUnix, 0).UTC()
	}
	return rec, nil
}

func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	count, err := s.client.SCard(ctx, redisIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("ksstore: count: %w", err)
	}
	return count, nil
}

func (s *RedisStore) PruneExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	ids, err := s.client.ZRangeByScore(ctx, redisExpiryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.Unix()-1, 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("ksstore: find expired: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, "ks:key:"+id)
	}
	pipe.SRem(ctx, redisIDsKey, toAnySlice(ids)...)
	pipe.ZRemRangeByScore(ctx, redisExpiryKey, "-inf", strconv.FormatInt(cutoff.Unix()-1, 10))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ksstore: prune: %w", err)
	}
	return int64(len(ids)), nil
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func (s *RedisStore) HealthCheck(ctx context.Context) (Health, error) {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return Health{}, fmt.Errorf("ksstore: ping: %w", err)
	}
	count, err := s.Count(ctx)
	if err != nil {
		return Health{}, err
	}
	return Health{Backend: "redis", KeyCount: count}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
