package noncestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	claimKeyPrefix   = "claim:"
	expiresKeyPrefix = "expires:"
)

// LevelDBStore is a goleveldb-backed Store, grounded on the teacher's
// gateway/auth LevelDB nonce persistence: one key per claimed (nonce,context)
// recording its expiry, plus a secondary index ordered by expiry for cheap
// prefix-range pruning.
type LevelDBStore struct {
	db *leveldb.DB
	mu sync.Mutex // serializes Claim's Get-then-Write
}

// NewLevelDBStore opens (or creates) a LevelDB database at path.
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("noncestore: leveldb path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("noncestore: resolve leveldb path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("noncestore: open leveldb: %w", err)
	}
	return &LevelDBStore{db: db}, nil
}

func (s *LevelDBStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Claim is the atomic insert-or-report-duplicate primitive §4.1 requires.
func (s *LevelDBStore) Claim(ctx context.Context, nonce, context_ string, now time.Time, ttl time.Duration) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrNotConfigured
	}
	key := compositeKey(nonce, context_)
	claimKey := []byte(claimKeyPrefix + key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Get(claimKey, nil); err == nil {
		getStoreMetrics().observeClaim(true)
		return true, nil
	} else if !errors.Is(err, leveldb.ErrNotFound) {
		return false, fmt.Errorf("noncestore: load claim: %w", err)
	}

	expiresAt := now.Add(ttl).UTC()
	batch := new(leveldb.Batch)
	batch.Put(claimKey, encodeUnixNano(expiresAt.UnixNano()))
	batch.Put([]byte(expiresIndexKey(expiresAt.UnixNano(), key)), nil)

	// NOTE: goleveldb does not offer a compare-and-swap write, so s.mu holds
	// the Get above and the Write below together: concurrent Claims on this
	// store are serialized. The lock is per process; LevelDB itself lets
	// only one process open the directory at a time.
	if err := s.db.Write(batch, nil); err != nil {
		return false, fmt.Errorf("noncestore: write claim: %w", err)
	}
	getStoreMetrics().observeClaim(false)
	return false, nil
}

// Prune deletes expired claims, bounded to those with expires_at < now.
func (s *LevelDBStore) Prune(ctx context.Context, now time.Time) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	cutoff := []byte(expiresIndexKey(now.UTC().UnixNano(), ""))
	iter := s.db.NewIterator(util.BytesPrefix([]byte(expiresKeyPrefix)), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	pruned := 0
	for iter.Next() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if compareBytes(iter.Key(), cutoff) >= 0 {
			break
		}
		key, ok := parseExpiresIndexKey(iter.Key())
		if !ok {
			continue
		}
		batch.Delete(append([]byte(nil), iter.Key()...))
		batch.Delete([]byte(claimKeyPrefix + key))
		pruned++
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("noncestore: iterate expired claims: %w", err)
	}
	if batch.Len() > 0 {
		if err := s.db.Write(batch, nil); err != nil {
			return fmt.Errorf("noncestore: prune: %w", err)
		}
	}
	getStoreMetrics().observePruned(pruned)
	return nil
}

func expiresIndexKey(nanos int64, key string) string {
	return fmt.Sprintf("%s%020d:%s", expiresKeyPrefix, nanos, key)
}

func parseExpiresIndexKey(raw []byte) (string, bool) {
	s := string(raw)
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return "", false
	}
	return parts[2], true
}

func encodeUnixNano(nanos int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(nanos))
	return buf
}

func compareBytes(a, b []byte) int {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
