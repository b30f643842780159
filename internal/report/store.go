package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Entry is a cached report with the time it was computed.
type Entry struct {
	Document   Document  `json:"document"`
	ComputedAt time.Time `json:"computed_at"`
}

// Store holds cache entries keyed by report kind. Validity is decided by the
// Cache, not the store.
type Store interface {
	Get(ctx context.Context, kind Kind) (Entry, bool, error)
	Put(ctx context.Context, kind Kind, entry Entry) error
}

// MemoryStore keeps entries in process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Kind]Entry
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Kind]Entry)}
}

// Get returns the entry for kind if present.
func (m *MemoryStore) Get(_ context.Context, kind Kind) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[kind]
	return e, ok, nil
}

// Put replaces the entry for kind.
func (m *MemoryStore) Put(_ context.Context, kind Kind, entry Entry) error {
	m.mu.Lock()
	m.entries[kind] = entry
	m.mu.Unlock()
	return nil
}

// DefaultRedisPrefix namespaces report keys in a shared redis.
const DefaultRedisPrefix = "dormcore:report:"

// RedisStore shares entries between processes through redis. Keys expire
// after the configured ttl so abandoned entries do not linger.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps client. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Key returns the redis key used for kind.
func (s *RedisStore) Key(kind Kind) string { return s.prefix + string(kind) }

// Get loads and decodes the entry for kind.
func (s *RedisStore) Get(ctx context.Context, kind Kind) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.Key(kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("redis get %s: %w", kind, err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached %s: %w", kind, err)
	}
	return e, true, nil
}

// Put encodes and stores the entry for kind.
func (s *RedisStore) Put(ctx context.Context, kind Kind, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	if err := s.client.Set(ctx, s.Key(kind), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", kind, err)
	}
	return nil
}
