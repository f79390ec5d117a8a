package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pricewatch/internal/filters"
	"pricewatch/internal/shared/constants"
	"pricewatch/pkg/cache"
)

// ErrStaleRevision is returned by Store.Save when the session was written
// after the revision the caller read.
var ErrStaleRevision = errors.New("session changed since it was read")

// Store persists the selection of each session between requests. Every
// write bumps the record's revision; Save only succeeds against the revision
// the caller read, and revision 0 creates a new session.
type Store interface {
	Get(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, id string, sel filters.Selection, revision uint64) (uint64, error)
	Delete(ctx context.Context, id string) error
}

// Record is one stored session.
type Record struct {
	Selection filters.Selection `json:"selection"`
	Revision  uint64            `json:"revision"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// RedisStore keeps selections in Redis. Reads extend the expiry.
type RedisStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewRedisStore(c cache.Service, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = constants.TTL_SESSION_DEFAULT
	}
	return &RedisStore{cache: c, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	key := constants.BuildSessionKey(id)

	var rec Record
	if err := s.cache.Get(ctx, key, &rec); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return Record{}, ErrSessionNotFound
		}
		return Record{}, fmt.Errorf("get session %s: %w", id, err)
	}
	// Sliding expiry; a failed touch only shortens the session's life.
	_ = s.cache.Touch(ctx, key, s.ttl)

	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, sel filters.Selection, revision uint64) (uint64, error) {
	rec := Record{Selection: sel, Revision: revision + 1, UpdatedAt: time.Now().UTC()}
	err := s.cache.CompareAndSet(ctx, constants.BuildSessionKey(id), "revision", revision, rec, s.ttl)
	switch {
	case err == nil:
		return rec.Revision, nil
	case errors.Is(err, cache.ErrCacheMiss):
		return 0, ErrSessionNotFound
	case errors.Is(err, cache.ErrConflict):
		return 0, ErrStaleRevision
	default:
		return 0, fmt.Errorf("save session %s: %w", id, err)
	}
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	key := constants.BuildSessionKey(id)
	if !s.cache.Exists(ctx, key) {
		return ErrSessionNotFound
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// MemoryStore is the in-process fallback used when Redis is disabled.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = constants.TTL_SESSION_DEFAULT
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	now := s.now()
	if !ok || !now.Before(e.expiresAt) {
		delete(s.entries, id)
		return Record{}, ErrSessionNotFound
	}
	e.expiresAt = now.Add(s.ttl)
	s.entries[id] = e
	return e.record, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, sel filters.Selection, revision uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)

	e, ok := s.entries[id]
	switch {
	case !ok && revision != 0:
		return 0, ErrSessionNotFound
	case ok && e.record.Revision != revision:
		return 0, ErrStaleRevision
	}

	rec := Record{Selection: sel, Revision: revision + 1, UpdatedAt: now.UTC()}
	s.entries[id] = memoryEntry{record: rec, expiresAt: now.Add(s.ttl)}
	return rec.Revision, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	delete(s.entries, id)
	if !ok || !s.now().Before(e.expiresAt) {
		return ErrSessionNotFound
	}
	return nil
}

func (s *MemoryStore) evictLocked(now time.Time) {
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}
