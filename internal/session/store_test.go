package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/filters"
	"pricewatch/internal/shared/constants"
	"pricewatch/pkg/cache"
)

// mapCache is an in-memory cache.Service that records TTLs.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	c.ttls[key] = ttl
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	delete(c.ttls, key)
	return nil
}

func (c *mapCache) DeletePattern(context.Context, string) (int, error) { return 0, nil }

func (c *mapCache) Exists(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func (c *mapCache) Touch(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; !ok {
		return cache.ErrCacheMiss
	}
	c.ttls[key] = ttl
	return nil
}

func (c *mapCache) CompareAndSet(_ context.Context, key, field string, expected uint64, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.data[key]
	switch {
	case !ok && expected != 0:
		return cache.ErrCacheMiss
	case ok && expected == 0:
		return cache.ErrConflict
	case ok:
		var doc map[string]interface{}
		if err := json.Unmarshal(current, &doc); err != nil {
			return err
		}
		if rev, _ := doc[field].(float64); uint64(rev) != expected {
			return cache.ErrConflict
		}
	}
	c.data[key] = raw
	c.ttls[key] = ttl
	return nil
}

func (c *mapCache) Ping(context.Context) error { return nil }

var _ cache.Service = (*mapCache)(nil)

func TestRedisStore(t *testing.T) {
	c := newMapCache()
	store := NewRedisStore(c, time.Hour)
	ctx := context.Background()
	id := "0b6c5f1a-9f0e-4d53-8d3c-7c1a2e4b5d60"
	sel := filters.Selection{Country: "Poland", Package: "Alpha"}

	_, err := store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	rev, err := store.Save(ctx, id, sel, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)
	key := constants.BuildSessionKey(id)
	assert.Equal(t, time.Hour, c.ttls[key])

	c.ttls[key] = time.Minute
	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sel, got.Selection)
	assert.Equal(t, uint64(1), got.Revision)
	assert.Equal(t, time.Hour, c.ttls[key], "read extends the expiry")

	require.NoError(t, store.Delete(ctx, id))
	assert.ErrorIs(t, store.Delete(ctx, id), ErrSessionNotFound)
}

func TestRedisStore_DefaultTTL(t *testing.T) {
	c := newMapCache()
	store := NewRedisStore(c, 0)

	_, err := store.Save(context.Background(), "s", filters.Selection{}, 0)
	require.NoError(t, err)
	assert.Equal(t, constants.TTL_SESSION_DEFAULT, c.ttls[constants.BuildSessionKey("s")])
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()
	sel := filters.Selection{Country: "Greece"}

	_, err := store.Save(ctx, "a", sel, 0)
	require.NoError(t, err)

	now = now.Add(50 * time.Minute)
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, sel, got.Selection)

	// The read above slid the expiry forward.
	now = now.Add(50 * time.Minute)
	_, err = store.Get(ctx, "a")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "a"), ErrSessionNotFound)
}

func TestMemoryStore_SaveEvictsExpired(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := store.Save(ctx, "old", filters.Selection{}, 0)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = store.Save(ctx, "new", filters.Selection{}, 0)
	require.NoError(t, err)

	assert.Len(t, store.entries, 1)
	assert.Contains(t, store.entries, "new")
}

func TestStore_SaveChecksRevision(t *testing.T) {
	stores := map[string]Store{
		"redis":  NewRedisStore(newMapCache(), time.Hour),
		"memory": NewMemoryStore(time.Hour),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Save(ctx, "a", filters.Selection{Country: "Poland"}, 1)
			assert.ErrorIs(t, err, ErrSessionNotFound, "a missing session is not recreated")

			rev, err := store.Save(ctx, "a", filters.Selection{Country: "Poland"}, 0)
			require.NoError(t, err)

			_, err = store.Save(ctx, "a", filters.Selection{Country: "Greece"}, 0)
			assert.ErrorIs(t, err, ErrStaleRevision, "create does not overwrite")

			next, err := store.Save(ctx, "a", filters.Selection{Country: "Greece"}, rev)
			require.NoError(t, err)
			assert.Equal(t, rev+1, next)

			_, err = store.Save(ctx, "a", filters.Selection{Country: "Poland", Package: "Alpha"}, rev)
			assert.ErrorIs(t, err, ErrStaleRevision)

			got, err := store.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, filters.Selection{Country: "Greece"}, got.Selection)
			assert.Equal(t, next, got.Revision)
		})
	}
}
