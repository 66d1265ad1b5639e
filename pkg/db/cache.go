package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/maypok86/otter"
)

var (
	ErrNegativeCacheHit = errors.New("negative hit")
	ErrCacheMiss        = errors.New("cache miss")
	ErrSetMissing       = errors.New("cannot set missing value directly")
)

// memcache is a TTL cache over otter that also remembers absence: a lookup
// that missed the database is stored as the missingValue sentinel, so
// repeated events for a never-enrolled identity do not hammer Postgres.
type memcache[TKey comparable, TValue comparable] struct {
	store        otter.Cache[TKey, TValue]
	missingValue TValue
}

func NewMemoryCache[TKey comparable, TValue comparable](expiration time.Duration, maxCacheSize int, missingValue TValue) (*memcache[TKey, TValue], error) {
	store, err := otter.MustBuilder[TKey, TValue](maxCacheSize).
		WithTTL(expiration).
		Build()

	if err != nil {
		return nil, err
	}

	return &memcache[TKey, TValue]{
		store:        store,
		missingValue: missingValue,
	}, nil
}

var _ common.Cache[int, int] = (*memcache[int, int])(nil)

// Get distinguishes a plain miss (ErrCacheMiss, worth querying the
// database) from a remembered absence (ErrNegativeCacheHit, not worth it).
func (c *memcache[TKey, TValue]) Get(ctx context.Context, key TKey) (TValue, error) {
	data, found := c.store.Get(key)
	if !found {
		var zero TValue
		return zero, ErrCacheMiss
	}

	if data == c.missingValue {
		slog.Log(ctx, common.LevelTrace, "Negative cache hit", "key", key)
		var zero TValue
		return zero, ErrNegativeCacheHit
	}

	return data, nil
}

func (c *memcache[TKey, TValue]) SetMissing(ctx context.Context, key TKey) error {
	c.store.Set(key, c.missingValue)

	slog.Log(ctx, common.LevelTrace, "Cached absence of item", "key", key)

	return nil
}

func (c *memcache[TKey, TValue]) Set(ctx context.Context, key TKey, t TValue) error {
	if t == c.missingValue {
		return ErrSetMissing
	}

	c.store.Set(key, t)

	return nil
}

func (c *memcache[TKey, TValue]) Delete(ctx context.Context, key TKey) error {
	c.store.Delete(key)

	slog.Log(ctx, common.LevelTrace, "Dropped item from cache", "key", key)

	return nil
}
