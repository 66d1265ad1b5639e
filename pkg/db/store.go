package db

import (
	"context"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements the visitor, passcode and dedup stores on Postgres,
// with an in-process cache in front of visitor lookups.
type Store struct {
	pool  *pgxpool.Pool
	cache common.Cache[string, *common.VisitorRecord]
}

var (
	_ common.VisitorStore  = (*Store)(nil)
	_ common.PasscodeStore = (*Store)(nil)
	_ common.DedupStore    = (*Store)(nil)

	// sentinel for negative cache hits, never returned to callers
	missingVisitor = &common.VisitorRecord{}
)

func NewStore(pool *pgxpool.Pool, cache common.Cache[string, *common.VisitorRecord]) *Store {
	return &Store{
		pool:  pool,
		cache: cache,
	}
}

// NewVisitorCache builds the TTL cache used in front of visitor lookups,
// wired with the negative-hit sentinel the Store expects.
func NewVisitorCache(expiration time.Duration, maxSize int) (common.Cache[string, *common.VisitorRecord], error) {
	return NewMemoryCache[string, *common.VisitorRecord](expiration, maxSize, missingVisitor)
}

func visitorCacheKey(identity string) string { return "visitor/" + identity }

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
