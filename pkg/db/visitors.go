package db

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/jackc/pgx/v5"
)

func (s *Store) GetVisitor(ctx context.Context, identity string) (*common.VisitorRecord, error) {
	cacheKey := visitorCacheKey(identity)
	if visitor, err := s.cache.Get(ctx, cacheKey); err == nil {
		return visitor, nil
	} else if err == ErrNegativeCacheHit {
		return nil, common.ErrRecordNotFound
	}

	var visitor common.VisitorRecord
	var photos []byte
	err := s.pool.QueryRow(ctx,
		`SELECT identity, name, email, authorized, last_notified_at, photos
		 FROM visitors WHERE identity = $1`, identity).
		Scan(&visitor.Identity, &visitor.Name, &visitor.Email, &visitor.Authorized,
			&visitor.LastNotifiedAt, &photos)
	if err != nil {
		if err == pgx.ErrNoRows {
			_ = s.cache.SetMissing(ctx, cacheKey)
			return nil, common.ErrRecordNotFound
		}

		slog.ErrorContext(ctx, "Failed to retrieve visitor", "identity", identity, common.ErrAttr(err))
		return nil, err
	}

	if err := json.Unmarshal(photos, &visitor.Photos); err != nil {
		slog.ErrorContext(ctx, "Failed to decode visitor photos", "identity", identity, common.ErrAttr(err))
		return nil, err
	}

	_ = s.cache.Set(ctx, cacheKey, &visitor)

	return &visitor, nil
}

func (s *Store) CreateVisitor(ctx context.Context, visitor *common.VisitorRecord) error {
	photos, err := json.Marshal(visitor.Photos)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO visitors (identity, name, email, authorized, last_notified_at, photos)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		visitor.Identity, visitor.Name, visitor.Email, visitor.Authorized,
		visitor.LastNotifiedAt, photos)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to create visitor", "identity", visitor.Identity, common.ErrAttr(err))
		return err
	}

	_ = s.cache.Delete(ctx, visitorCacheKey(visitor.Identity))

	slog.InfoContext(ctx, "Enrolled new visitor", "identity", visitor.Identity)

	return nil
}

func (s *Store) AuthorizeVisitor(ctx context.Context, identity, name, email string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO visitors (identity, name, email, authorized, last_notified_at, photos)
		 VALUES ($1, $2, $3, TRUE, 0, '[]')
		 ON CONFLICT (identity)
		 DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, authorized = TRUE`,
		identity, name, email)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to authorize visitor", "identity", identity, common.ErrAttr(err))
		return err
	}

	_ = s.cache.Delete(ctx, visitorCacheKey(identity))

	slog.InfoContext(ctx, "Authorized visitor", "identity", identity)

	return nil
}

func (s *Store) MarkNotified(ctx context.Context, identity string, now time.Time, minInterval time.Duration) (bool, error) {
	// conditional write: the cooldown stays an invariant even when the same
	// logical event is delivered twice concurrently
	tag, err := s.pool.Exec(ctx,
		`UPDATE visitors SET last_notified_at = $2
		 WHERE identity = $1 AND $2 - last_notified_at >= $3`,
		identity, now.Unix(), int64(minInterval/time.Second))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to mark visitor notified", "identity", identity, common.ErrAttr(err))
		return false, err
	}

	_ = s.cache.Delete(ctx, visitorCacheKey(identity))

	return tag.RowsAffected() > 0, nil
}
