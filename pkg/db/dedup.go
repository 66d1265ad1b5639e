package db

import (
	"context"
	"log/slog"

	"github.com/FrontGate/FrontGate/pkg/common"
)

func (s *Store) MarkBucket(ctx context.Context, bucket int64) (bool, error) {
	// check-and-set in one statement: two concurrent deliveries of the same
	// window cannot both see an empty slot
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO dedup_buckets (bucket) VALUES ($1) ON CONFLICT DO NOTHING`, bucket)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to mark dedup bucket", "bucket", bucket, common.ErrAttr(err))
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}
