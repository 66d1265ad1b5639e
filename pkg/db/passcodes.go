package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/jackc/pgx/v5"
)

func (s *Store) SavePasscode(ctx context.Context, code, identity string, issuedAt time.Time) error {
	// codes are short and reused over time; the latest issuance wins,
	// matching the write-once-per-active-code contract
	_, err := s.pool.Exec(ctx,
		`INSERT INTO passcodes (code, visitor_identity, issued_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (code)
		 DO UPDATE SET visitor_identity = EXCLUDED.visitor_identity, issued_at = EXCLUDED.issued_at`,
		code, identity, issuedAt)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to save passcode", "identity", identity, common.ErrAttr(err))
		return err
	}

	return nil
}

func (s *Store) LookupPasscode(ctx context.Context, code string) (*common.PasscodeRecord, error) {
	var record common.PasscodeRecord
	err := s.pool.QueryRow(ctx,
		`SELECT code, visitor_identity, issued_at FROM passcodes WHERE code = $1`, code).
		Scan(&record.Code, &record.VisitorIdentity, &record.IssuedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, common.ErrRecordNotFound
		}

		slog.ErrorContext(ctx, "Failed to look up passcode", common.ErrAttr(err))
		return nil, err
	}

	return &record, nil
}

func (s *Store) DeletePasscode(ctx context.Context, code string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM passcodes WHERE code = $1`, code)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to delete passcode", common.ErrAttr(err))
		return err
	}

	return nil
}
