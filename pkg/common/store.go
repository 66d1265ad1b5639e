package common

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRecordNotFound = errors.New("record not found")
)

// VisitorStore is the durable identity -> VisitorRecord mapping.
type VisitorStore interface {
	// GetVisitor returns ErrRecordNotFound when the identity was never
	// enrolled.
	GetVisitor(ctx context.Context, identity string) (*VisitorRecord, error)
	CreateVisitor(ctx context.Context, visitor *VisitorRecord) error
	// AuthorizeVisitor upserts name, email and authorized=true for the
	// identity. Idempotent.
	AuthorizeVisitor(ctx context.Context, identity, name, email string) error
	// MarkNotified advances last_notified_at to now, but only when at least
	// minInterval has passed since the previous notification. Returns
	// whether the row was updated.
	MarkNotified(ctx context.Context, identity string, now time.Time, minInterval time.Duration) (bool, error)
}

// PasscodeStore is the durable access-code -> visitor mapping. Codes are
// write-once.
type PasscodeStore interface {
	SavePasscode(ctx context.Context, code, identity string, issuedAt time.Time) error
	// LookupPasscode returns ErrRecordNotFound for unrecognized codes.
	LookupPasscode(ctx context.Context, code string) (*PasscodeRecord, error)
	DeletePasscode(ctx context.Context, code string) error
}

// DedupStore tracks the already-handled unknown-face time buckets. Markers
// are never deleted; buckets only grow.
type DedupStore interface {
	// MarkBucket atomically records the bucket. Returns true when this call
	// created the marker, false when the bucket was handled before.
	MarkBucket(ctx context.Context, bucket int64) (bool, error)
}

type Cache[TKey comparable, TValue any] interface {
	Get(ctx context.Context, key TKey) (TValue, error)
	Set(ctx context.Context, key TKey, t TValue) error
	SetMissing(ctx context.Context, key TKey) error
	Delete(ctx context.Context, key TKey) error
}
