package common

import (
	"context"
	"errors"
)

var (
	// ErrNoFrame means the capture service had no frame for the stream.
	ErrNoFrame = errors.New("no frame available")
)

// FrameCapturer obtains one still image from a live stream. Used only on
// the unknown-face path.
type FrameCapturer interface {
	Capture(ctx context.Context, streamHandle string) ([]byte, error)
}

// IndexResult is the outcome of running face indexing over an image.
// "No face detected" is an expected branch, not an error.
type IndexResult struct {
	FaceID string
	Found  bool
}

// FaceIndexer registers a face from an image with the recognition service
// and returns the identity it minted.
type FaceIndexer interface {
	IndexFace(ctx context.Context, image []byte) (IndexResult, error)
}

// ObjectStore is the blob storage for captured frames.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) (*PhotoRef, error)
}

// Mailer is the notification transport. Send failures are logged by
// implementations and surfaced to the caller; the caller decides whether
// to escalate.
type Mailer interface {
	// SendReviewRequest notifies the operator about an unauthorized known
	// visitor, with a review link embedding the identity and their
	// enrollment photo reference.
	SendReviewRequest(ctx context.Context, identity string, photo *PhotoRef) error
	// SendPasscode delivers a fresh access code to the visitor.
	SendPasscode(ctx context.Context, email, code string) error
}
