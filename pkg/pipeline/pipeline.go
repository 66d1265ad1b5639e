// Package pipeline implements the face-match event decision logic: dedup of
// repeated unknown-face detections, enrollment of first-seen visitors, and
// the cooldown-gated notify/passcode flow for known ones.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
)

// Pipeline processes one face-match event at a time. All collaborators are
// injected so tests can substitute in-memory implementations.
type Pipeline struct {
	Visitors  common.VisitorStore
	Passcodes common.PasscodeStore
	Dedup     common.DedupStore
	Capturer  common.FrameCapturer
	Indexer   common.FaceIndexer
	Objects   common.ObjectStore
	Mailer    common.Mailer

	// DedupWindow buckets unknown-face detections; Cooldown suppresses
	// repeated notifications per identity.
	DedupWindow    time.Duration
	Cooldown       time.Duration
	PasscodeLength int

	// Now is substituted in tests; defaults to time.Now.
	Now func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}

	return time.Now().UTC()
}

// Process runs one event through the decision state machine and reports the
// outcome. Errors are terminal for the event only: they are logged here and
// folded into the decision record, the next event proceeds normally. The
// upstream stream's redelivery is the retry layer.
func (p *Pipeline) Process(ctx context.Context, event *common.MatchEvent) *common.DecisionRecord {
	tnow := p.now()
	decision := &common.DecisionRecord{
		StreamHandle: event.StreamHandle,
		EventTime:    time.Unix(event.Timestamp, 0).UTC(),
		Timestamp:    tnow,
	}

	if match, ok := event.BestMatch(); ok {
		decision.Branch = common.BranchKnownFace
		decision.Identity = match.Identity
		decision.Outcome = p.knownFace(ctx, match.Identity, tnow)
	} else {
		decision.Branch = common.BranchUnknownFace
		decision.Outcome, decision.Identity = p.unknownFace(ctx, event)
	}

	slog.DebugContext(ctx, "Processed face-match event", "branch", decision.Branch,
		"outcome", decision.Outcome, "identity", decision.Identity)

	return decision
}

// unknownFace enrolls a first-seen visitor: one enrollment per dedup window,
// no matter how many evaluations the stream emits for the same visit.
func (p *Pipeline) unknownFace(ctx context.Context, event *common.MatchEvent) (common.DecisionOutcome, string) {
	// the consumer goroutine has no recovery layer above it, so a
	// misconfigured window must not divide by zero
	window := int64(p.DedupWindow / time.Second)
	if window <= 0 {
		window = 1
	}
	bucket := event.Timestamp / window

	created, err := p.Dedup.MarkBucket(ctx, bucket)
	if err != nil {
		return common.OutcomeFailed, ""
	}

	if !created {
		slog.Log(ctx, common.LevelTrace, "Unknown face already handled in this window", "bucket", bucket)
		return common.OutcomeDuplicateWindow, ""
	}

	frame, err := p.Capturer.Capture(ctx, event.StreamHandle)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to capture frame", "stream", event.StreamHandle, common.ErrAttr(err))
		return common.OutcomeFailed, ""
	}

	key := fmt.Sprintf("%d.jpg", event.Timestamp)
	photo, err := p.Objects.Put(ctx, key, frame)
	if err != nil {
		return common.OutcomeFailed, ""
	}

	result, err := p.Indexer.IndexFace(ctx, frame)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to index face", common.ErrAttr(err))
		return common.OutcomeFailed, ""
	}

	if !result.Found {
		// expected outcome, e.g. the visitor already left the frame
		slog.InfoContext(ctx, "No face detected on captured frame", "key", key)
		return common.OutcomeNoFace, ""
	}

	visitor := &common.VisitorRecord{
		Identity:       result.FaceID,
		Email:          "none",
		Authorized:     false,
		LastNotifiedAt: 0,
		Photos:         []common.PhotoRef{*photo},
	}

	if err := p.Visitors.CreateVisitor(ctx, visitor); err != nil {
		return common.OutcomeFailed, result.FaceID
	}

	return common.OutcomeEnrolled, result.FaceID
}

// knownFace notifies about an already-enrolled visitor: operator review for
// unauthorized ones, a fresh passcode for authorized ones. The notification
// timestamp is advanced only after the send succeeded, so a transport
// failure leaves the next delivery free to retry.
func (p *Pipeline) knownFace(ctx context.Context, identity string, tnow time.Time) common.DecisionOutcome {
	visitor, err := p.Visitors.GetVisitor(ctx, identity)
	if err != nil {
		if err == common.ErrRecordNotFound {
			// the identity came from the recognition index, which only
			// contains faces this pipeline enrolled
			slog.ErrorContext(ctx, "Known face has no visitor record", "identity", identity)
			return common.OutcomeMissingVisitor
		}

		return common.OutcomeFailed
	}

	if tnow.Unix()-visitor.LastNotifiedAt < int64(p.Cooldown/time.Second) {
		slog.Log(ctx, common.LevelTrace, "Notification cooldown active", "identity", identity)
		return common.OutcomeCooldown
	}

	if !visitor.Authorized {
		if err := p.Mailer.SendReviewRequest(ctx, identity, visitor.EnrollmentPhoto()); err != nil {
			return common.OutcomeFailed
		}

		p.markNotified(ctx, identity, tnow)

		return common.OutcomeReviewSent
	}

	code := NewPasscode(p.PasscodeLength)
	if err := p.Passcodes.SavePasscode(ctx, code, identity, tnow); err != nil {
		return common.OutcomeFailed
	}

	if err := p.Mailer.SendPasscode(ctx, visitor.Email, code); err != nil {
		return common.OutcomeFailed
	}

	p.markNotified(ctx, identity, tnow)

	return common.OutcomePasscodeSent
}

func (p *Pipeline) markNotified(ctx context.Context, identity string, tnow time.Time) {
	updated, err := p.Visitors.MarkNotified(ctx, identity, tnow, p.Cooldown)
	if err != nil {
		return
	}

	if !updated {
		// a concurrent delivery of the same event advanced the timestamp
		// first; the occasional duplicate notification is benign
		slog.WarnContext(ctx, "Notification timestamp already advanced", "identity", identity)
	}
}
