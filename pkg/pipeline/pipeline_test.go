package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/FrontGate/FrontGate/pkg/db"
	"github.com/FrontGate/FrontGate/pkg/email"
	"github.com/FrontGate/FrontGate/pkg/storage"
)

type stubCapturer struct {
	frame []byte
	err   error
}

func (c *stubCapturer) Capture(_ context.Context, _ string) ([]byte, error) {
	return c.frame, c.err
}

type stubIndexer struct {
	err     error
	noFace  bool
	counter int
}

func (i *stubIndexer) IndexFace(_ context.Context, _ []byte) (common.IndexResult, error) {
	if i.err != nil {
		return common.IndexResult{}, i.err
	}

	if i.noFace {
		return common.IndexResult{}, nil
	}

	i.counter++
	return common.IndexResult{FaceID: fmt.Sprintf("face-%d", i.counter), Found: true}, nil
}

type testEnv struct {
	pipeline *Pipeline
	store    *db.MemoryStore
	objects  *storage.MemoryStore
	mailer   *email.StubMailer
	indexer  *stubIndexer
	clock    time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:   db.NewMemoryStore(),
		objects: storage.NewMemoryStore("frontgate-test"),
		mailer:  &email.StubMailer{},
		indexer: &stubIndexer{},
		clock:   time.Unix(2000, 0).UTC(),
	}

	env.pipeline = &Pipeline{
		Visitors:       env.store,
		Passcodes:      env.store,
		Dedup:          env.store,
		Capturer:       &stubCapturer{frame: []byte("jpeg-bytes")},
		Indexer:        env.indexer,
		Objects:        env.objects,
		Mailer:         env.mailer,
		DedupWindow:    10 * time.Second,
		Cooldown:       60 * time.Second,
		PasscodeLength: 5,
		Now:            func() time.Time { return env.clock },
	}

	return env
}

func (env *testEnv) advance(d time.Duration) {
	env.clock = env.clock.Add(d)
}

func unknownEvent(ts int64) *common.MatchEvent {
	return &common.MatchEvent{StreamHandle: "front-door", Timestamp: ts}
}

func knownEvent(ts int64, identity string) *common.MatchEvent {
	return &common.MatchEvent{
		StreamHandle: "front-door",
		Timestamp:    ts,
		Matches:      []common.FaceMatch{{Identity: identity, Score: 99.5}},
	}
}

func TestUnknownFaceEnrollsVisitor(t *testing.T) {
	env := newTestEnv()
	ctx := context.TODO()

	decision := env.pipeline.Process(ctx, unknownEvent(1005))
	if decision.Outcome != common.OutcomeEnrolled {
		t.Fatalf("expected enrollment, got %v", decision.Outcome)
	}

	if decision.Branch != common.BranchUnknownFace {
		t.Errorf("expected unknown branch, got %v", decision.Branch)
	}

	visitor, err := env.store.GetVisitor(ctx, decision.Identity)
	if err != nil {
		t.Fatalf("expected visitor record: %v", err)
	}

	if visitor.Authorized {
		t.Error("new visitor must not be authorized")
	}

	if visitor.Email != "none" {
		t.Errorf("expected placeholder email, got %q", visitor.Email)
	}

	if visitor.LastNotifiedAt != 0 {
		t.Errorf("expected zero notification timestamp, got %v", visitor.LastNotifiedAt)
	}

	photo := visitor.EnrollmentPhoto()
	if photo == nil {
		t.Fatal("expected enrollment photo")
	}

	if photo.ObjectKey != "1005.jpg" {
		t.Errorf("unexpected photo key %q", photo.ObjectKey)
	}

	if _, ok := env.objects.Get(photo.ObjectKey); !ok {
		t.Error("captured frame was not stored")
	}
}

func TestUnknownFaceDedupWindow(t *testing.T) {
	env := newTestEnv()
	ctx := context.TODO()

	// 1005 and 1008 land in the same 10s bucket, 1012 in the next one
	if out := env.pipeline.Process(ctx, unknownEvent(1005)).Outcome; out != common.OutcomeEnrolled {
		t.Fatalf("first event: expected enrollment, got %v", out)
	}

	if out := env.pipeline.Process(ctx, unknownEvent(1008)).Outcome; out != common.OutcomeDuplicateWindow {
		t.Fatalf("second event in window: expected duplicate, got %v", out)
	}

	if out := env.pipeline.Process(ctx, unknownEvent(1012)).Outcome; out != common.OutcomeEnrolled {
		t.Fatalf("event in next window: expected enrollment, got %v", out)
	}

	if env.objects.Len() != 2 {
		t.Errorf("expected 2 stored frames, got %v", env.objects.Len())
	}
}

func TestUnknownFaceZeroWindow(t *testing.T) {
	env := newTestEnv()
	env.pipeline.DedupWindow = 0
	ctx := context.TODO()

	// a zero window must degrade to per-second buckets, not crash
	if out := env.pipeline.Process(ctx, unknownEvent(1005)).Outcome; out != common.OutcomeEnrolled {
		t.Fatalf("expected enrollment, got %v", out)
	}

	if out := env.pipeline.Process(ctx, unknownEvent(1005)).Outcome; out != common.OutcomeDuplicateWindow {
		t.Fatalf("same second: expected duplicate, got %v", out)
	}

	if out := env.pipeline.Process(ctx, unknownEvent(1006)).Outcome; out != common.OutcomeEnrolled {
		t.Fatalf("next second: expected enrollment, got %v", out)
	}
}

func TestUnknownFaceNoFaceOnFrame(t *testing.T) {
	env := newTestEnv()
	env.indexer.noFace = true

	decision := env.pipeline.Process(context.TODO(), unknownEvent(1005))
	if decision.Outcome != common.OutcomeNoFace {
		t.Fatalf("expected no-face outcome, got %v", decision.Outcome)
	}

	if decision.Identity != "" {
		t.Errorf("expected no identity, got %q", decision.Identity)
	}
}

func TestUnknownFaceCaptureFailure(t *testing.T) {
	env := newTestEnv()
	env.pipeline.Capturer = &stubCapturer{err: common.ErrNoFrame}

	if out := env.pipeline.Process(context.TODO(), unknownEvent(1005)).Outcome; out != common.OutcomeFailed {
		t.Fatalf("expected failure, got %v", out)
	}

	// the bucket is consumed, the same window is not retried
	if out := env.pipeline.Process(context.TODO(), unknownEvent(1006)).Outcome; out != common.OutcomeDuplicateWindow {
		t.Fatalf("expected duplicate window, got %v", out)
	}
}

func TestKnownUnauthorizedSendsReview(t *testing.T) {
	env := newTestEnv()
	ctx := context.TODO()

	_ = env.store.CreateVisitor(ctx, &common.VisitorRecord{Identity: "face-1", Email: "none"})

	decision := env.pipeline.Process(ctx, knownEvent(1005, "face-1"))
	if decision.Outcome != common.OutcomeReviewSent {
		t.Fatalf("expected review, got %v", decision.Outcome)
	}

	if len(env.mailer.ReviewRequests) != 1 || env.mailer.ReviewRequests[0] != "face-1" {
		t.Fatalf("unexpected review requests: %v", env.mailer.ReviewRequests)
	}

	visitor, _ := env.store.GetVisitor(ctx, "face-1")
	if visitor.LastNotifiedAt != env.clock.Unix() {
		t.Errorf("notification timestamp not advanced: %v", visitor.LastNotifiedAt)
	}
}

func TestKnownFaceCooldown(t *testing.T) {
	env := newTestEnv()
	ctx := context.TODO()

	_ = env.store.CreateVisitor(ctx, &common.VisitorRecord{Identity: "face-1", Email: "none"})

	if out := env.pipeline.Process(ctx, knownEvent(1005, "face-1")).Outcome; out != common.OutcomeReviewSent {
		t.Fatalf("expected review, got %v", out)
	}

	env.advance(30 * time.Second)
	if out := env.pipeline.Process(ctx, knownEvent(1035, "face-1")).Outcome; out != common.OutcomeCooldown {
		t.Fatalf("expected cooldown, got %v", out)
	}

	if len(env.mailer.ReviewRequests) != 1 {
		t.Fatalf("cooldown must suppress the second email, got %v", len(env.mailer.ReviewRequests))
	}

	env.advance(31 * time.Second)
	if out := env.pipeline.Process(ctx, knownEvent(1066, "face-1")).Outcome; out != common.OutcomeReviewSent {
		t.Fatalf("expected review after cooldown, got %v", out)
	}

	if len(env.mailer.ReviewRequests) != 2 {
		t.Fatalf("expected second review after cooldown, got %v", len(env.mailer.ReviewRequests))
	}
}

func TestKnownAuthorizedSendsPasscode(t *testing.T) {
	env := newTestEnv()
	ctx := context.TODO()

	_ = env.store.CreateVisitor(ctx, &common.VisitorRecord{Identity: "face-1"})
	_ = env.store.AuthorizeVisitor(ctx, "face-1", "Ada", "a@x.com")

	decision := env.pipeline.Process(ctx, knownEvent(1005, "face-1"))
	if decision.Outcome != common.OutcomePasscodeSent {
		t.Fatalf("expected passcode, got %v", decision.Outcome)
	}

	if len(env.mailer.PasscodeEmails) != 1 || env.mailer.PasscodeEmails[0] != "a@x.com" {
		t.Fatalf("unexpected passcode emails: %v", env.mailer.PasscodeEmails)
	}

	if len(env.mailer.LastCode) != 5 {
		t.Fatalf("expected 5-digit code, got %q", env.mailer.LastCode)
	}

	record, err := env.store.LookupPasscode(ctx, env.mailer.LastCode)
	if err != nil {
		t.Fatalf("emailed code must be persisted: %v", err)
	}

	if record.VisitorIdentity != "face-1" {
		t.Errorf("code mapped to wrong visitor: %q", record.VisitorIdentity)
	}
}

func TestSendFailureLeavesCooldownOpen(t *testing.T) {
	env := newTestEnv()
	ctx := context.TODO()

	_ = env.store.CreateVisitor(ctx, &common.VisitorRecord{Identity: "face-1", Email: "none"})

	env.mailer.Err = errors.New("smtp down")
	if out := env.pipeline.Process(ctx, knownEvent(1005, "face-1")).Outcome; out != common.OutcomeFailed {
		t.Fatalf("expected failure, got %v", out)
	}

	visitor, _ := env.store.GetVisitor(ctx, "face-1")
	if visitor.LastNotifiedAt != 0 {
		t.Fatal("failed send must not advance the notification timestamp")
	}

	// the redelivered event succeeds without waiting out a cooldown
	env.mailer.Err = nil
	if out := env.pipeline.Process(ctx, knownEvent(1006, "face-1")).Outcome; out != common.OutcomeReviewSent {
		t.Fatalf("expected review on retry, got %v", out)
	}
}

func TestKnownFaceMissingVisitor(t *testing.T) {
	env := newTestEnv()

	decision := env.pipeline.Process(context.TODO(), knownEvent(1005, "face-999"))
	if decision.Outcome != common.OutcomeMissingVisitor {
		t.Fatalf("expected missing visitor, got %v", decision.Outcome)
	}

	if len(env.mailer.ReviewRequests)+len(env.mailer.PasscodeEmails) != 0 {
		t.Error("missing visitor must not trigger notifications")
	}
}
