package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/FrontGate/FrontGate/pkg/db"
	"github.com/FrontGate/FrontGate/pkg/email"
	"github.com/FrontGate/FrontGate/pkg/pipeline"
	"github.com/FrontGate/FrontGate/pkg/storage"
)

type testServer struct {
	server   *Server
	store    *db.MemoryStore
	consumer *pipeline.Consumer
	router   *http.ServeMux
	clock    time.Time
}

type nullSink struct{}

func (nullSink) WriteDecisionBatch(_ context.Context, _ []*common.DecisionRecord) error {
	return nil
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := db.NewMemoryStore()

	consumer := pipeline.NewConsumer(&pipeline.Pipeline{
		Visitors:       store,
		Passcodes:      store,
		Dedup:          store,
		Capturer:       &noopCapturer{},
		Indexer:        &noopIndexer{},
		Objects:        storage.NewMemoryStore("test"),
		Mailer:         &email.StubMailer{},
		DedupWindow:    10 * time.Second,
		Cooldown:       60 * time.Second,
		PasscodeLength: 5,
	}, nullSink{}, nil, 16, time.Minute)
	t.Cleanup(consumer.Shutdown)

	ts := &testServer{
		store:    store,
		consumer: consumer,
		router:   http.NewServeMux(),
		clock:    time.Unix(5000, 0).UTC(),
	}

	ts.server = &Server{
		Visitors:  store,
		Passcodes: store,
		Consumer:  consumer,
		Now:       func() time.Time { return ts.clock },
	}
	ts.server.Setup(ts.router, "gate", nil)

	return ts
}

type noopCapturer struct{}

func (noopCapturer) Capture(_ context.Context, _ string) ([]byte, error) {
	return []byte("frame"), nil
}

type noopIndexer struct{}

func (noopIndexer) IndexFace(_ context.Context, _ []byte) (common.IndexResult, error) {
	return common.IndexResult{FaceID: "face-new", Found: true}, nil
}

func (ts *testServer) post(t *testing.T, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	r.Header.Set(common.HeaderContentType, common.ContentTypeJSON)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, r)

	return w
}

func decodeValidate(t *testing.T, w *httptest.ResponseRecorder) *validateResponse {
	t.Helper()

	var resp validateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	return &resp
}

func TestValidateKnownCode(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.TODO()

	_ = ts.store.CreateVisitor(ctx, &common.VisitorRecord{Identity: "face-1"})
	_ = ts.store.AuthorizeVisitor(ctx, "face-1", "Ada", "a@x.com")
	_ = ts.store.SavePasscode(ctx, "12345", "face-1", ts.clock)

	w := ts.post(t, "/gate/validate", &validateRequest{Code: "12345"})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %v", w.Code)
	}

	resp := decodeValidate(t, w)
	if !resp.Granted {
		t.Fatalf("expected access granted, got reason %q", resp.Reason)
	}

	if resp.Message != "Hi, Ada. Door is open." {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func TestValidateUnknownCode(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post(t, "/gate/validate", &validateRequest{Code: "00000"})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %v", w.Code)
	}

	resp := decodeValidate(t, w)
	if resp.Granted {
		t.Fatal("unknown code must be denied")
	}

	if resp.Reason != "code not recognized" {
		t.Errorf("unexpected reason %q", resp.Reason)
	}
}

func TestValidateSingleUse(t *testing.T) {
	ts := newTestServer(t)
	ts.server.PasscodeSingleUse = true
	ctx := context.TODO()

	_ = ts.store.CreateVisitor(ctx, &common.VisitorRecord{Identity: "face-1"})
	_ = ts.store.AuthorizeVisitor(ctx, "face-1", "Ada", "a@x.com")
	_ = ts.store.SavePasscode(ctx, "12345", "face-1", ts.clock)

	if resp := decodeValidate(t, ts.post(t, "/gate/validate", &validateRequest{Code: "12345"})); !resp.Granted {
		t.Fatalf("first use must be granted, got %q", resp.Reason)
	}

	if resp := decodeValidate(t, ts.post(t, "/gate/validate", &validateRequest{Code: "12345"})); resp.Granted {
		t.Fatal("second use of a single-use code must be denied")
	}
}

func TestValidateExpiredCode(t *testing.T) {
	ts := newTestServer(t)
	ts.server.PasscodeTTL = time.Minute
	ctx := context.TODO()

	_ = ts.store.CreateVisitor(ctx, &common.VisitorRecord{Identity: "face-1"})
	_ = ts.store.AuthorizeVisitor(ctx, "face-1", "Ada", "a@x.com")
	_ = ts.store.SavePasscode(ctx, "12345", "face-1", ts.clock.Add(-2*time.Minute))

	resp := decodeValidate(t, ts.post(t, "/gate/validate", &validateRequest{Code: "12345"}))
	if resp.Granted {
		t.Fatal("expired code must be denied")
	}

	if resp.Reason != "code expired" {
		t.Errorf("unexpected reason %q", resp.Reason)
	}
}

func TestAuthorizeVisitor(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.TODO()

	_ = ts.store.CreateVisitor(ctx, &common.VisitorRecord{Identity: "face-1", Email: "none"})

	w := ts.post(t, "/gate/authorize", &authorizeRequest{Identity: "face-1", Name: "Ada", Email: "a@x.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %v", w.Code)
	}

	visitor, err := ts.store.GetVisitor(ctx, "face-1")
	if err != nil {
		t.Fatalf("visitor lookup failed: %v", err)
	}

	if !visitor.Authorized || (visitor.Name != "Ada") || (visitor.Email != "a@x.com") {
		t.Errorf("unexpected visitor state: %+v", visitor)
	}

	// authorizing twice is a no-op, not an error
	if w := ts.post(t, "/gate/authorize", &authorizeRequest{Identity: "face-1", Name: "Ada", Email: "a@x.com"}); w.Code != http.StatusOK {
		t.Fatalf("repeated authorize: unexpected status %v", w.Code)
	}
}

func TestAuthorizeRejectsInvalidEmail(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post(t, "/gate/authorize", &authorizeRequest{Identity: "face-1", Name: "Ada", Email: "not-an-email"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %v", w.Code)
	}
}

func TestEventAccepted(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post(t, "/gate/events", &common.MatchEvent{StreamHandle: "front-door", Timestamp: 1005})
	if w.Code != http.StatusAccepted {
		t.Fatalf("unexpected status %v", w.Code)
	}
}

func TestEventRejectsMalformed(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.post(t, "/gate/events", &common.MatchEvent{Timestamp: 1005}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing stream: unexpected status %v", w.Code)
	}

	if w := ts.post(t, "/gate/events", &common.MatchEvent{StreamHandle: "front-door"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing timestamp: unexpected status %v", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	healthy := true
	ts.server.Healthy = func() bool { return healthy }

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %v", w.Code)
	}

	healthy = false
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %v", w.Code)
	}
}
