package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
)

type stubSink struct {
	mu      sync.Mutex
	records []*common.DecisionRecord
}

func (s *stubSink) WriteDecisionBatch(_ context.Context, records []*common.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, records...)
	return nil
}

func (s *stubSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

type stubMetrics struct {
	mu       sync.Mutex
	observed int
}

func (m *stubMetrics) ObserveDecision(_ common.DecisionBranch, _ common.DecisionOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.observed++
}

type slowSink struct {
	stubSink
	delay time.Duration
}

func (s *slowSink) WriteDecisionBatch(ctx context.Context, records []*common.DecisionRecord) error {
	time.Sleep(s.delay)
	return s.stubSink.WriteDecisionBatch(ctx, records)
}

type blockingCapturer struct {
	started chan struct{}
	release chan struct{}
}

func (c *blockingCapturer) Capture(_ context.Context, _ string) ([]byte, error) {
	c.started <- struct{}{}
	<-c.release
	return []byte("frame"), nil
}

func TestConsumerProcessesAndFlushes(t *testing.T) {
	env := newTestEnv()
	sink := &stubSink{}
	metrics := &stubMetrics{}

	consumer := NewConsumer(env.pipeline, sink, metrics, 16, 10*time.Millisecond)

	if err := consumer.Enqueue(context.TODO(), unknownEvent(1005)); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for (sink.count() == 0) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	consumer.Shutdown()

	if sink.count() != 1 {
		t.Fatalf("expected 1 flushed decision, got %v", sink.count())
	}

	sink.mu.Lock()
	record := sink.records[0]
	sink.mu.Unlock()

	if record.Outcome != common.OutcomeEnrolled {
		t.Errorf("unexpected outcome %v", record.Outcome)
	}

	metrics.mu.Lock()
	observed := metrics.observed
	metrics.mu.Unlock()
	if observed != 1 {
		t.Errorf("expected 1 metric observation, got %v", observed)
	}
}

func TestConsumerShutdownFlushesPendingDecisions(t *testing.T) {
	env := newTestEnv()
	sink := &slowSink{delay: 100 * time.Millisecond}

	// flush interval longer than the test: records reach the sink only
	// through the shutdown path
	consumer := NewConsumer(env.pipeline, sink, nil, 16, time.Hour)

	if err := consumer.Enqueue(context.TODO(), unknownEvent(1005)); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	// wait until the event went through the pipeline; its decision record
	// is now sitting in the flusher's channel
	deadline := time.Now().Add(2 * time.Second)
	for (env.objects.Len() == 0) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	consumer.Shutdown()

	if sink.count() != 1 {
		t.Fatalf("shutdown returned with %v flushed decision records, expected 1", sink.count())
	}
}

func TestConsumerQueueFull(t *testing.T) {
	env := newTestEnv()
	capturer := &blockingCapturer{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	env.pipeline.Capturer = capturer

	consumer := NewConsumer(env.pipeline, &stubSink{}, nil, 1, time.Minute)

	// first event occupies the worker, second fills the queue
	if err := consumer.Enqueue(context.TODO(), unknownEvent(1005)); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	<-capturer.started

	if err := consumer.Enqueue(context.TODO(), unknownEvent(1015)); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := consumer.Enqueue(context.TODO(), unknownEvent(1025)); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	close(capturer.release)
	consumer.Shutdown()
}
