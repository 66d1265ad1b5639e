package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubPinger struct {
	err   error
	calls int
}

func (p *stubPinger) Ping(_ context.Context) error {
	p.calls++
	return p.err
}

func TestHealthCheckJob(t *testing.T) {
	postgres := &stubPinger{}
	clickhouse := &stubPinger{}

	job := NewHealthCheckJob(5*time.Second, false, map[string]Pinger{
		"postgres":   postgres,
		"clickhouse": clickhouse,
	})

	if !job.Healthy() {
		t.Fatal("job must start healthy")
	}

	if err := job.RunOnce(context.TODO()); err != nil {
		t.Fatalf("healthy run failed: %v", err)
	}

	if (postgres.calls != 1) || (clickhouse.calls != 1) {
		t.Errorf("expected one ping per store, got %v/%v", postgres.calls, clickhouse.calls)
	}

	postgres.err = errors.New("connection refused")
	if err := job.RunOnce(context.TODO()); err == nil {
		t.Fatal("expected error from failing ping")
	}

	if job.Healthy() {
		t.Fatal("job must report unhealthy after a failed ping")
	}

	postgres.err = nil
	if err := job.RunOnce(context.TODO()); err != nil {
		t.Fatalf("recovered run failed: %v", err)
	}

	if !job.Healthy() {
		t.Fatal("job must recover after a clean ping")
	}
}
