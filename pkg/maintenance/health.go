// Package maintenance hosts the background jobs that keep the service
// honest while it runs.
package maintenance

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/coreos/go-systemd/v22/daemon"
)

// Pinger is the slice of a store the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheckJob pings the backing stores on an interval and, when healthy,
// kicks the systemd watchdog so a wedged process gets restarted.
type HealthCheckJob struct {
	pingers  map[string]Pinger
	interval time.Duration
	systemd  bool
	healthy  atomic.Bool
}

var _ common.PeriodicJob = (*HealthCheckJob)(nil)

func NewHealthCheckJob(interval time.Duration, systemd bool, pingers map[string]Pinger) *HealthCheckJob {
	j := &HealthCheckJob{
		pingers:  pingers,
		interval: interval,
		systemd:  systemd,
	}
	j.healthy.Store(true)

	return j
}

func (j *HealthCheckJob) Name() string            { return "healthcheck" }
func (j *HealthCheckJob) Interval() time.Duration { return j.interval }
func (j *HealthCheckJob) Jitter() time.Duration   { return j.interval / 10 }

func (j *HealthCheckJob) Healthy() bool { return j.healthy.Load() }

func (j *HealthCheckJob) RunOnce(ctx context.Context) error {
	var firstErr error

	for name, p := range j.pingers {
		tctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.Ping(tctx)
		cancel()

		if err != nil {
			slog.ErrorContext(ctx, "Health check failed", "store", name, common.ErrAttr(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	j.healthy.Store(firstErr == nil)

	if j.systemd && (firstErr == nil) {
		if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
			slog.WarnContext(ctx, "Failed to notify watchdog", common.ErrAttr(err))
		}
	}

	return firstErr
}
