package monitoring

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	prometheus_metrics "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
)

const (
	metricsNamespace = "frontgate"
	metricsSubsystem = "pipeline"
	branchLabel      = "branch"
	outcomeLabel     = "outcome"
	kindLabel        = "kind"
)

type Metrics interface {
	Handler(h http.Handler) http.Handler
	MetricsHandler() http.Handler
	ObserveDecision(branch common.DecisionBranch, outcome common.DecisionOutcome)
}

type service struct {
	registry          *prometheus.Registry
	middleware        middleware.Middleware
	decisionCount     *prometheus.CounterVec
	notificationCount *prometheus.CounterVec
	passcodeCount     prometheus.Counter
}

var _ Metrics = (*service)(nil)

func traceID() string {
	return xid.New().String()
}

func Logged(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := time.Now()
		ctx := common.TraceContextFunc(r.Context(), traceID)

		slog.DebugContext(ctx, "Started request", "path", r.URL.Path, "method", r.Method)
		defer func() {
			slog.DebugContext(ctx, "Finished request", "path", r.URL.Path, "method", r.Method,
				"duration", time.Since(t).Milliseconds())
		}()

		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func NewService() *service {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	decisionCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "decisions_total",
			Help:      "Total number of processed face-match events",
		},
		[]string{branchLabel, outcomeLabel},
	)
	reg.MustRegister(decisionCount)

	notificationCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "notifications_total",
			Help:      "Total number of notifications sent",
		},
		[]string{kindLabel},
	)
	reg.MustRegister(notificationCount)

	passcodeCount := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "passcodes_issued_total",
			Help:      "Total number of issued access codes",
		},
	)
	reg.MustRegister(passcodeCount)

	return &service{
		registry: reg,
		middleware: middleware.New(middleware.Config{
			Service: metricsNamespace,
			Recorder: prometheus_metrics.NewRecorder(prometheus_metrics.Config{
				Registry: reg,
			}),
		}),
		decisionCount:     decisionCount,
		notificationCount: notificationCount,
		passcodeCount:     passcodeCount,
	}
}

func (s *service) Handler(h http.Handler) http.Handler {
	// handlerID is taken from the request path in this case
	return std.Handler("", s.middleware, h)
}

func (s *service) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *service) ObserveDecision(branch common.DecisionBranch, outcome common.DecisionOutcome) {
	s.decisionCount.WithLabelValues(string(branch), string(outcome)).Inc()

	switch outcome {
	case common.OutcomeReviewSent:
		s.notificationCount.WithLabelValues("review").Inc()
	case common.OutcomePasscodeSent:
		s.notificationCount.WithLabelValues("passcode").Inc()
		s.passcodeCount.Inc()
	}
}
