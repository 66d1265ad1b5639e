// Package gate exposes the service over HTTP: the face-match event ingest,
// the operator authorize action and the keypad passcode validation.
package gate

import (
	"net/http"
	"strings"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/FrontGate/FrontGate/pkg/monitoring"
	"github.com/FrontGate/FrontGate/pkg/pipeline"
	"github.com/FrontGate/FrontGate/pkg/ratelimit"
	"github.com/justinas/alice"
	"github.com/rs/cors"
)

const (
	maxEventBodySize  = 64 * 1024
	maxActionBodySize = 4 * 1024
)

type Server struct {
	Visitors  common.VisitorStore
	Passcodes common.PasscodeStore
	Consumer  *pipeline.Consumer
	Metrics   monitoring.Metrics

	// PasscodeTTL of zero keeps codes valid forever; PasscodeSingleUse
	// consumes a code on successful validation.
	PasscodeTTL       time.Duration
	PasscodeSingleUse bool

	// ReviewOrigins are the operator frontend origins allowed to call the
	// authorize action cross-origin.
	ReviewOrigins []string

	// Healthy reports the backing stores' state; nil means always healthy.
	Healthy func() bool

	Now func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now().UTC()
}

func (s *Server) Setup(router *http.ServeMux, prefix string, limiter ratelimit.HTTPRateLimiter) {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	s.setupWithPrefix(prefix, router, limiter)
}

func (s *Server) setupWithPrefix(prefix string, router *http.ServeMux, limiter ratelimit.HTTPRateLimiter) {
	rateLimit := common.NoopMiddleware
	if limiter != nil {
		rateLimit = limiter.RateLimit
	}

	metricsHandler := common.NoopMiddleware
	if s.Metrics != nil {
		metricsHandler = s.Metrics.Handler
	}

	chain := alice.New(common.Recovered, monitoring.Logged, metricsHandler, common.NoCache, rateLimit)

	actions := chain
	if len(s.ReviewOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: s.ReviewOrigins,
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{common.HeaderContentType},
		})
		actions = chain.Append(c.Handler)
	}

	router.Handle(http.MethodPost+" "+prefix+common.EventsEndpoint,
		chain.Append(common.MaxBytesMiddleware(maxEventBodySize)).ThenFunc(s.handleEvent))
	router.Handle(http.MethodPost+" "+prefix+common.AuthorizeEndpoint,
		actions.Append(common.MaxBytesMiddleware(maxActionBodySize)).ThenFunc(s.handleAuthorize))
	router.Handle(http.MethodPost+" "+prefix+common.ValidateEndpoint,
		actions.Append(common.MaxBytesMiddleware(maxActionBodySize)).ThenFunc(s.handleValidate))
	router.Handle("GET /"+common.HealthEndpoint, alice.New(common.Recovered).ThenFunc(s.handleHealth))

	if s.Metrics != nil {
		router.Handle("GET /"+common.MetricsEndpoint, alice.New(common.Recovered).Then(s.Metrics.MetricsHandler()))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(common.HeaderContentType, common.ContentTypePlain)

	if (s.Healthy != nil) && !s.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unhealthy"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
