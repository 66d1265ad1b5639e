// Package ratelimit guards the inbound HTTP surface, most importantly the
// passcode validation endpoint: codes are short enough to brute-force
// without a per-client budget.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	realclientip "github.com/realclientip/realclientip-go"
)

const (
	// 1 request per 2 seconds per client IP with a small burst
	defaultBucketCap   = 5
	defaultLeakPerSec  = 0.5
	cleanupInterval    = 10 * time.Second
	bucketIdleLifetime = 5 * time.Minute
)

type HTTPRateLimiter interface {
	Shutdown()
	RateLimit(next http.Handler) http.Handler
}

type leakyBucket struct {
	level      float64
	lastAccess time.Time
}

func (lb *leakyBucket) add(tnow time.Time, leakPerSec float64, capacity float64) bool {
	leaked := tnow.Sub(lb.lastAccess).Seconds() * leakPerSec
	lb.level -= leaked
	if lb.level < 0 {
		lb.level = 0
	}
	lb.lastAccess = tnow

	if lb.level+1 > capacity {
		return false
	}

	lb.level++
	return true
}

type ipRateLimiter struct {
	mu            sync.Mutex
	buckets       map[netip.Addr]*leakyBucket
	strategy      realclientip.Strategy
	capacity      float64
	leakPerSec    float64
	cleanupCancel context.CancelFunc
}

var _ HTTPRateLimiter = (*ipRateLimiter)(nil)

// NewIPAddrRateLimiter keys buckets by the client IP taken from the given
// header, falling back to the connection address when the header is empty.
// NOTE: this assumes correct configuration of the whole chain of reverse
// proxies.
func NewIPAddrRateLimiter(header string) (*ipRateLimiter, error) {
	var strategy realclientip.Strategy
	if len(header) > 0 {
		var err error
		strategy, err = realclientip.NewSingleIPHeaderStrategy(header)
		if err != nil {
			return nil, err
		}
	} else {
		strategy = realclientip.RemoteAddrStrategy{}
	}

	limiter := &ipRateLimiter{
		buckets:    make(map[netip.Addr]*leakyBucket),
		strategy:   strategy,
		capacity:   defaultBucketCap,
		leakPerSec: defaultLeakPerSec,
	}

	var cancelCtx context.Context
	cancelCtx, limiter.cleanupCancel = context.WithCancel(
		context.WithValue(context.Background(), common.TraceIDContextKey, "cleanup_ip_rate_limiter"))
	go limiter.cleanup(cancelCtx)

	return limiter, nil
}

func (l *ipRateLimiter) Shutdown() {
	l.cleanupCancel()
}

func (l *ipRateLimiter) clientIPAddr(r *http.Request) netip.Addr {
	ipStr := l.strategy.ClientIP(r.Header, r.RemoteAddr)
	// the zone is not part of the limiter key
	ipStr, _ = realclientip.SplitHostZone(ipStr)
	if len(ipStr) == 0 {
		slog.WarnContext(r.Context(), "Empty IP address used for rate limiting")
		return netip.Addr{}
	}

	addr, err := netip.ParseAddr(ipStr)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to parse netip.Addr", "ip", ipStr, common.ErrAttr(err))
		return netip.Addr{}
	}

	return addr
}

func (l *ipRateLimiter) allow(key netip.Addr, tnow time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok {
		bucket = &leakyBucket{lastAccess: tnow}
		l.buckets[key] = bucket
	}

	return bucket.add(tnow, l.leakPerSec, l.capacity)
}

func (l *ipRateLimiter) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.clientIPAddr(r)

		if !l.allow(key, time.Now()) {
			slog.Log(r.Context(), common.LevelTrace, "Rate limiting request", "path", r.URL.Path)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		ctx := context.WithValue(r.Context(), common.RateLimitKeyContextKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (l *ipRateLimiter) cleanup(ctx context.Context) {
	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case <-time.After(cleanupInterval):
			tnow := time.Now()
			l.mu.Lock()
			for key, bucket := range l.buckets {
				if tnow.Sub(bucket.lastAccess) > bucketIdleLifetime {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
