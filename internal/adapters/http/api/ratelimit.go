package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/fitmeasure/pkg/metrics"
)

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per client address.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	once    sync.Once
}

// NewRateLimiter allows perSecond requests per client with the given burst.
// A non-positive rate yields a limiter that admits everything.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(perSecond),
		burst:   max(burst, 1),
	}
}

// Enabled reports whether requests are limited at all.
func (l *RateLimiter) Enabled() bool {
	return l.limit > 0
}

// Allow reports whether a request from key may proceed now.
func (l *RateLimiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}
	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = time.Now()
	l.mu.Unlock()
	return c.limiter.Allow()
}

// Start sweeps idle clients until ctx is done. Calling it again is a no-op.
func (l *RateLimiter) Start(ctx context.Context) {
	if !l.Enabled() {
		return
	}
	l.once.Do(func() {
		go func() {
			ticker := time.NewTicker(limiterSweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					l.sweep(now)
				}
			}
		}()
	})
}

func (l *RateLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > limiterIdleTTL {
			delete(l.clients, key)
		}
	}
}

// Middleware rejects requests over the client's budget through reject.
func (l *RateLimiter) Middleware(next http.HandlerFunc, endpoint string, reject func(http.ResponseWriter, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientKey(r)) {
			metrics.RecordRateLimited(endpoint)
			w.Header().Set("Retry-After", "1")
			reject(w, NewKind("api."+endpoint, ErrRateLimited))
			return
		}
		next(w, r)
	}
}

// clientKey identifies the caller, preferring the first forwarded address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
