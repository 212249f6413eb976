// Package ratelimit implements per-client token bucket rate limiting for the HTTP API.
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nahucai95/GoFile-Direct-Link/internal/metrics"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/protocol"
)

// Limiter allows rpm requests per minute per key. rpm=0 means unlimited.
type Limiter struct {
	rpm float64
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*tokenBucket
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// New creates a limiter.
func New(rpm int) *Limiter {
	return &Limiter{
		rpm:     float64(rpm),
		now:     time.Now,
		buckets: make(map[string]*tokenBucket),
	}
}

// Allow reports whether a request for key may proceed and consumes a token if so.
func (l *Limiter) Allow(key string) bool {
	if l.rpm == 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter returns the number of seconds until key has a token again.
func (l *Limiter) RetryAfter(key string) int {
	if l.rpm == 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || b.tokens >= 1 {
		return 0
	}
	seconds := (1 - b.tokens) / (l.rpm / 60)
	return int(seconds) + 1
}

// Cleanup removes buckets that have not been used for maxAge.
func (l *Limiter) Cleanup(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxAge)
	for key, b := range l.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

func (l *Limiter) refill(key string) *tokenBucket {
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.rpm, lastRefill: now}
		l.buckets[key] = b
		return b
	}

	b.tokens += now.Sub(b.lastRefill).Seconds() * l.rpm / 60
	if b.tokens > l.rpm {
		b.tokens = l.rpm
	}
	b.lastRefill = now
	return b
}

// Middleware rejects requests over the limit with 429, keyed by client IP.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !l.Allow(key) {
			metrics.RecordRateLimitHit()
			w.Header().Set("Retry-After", strconv.Itoa(l.RetryAfter(key)))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(protocol.ErrorResponse{
				Error: "rate limit exceeded",
				Code:  http.StatusTooManyRequests,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
