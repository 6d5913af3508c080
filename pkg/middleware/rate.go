// Package middleware provides the HTTP middleware stack.
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/kisanmart/pkg/response"
)

// bucket tracks a fixed-window request count for one client.
type bucket struct {
	count   int
	resetAt time.Time
}

type limiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	buckets   map[string]*bucket
	nextSweep time.Time
	now       func() time.Time
}

func newLimiter(max int, window time.Duration) *limiter {
	return &limiter{max: max, window: window, buckets: map[string]*bucket{}, now: time.Now}
}

func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.nextSweep) {
		for k, b := range l.buckets {
			if now.After(b.resetAt) {
				delete(l.buckets, k)
			}
		}
		l.nextSweep = now.Add(l.window)
	}

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}
	b.count++
	return b.count <= l.max
}

// RateLimit limits each client IP to max requests per window.
// Example: middleware.RateLimit(100, 15*time.Minute)
func RateLimit(max int, window time.Duration) func(http.Handler) http.Handler {
	l := newLimiter(max, window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientIP(r)) {
				response.Error(w, http.StatusTooManyRequests, "Too many requests from this IP, please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
