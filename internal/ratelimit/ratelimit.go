package ratelimit

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Rule defines a rate limit for a specific method+path combination.
type Rule struct {
	Method string
	Path   string
	Limit  int
	Window time.Duration
}

// Result contains rate limit status for a request.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	RetryIn   time.Duration
}

type routeKey struct {
	method string
	path   string
}

type clientKey struct {
	ip    string
	route routeKey
}

// window counts one client's requests against one rule.
type window struct {
	count   int
	started time.Time
}

// Limiter implements fixed-window rate limiting per client IP and route.
type Limiter struct {
	mu      sync.Mutex
	rules   map[routeKey]Rule
	entries map[clientKey]*window
	clock   Clock
}

// NewLimiter creates a Limiter with the given rules.
func NewLimiter(rules []Rule) *Limiter {
	byRoute := make(map[routeKey]Rule, len(rules))
	for _, r := range rules {
		byRoute[routeKey{r.Method, r.Path}] = r
	}
	return &Limiter{
		rules:   byRoute,
		entries: make(map[clientKey]*window),
		clock:   realClock{},
	}
}

// Allow counts a request from ip to method+path against its rule.
// Routes without a rule are always allowed with a zero Result.
func (l *Limiter) Allow(ip, method, path string) (Result, bool) {
	route := routeKey{method, path}
	rule, ok := l.rules[route]
	if !ok {
		return Result{}, true
	}

	now := l.clock.Now()
	key := clientKey{ip, route}

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.entries[key]
	if w == nil || now.Sub(w.started) >= rule.Window {
		w = &window{started: now}
		l.entries[key] = w
	}

	res := Result{Limit: rule.Limit, ResetAt: w.started.Add(rule.Window)}
	if w.count >= rule.Limit {
		res.RetryIn = res.ResetAt.Sub(now)
		return res, false
	}
	w.count++
	res.Remaining = rule.Limit - w.count
	return res, true
}

// Cleanup drops windows that have ended so idle clients do not accumulate.
func (l *Limiter) Cleanup() {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.entries {
		rule, ok := l.rules[key.route]
		if !ok || now.Sub(w.started) >= rule.Window {
			delete(l.entries, key)
		}
	}
}

// Middleware rejects requests over their rule's limit with 429. It keys on
// r.RemoteAddr, so it belongs after chi's RealIP middleware.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := l.Allow(clientIP(r), r.Method, r.URL.Path)
			if res.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			}
			if !ok {
				retry := int(math.Ceil(res.RetryIn.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{
						"code":    "RATE_LIMITED",
						"message": "Too many requests, please try again later",
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (l *Limiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
