// Package ratelimit applies a fixed-window request limit per client IP.
package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"spendlens/internal/metrics"
)

const (
	window = time.Minute

	// idle clients are forgotten after this long
	staleAfter = 10 * window
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

// DefaultConfig allows 120 requests per minute and sweeps every 5 minutes.
func DefaultConfig() Config {
	return Config{RequestsPerMinute: 120, CleanupInterval: 5 * time.Minute}
}

type counter struct {
	start time.Time
	last  time.Time
	n     int
}

// Limiter counts requests per client in one-minute windows that start at
// the client's first request.
type Limiter struct {
	limit int
	now   func() time.Time

	mu       sync.Mutex
	counters map[string]*counter

	done     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts a limiter and its sweep goroutine. Call Stop when done.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	l := &Limiter{
		limit:    cfg.RequestsPerMinute,
		now:      time.Now,
		counters: make(map[string]*counter),
		done:     make(chan struct{}),
	}
	go l.sweepEvery(cfg.CleanupInterval)
	return l
}

// allow records a request from ip and reports whether it is within the limit.
func (l *Limiter) allow(ip string) bool {
	ok, _ := l.take(ip)
	return ok
}

// take records a request and, when it is over the limit, how long until
// the client's window resets.
func (l *Limiter) take(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c := l.counters[ip]
	if c == nil || now.Sub(c.start) >= window {
		c = &counter{start: now}
		l.counters[ip] = c
	}
	c.n++
	c.last = now
	if c.n <= l.limit {
		return true, 0
	}
	return false, c.start.Add(window).Sub(now)
}

func (l *Limiter) sweepEvery(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-staleAfter)
	for ip, c := range l.counters {
		if c.last.Before(cutoff) {
			delete(l.counters, ip)
		}
	}
}

// activeClients returns the number of tracked clients.
func (l *Limiter) activeClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Middleware rejects requests over the limit with 429, a Retry-After header
// in whole seconds and a JSON error body.
func (l *Limiter) Middleware(clientIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.take(clientIP(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			metrics.RateLimited.Inc()
			secs := int((wait + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		})
	}
}
