package strava

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Strava rate limits (defaults, overridden by response headers):
// - 100 requests per 15 minutes, windows aligned to the quarter hour
// - 1000 requests per day, resetting at midnight UTC

// RateLimiter tracks Strava's reported usage and refuses requests once a
// window is spent. It never blocks: callers fail fast and the next
// incoming request tries again.
type RateLimiter struct {
	mu  sync.Mutex
	now func() time.Time

	// 15-minute window
	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	// Daily window
	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time
}

// NewRateLimiter creates a new rate limiter with Strava's limits
func NewRateLimiter() *RateLimiter {
	r := &RateLimiter{
		now:        time.Now,
		shortLimit: 100,
		dailyLimit: 1000,
	}
	r.resetWindows(r.now())
	return r
}

func (r *RateLimiter) resetWindows(now time.Time) {
	if !now.Before(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = now.Truncate(15 * time.Minute).Add(15 * time.Minute)
	}
	if !now.Before(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
}

// Allow counts a request against both windows, or returns ErrRateLimited
func (r *RateLimiter) Allow() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resetWindows(r.now())

	if r.shortUsage >= r.shortLimit || r.dailyUsage >= r.dailyLimit {
		return ErrRateLimited
	}

	r.shortUsage++
	r.dailyUsage++
	return nil
}

// UpdateFromHeaders updates rate limit state from Strava response headers
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strava returns: X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512"
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage = short
		r.dailyUsage = daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit = short
		r.dailyLimit = daily
	}
}

func parsePair(v string) (int, int, bool) {
	if v == "" {
		return 0, 0, false
	}
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}

// Usage returns current usage counts
func (r *RateLimiter) Usage() (shortUsage, dailyUsage int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortUsage, r.dailyUsage
}
