// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config holds rate limiting configuration
type Config struct {
	WindowSize    time.Duration // Time window for rate limiting
	MaxAttempts   int           // Maximum attempts per window
	CleanupPeriod time.Duration // How often to clean up old entries; zero disables the sweeper
}

// DefaultResponseConfig is the limit applied to response submissions.
func DefaultResponseConfig() *Config {
	return &Config{
		WindowSize:    60 * time.Second,
		MaxAttempts:   5,
		CleanupPeriod: 10 * time.Minute,
	}
}

// RateLimitInfo contains information about rate limit status
type RateLimitInfo struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter decides whether one more request from identifier fits the window.
type Limiter interface {
	Allow(ctx context.Context, identifier string) (*RateLimitInfo, error)
}

// attemptRecord tracks attempts for an identifier within the current window
type attemptRecord struct {
	Count     int
	FirstSeen time.Time
}

// MemoryRateLimiter is a process-local limiter. It is enough for a single
// instance; RedisRateLimiter shares the window across instances.
type MemoryRateLimiter struct {
	config   *Config
	attempts map[string]*attemptRecord
	mu       sync.Mutex
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryRateLimiter creates a new in-memory rate limiter
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	limiter := &MemoryRateLimiter{
		config:   config,
		attempts: make(map[string]*attemptRecord),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	if config.CleanupPeriod > 0 {
		go limiter.cleanupLoop()
	}

	return limiter
}

// SetClock replaces the time source.
func (rl *MemoryRateLimiter) SetClock(now func() time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
}

// Allow counts the request and reports whether it fits the window. The first
// request after the window elapses starts a new window with a count of 1.
func (rl *MemoryRateLimiter) Allow(_ context.Context, identifier string) (*RateLimitInfo, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	record, exists := rl.attempts[identifier]

	if !exists || now.Sub(record.FirstSeen) >= rl.config.WindowSize {
		rl.attempts[identifier] = &attemptRecord{Count: 1, FirstSeen: now}
		return &RateLimitInfo{
			Allowed:   true,
			Limit:     rl.config.MaxAttempts,
			Remaining: rl.config.MaxAttempts - 1,
			ResetTime: now.Add(rl.config.WindowSize),
		}, nil
	}

	record.Count++
	resetTime := record.FirstSeen.Add(rl.config.WindowSize)

	if record.Count > rl.config.MaxAttempts {
		return &RateLimitInfo{
			Allowed:    false,
			Limit:      rl.config.MaxAttempts,
			Remaining:  0,
			ResetTime:  resetTime,
			RetryAfter: resetTime.Sub(now),
		}, nil
	}

	return &RateLimitInfo{
		Allowed:   true,
		Limit:     rl.config.MaxAttempts,
		Remaining: rl.config.MaxAttempts - record.Count,
		ResetTime: resetTime,
	}, nil
}

// cleanupLoop periodically removes old records
func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup removes records whose window has elapsed
func (rl *MemoryRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for identifier, record := range rl.attempts {
		if now.Sub(record.FirstSeen) >= rl.config.WindowSize {
			delete(rl.attempts, identifier)
		}
	}
}

// Close stops the cleanup goroutine
func (rl *MemoryRateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GetClientIP extracts the client IP from the request. Forwarding headers
// are only honoured when the service runs behind a trusted proxy, otherwise
// any caller could pick its own rate-limit key.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := parseFirstIP(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// parseFirstIP extracts the first IP from a comma-separated list
func parseFirstIP(forwarded string) string {
	if forwarded == "" {
		return ""
	}
	first, _, _ := strings.Cut(forwarded, ",")
	return strings.TrimSpace(first)
}
