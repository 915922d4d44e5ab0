// Package ratelimit provides two-level rate limiting for outbound feed fetches.
//
// A global counting semaphore bounds the number of requests in flight across all
// hosts; a per-host token bucket bounds the request rate to any single host. A
// per-host cooldown deadline turns an advisory 429 response into an enforced pause
// without blocking requests to other hosts.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultHostRate is the default per-host token refill rate (tokens/second).
	DefaultHostRate = 0.5
	// DefaultHostBurst is the default per-host token bucket capacity.
	DefaultHostBurst = 10
	// DefaultGlobalConcurrency is the default size of the global in-flight semaphore.
	DefaultGlobalConcurrency = 5
)

// hostCounts tracks a rolling view of request outcomes for a single host.
type hostCounts struct {
	requests int64
	errors   int64
}

// Manager implements the per-host token bucket plus global semaphore described in
// the rate limiter design: acquire(host), release(), set_cooldown(host, delay),
// record(host, success).
type Manager struct {
	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	cooldowns map[string]time.Time
	counts    map[string]*hostCounts

	hostRate  rate.Limit
	hostBurst int

	sem chan struct{}
}

// New creates a Manager with the given per-host rate (tokens/second), per-host
// burst capacity, and global concurrency cap.
func New(hostRate float64, hostBurst int, globalConcurrency int) *Manager {
	if hostRate <= 0 {
		hostRate = DefaultHostRate
	}
	if hostBurst <= 0 {
		hostBurst = DefaultHostBurst
	}
	if globalConcurrency <= 0 {
		globalConcurrency = DefaultGlobalConcurrency
	}

	return &Manager{
		buckets:   make(map[string]*rate.Limiter),
		cooldowns: make(map[string]time.Time),
		counts:    make(map[string]*hostCounts),
		hostRate:  rate.Limit(hostRate),
		hostBurst: hostBurst,
		sem:       make(chan struct{}, globalConcurrency),
	}
}

// Acquire asks for permission to make a request to host. If a cooldown is active
// for host it waits for it to expire first. It then takes one global permit
// (blocking if the global cap is saturated) and attempts to take one token from
// the host's bucket. If the bucket has no token available, the global permit is
// released and Acquire returns false: the caller must treat this as "not ready"
// and reschedule shortly, never block on it.
func (m *Manager) Acquire(ctx context.Context, hostOrURL string) (bool, error) {
	host := hostFor(hostOrURL)

	if err := m.waitCooldown(ctx, host); err != nil {
		return false, err
	}

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	if m.bucketFor(host).Allow() {
		return true, nil
	}

	<-m.sem
	return false, nil
}

// Release returns one global permit. Every Acquire call that returned true must
// be paired with exactly one Release on the caller's success path.
func (m *Manager) Release() {
	select {
	case <-m.sem:
	default:
	}
}

// SetCooldown installs an absolute deadline of now+delay for host. Acquire calls
// for that host block until the deadline passes. Used when a server answers 429
// with a Retry-After header.
func (m *Manager) SetCooldown(hostOrURL string, delay time.Duration) {
	host := hostFor(hostOrURL)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cooldowns[host] = time.Now().Add(delay)
}

// Record updates rolling request/error counts for host. An error rate above 50%
// is an advisory signal surfaced via ShouldBackpressure; it does not itself block
// requests.
func (m *Manager) Record(hostOrURL string, success bool) {
	host := hostFor(hostOrURL)
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counts[host]
	if !ok {
		c = &hostCounts{}
		m.counts[host] = c
	}
	c.requests++
	if !success {
		c.errors++
	}
}

// ShouldBackpressure reports whether host's rolling error rate exceeds 50%.
func (m *Manager) ShouldBackpressure(hostOrURL string) bool {
	host := hostFor(hostOrURL)
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counts[host]
	if !ok || c.requests == 0 {
		return false
	}
	return float64(c.errors)/float64(c.requests) > 0.5
}

func (m *Manager) waitCooldown(ctx context.Context, host string) error {
	m.mu.Lock()
	until, ok := m.cooldowns[host]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	wait := time.Until(until)
	if wait <= 0 {
		m.mu.Lock()
		delete(m.cooldowns, host)
		m.mu.Unlock()
		return nil
	}

	select {
	case <-time.After(wait):
		m.mu.Lock()
		delete(m.cooldowns, host)
		m.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) bucketFor(host string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[host]
	if ok {
		return b
	}
	b = rate.NewLimiter(m.hostRate, m.hostBurst)
	m.buckets[host] = b
	return b
}

// hostFor normalizes its argument to a bare hostname: if it parses as a URL with
// a host component that is used, otherwise the input is treated as already being
// a hostname.
func hostFor(hostOrURL string) string {
	parsed, err := url.Parse(hostOrURL)
	if err != nil || parsed.Hostname() == "" {
		return hostOrURL
	}
	return parsed.Hostname()
}

// ParseRetryAfter parses a Retry-After header value, which may be either an
// integer number of seconds or an HTTP-date. Returns 0 if the value cannot be
// parsed or denotes a time in the past.
func ParseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(value, "%d", &seconds); err == nil && seconds > 0 && seconds <= 86400 {
		return time.Duration(seconds) * time.Second
	}

	if at, err := time.Parse(time.RFC1123, value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}

	return 0
}
