package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	m := New(0, 0, 0)

	if m.hostRate != DefaultHostRate {
		t.Errorf("hostRate = %v, want %v", m.hostRate, DefaultHostRate)
	}
	if m.hostBurst != DefaultHostBurst {
		t.Errorf("hostBurst = %d, want %d", m.hostBurst, DefaultHostBurst)
	}
	if cap(m.sem) != DefaultGlobalConcurrency {
		t.Errorf("global concurrency = %d, want %d", cap(m.sem), DefaultGlobalConcurrency)
	}
}

func TestHostFor(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"full url", "https://example.com/feed.xml", "example.com"},
		{"url with port", "http://example.com:8080/feed", "example.com"},
		{"bare host", "example.com", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hostFor(tt.input); got != tt.want {
				t.Errorf("hostFor(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAcquireReleaseGrantsToken(t *testing.T) {
	m := New(100, 10, 5)

	ok, err := m.Acquire(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if !ok {
		t.Fatal("Acquire should succeed when bucket has tokens")
	}
	m.Release()
}

func TestAcquireBucketExhaustedReleasesGlobalPermit(t *testing.T) {
	m := New(0.001, 1, 5) // effectively one token, near-zero refill

	ctx := context.Background()
	ok, err := m.Acquire(ctx, "example.com")
	if err != nil || !ok {
		t.Fatalf("first Acquire should succeed, got ok=%v err=%v", ok, err)
	}
	// hold the global permit open, don't release yet

	ok, err = m.Acquire(ctx, "example.com")
	if err != nil {
		t.Fatalf("second Acquire returned error: %v", err)
	}
	if ok {
		t.Fatal("second Acquire should fail: bucket exhausted")
	}

	// bucket miss must have released the global permit it took
	if len(m.sem) != 1 {
		t.Errorf("global semaphore in-use = %d, want 1 (bucket-miss permit released)", len(m.sem))
	}
}

func TestGlobalConcurrencyBounded(t *testing.T) {
	m := New(1000, 1000, 2)
	ctx := context.Background()

	ok1, _ := m.Acquire(ctx, "a.example.com")
	ok2, _ := m.Acquire(ctx, "b.example.com")
	if !ok1 || !ok2 {
		t.Fatal("first two acquires on distinct hosts should succeed")
	}

	done := make(chan bool, 1)
	go func() {
		ok, _ := m.Acquire(ctx, "c.example.com")
		done <- ok
	}()

	select {
	case <-done:
		t.Fatal("third Acquire should block while global semaphore is saturated")
	case <-time.After(50 * time.Millisecond):
	}

	m.Release()
	select {
	case ok := <-done:
		if !ok {
			t.Error("third Acquire should eventually succeed once a permit frees up")
		}
	case <-time.After(time.Second):
		t.Fatal("third Acquire never returned after Release")
	}
}

func TestSetCooldownDelaysAcquire(t *testing.T) {
	m := New(1000, 1000, 5)
	m.SetCooldown("slow.example.com", 100*time.Millisecond)

	start := time.Now()
	ok, err := m.Acquire(context.Background(), "slow.example.com")
	elapsed := time.Since(start)

	if err != nil || !ok {
		t.Fatalf("Acquire after cooldown should succeed, got ok=%v err=%v", ok, err)
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("Acquire returned after %v, want >= 100ms cooldown", elapsed)
	}
}

func TestCooldownOnlyAffectsItsHost(t *testing.T) {
	m := New(1000, 1000, 5)
	m.SetCooldown("slow.example.com", time.Hour)

	start := time.Now()
	ok, err := m.Acquire(context.Background(), "fast.example.com")
	if err != nil || !ok {
		t.Fatalf("unaffected host should acquire immediately, got ok=%v err=%v", ok, err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("cooldown on another host should not delay this acquire")
	}
}

func TestRecordAndShouldBackpressure(t *testing.T) {
	m := New(100, 10, 5)

	m.Record("example.com", true)
	m.Record("example.com", false)
	m.Record("example.com", false)

	if !m.ShouldBackpressure("example.com") {
		t.Error("error rate of 2/3 should trigger backpressure")
	}

	m2 := New(100, 10, 5)
	m2.Record("example.com", true)
	m2.Record("example.com", true)
	if m2.ShouldBackpressure("example.com") {
		t.Error("error rate of 0 should not trigger backpressure")
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	got := ParseRetryAfter("7")
	if got != 7*time.Second {
		t.Errorf("ParseRetryAfter(\"7\") = %v, want 7s", got)
	}
}

func TestParseRetryAfterHTTPDate(t *testing.T) {
	future := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC1123)
	got := ParseRetryAfter(future)
	if got <= 0 || got > 2*time.Hour+time.Minute {
		t.Errorf("ParseRetryAfter(%q) = %v, want ~2h", future, got)
	}
}

func TestParseRetryAfterInvalid(t *testing.T) {
	if got := ParseRetryAfter("not-a-value"); got != 0 {
		t.Errorf("ParseRetryAfter(invalid) = %v, want 0", got)
	}
	if got := ParseRetryAfter(""); got != 0 {
		t.Errorf("ParseRetryAfter(\"\") = %v, want 0", got)
	}
}
