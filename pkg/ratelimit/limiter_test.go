package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestAllow_UnderLimit(t *testing.T) {
	l := New(20, 60*time.Second)

	for i := 0; i < 20; i++ {
		if !l.Allow("203.0.113.7") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
}

func TestAllow_OverLimit(t *testing.T) {
	l := New(20, 60*time.Second)

	for i := 0; i < 20; i++ {
		if !l.Allow("203.0.113.7") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	if l.Allow("203.0.113.7") {
		t.Error("21st request within the window should be denied")
	}

	if l.RetryAfter() != 60*time.Second {
		t.Errorf("expected retry-after 60s, got %v", l.RetryAfter())
	}
}

func TestAllow_IndependentIdentifiers(t *testing.T) {
	l := New(1, time.Minute)

	if !l.Allow("a") {
		t.Fatal("first request for a should be allowed")
	}
	if !l.Allow("b") {
		t.Fatal("first request for b should be allowed")
	}
	if l.Allow("a") {
		t.Error("second request for a should be denied")
	}
}

func TestAllow_WindowExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := New(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("caller") || !l.Allow("caller") {
		t.Fatal("first two requests should be allowed")
	}
	if l.Allow("caller") {
		t.Fatal("third request inside window should be denied")
	}

	// Advance past the window; the old timestamps must be pruned.
	now = now.Add(61 * time.Second)
	if !l.Allow("caller") {
		t.Error("request after window expiry should be allowed")
	}
}

func TestAllow_Concurrent(t *testing.T) {
	const limit = 50
	l := New(limit, time.Minute)

	var wg sync.WaitGroup
	allowed := make(chan bool, limit*2)

	for i := 0; i < limit*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow("shared")
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != limit {
		t.Errorf("expected exactly %d admissions, got %d", limit, count)
	}
}

func TestSweep(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := New(5, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(30 * time.Second)
	l.Allow("recent")

	now = now.Add(45 * time.Second) // "old" expired, "recent" still live
	removed := l.Sweep()

	if removed != 1 {
		t.Errorf("expected 1 identifier swept, got %d", removed)
	}
	if l.Tracked() != 1 {
		t.Errorf("expected 1 tracked identifier, got %d", l.Tracked())
	}
}
