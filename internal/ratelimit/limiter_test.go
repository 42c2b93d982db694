package ratelimit

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(clock Clock, perOwner, perIP int) *Limiter {
	return New(&Config{
		AcquireMaxPerHour:   perOwner,
		AcquireMaxIPPerHour: perIP,
		Clock:               clock,
	})
}

func TestCheckAcquire_OwnerHourlyLimit(t *testing.T) {
	clock := newMockClock()
	l := newTestLimiter(clock, 3, 100)
	defer l.Close()

	for i := 0; i < 3; i++ {
		if res := l.CheckAcquire("user-a", "1.2.3.4"); !res.Allowed {
			t.Fatalf("acquire %d should be allowed, got %s", i, res.Reason)
		}
		l.RecordAcquire("user-a", "1.2.3.4")
	}

	res := l.CheckAcquire("user-a", "1.2.3.4")
	if res.Allowed {
		t.Fatal("fourth acquire within the hour should be blocked")
	}
	if res.Reason != "owner_hourly_limit" {
		t.Errorf("reason = %q, want owner_hourly_limit", res.Reason)
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Hour {
		t.Errorf("retryAfter = %v, want within (0, 1h]", res.RetryAfter)
	}

	// A different owner on the same IP is unaffected.
	if res := l.CheckAcquire("user-b", "1.2.3.4"); !res.Allowed {
		t.Errorf("other owner should be allowed, got %s", res.Reason)
	}
}

func TestCheckAcquire_IPHourlyLimit(t *testing.T) {
	clock := newMockClock()
	l := newTestLimiter(clock, 100, 2)
	defer l.Close()

	l.RecordAcquire("user-a", "1.2.3.4")
	l.RecordAcquire("user-b", "1.2.3.4")

	res := l.CheckAcquire("user-c", "1.2.3.4")
	if res.Allowed {
		t.Fatal("third acquire from the IP should be blocked")
	}
	if res.Reason != "ip_hourly_limit" {
		t.Errorf("reason = %q, want ip_hourly_limit", res.Reason)
	}

	if res := l.CheckAcquire("user-c", "5.6.7.8"); !res.Allowed {
		t.Errorf("other IP should be allowed, got %s", res.Reason)
	}
}

func TestCheckAcquire_WindowResets(t *testing.T) {
	clock := newMockClock()
	l := newTestLimiter(clock, 1, 100)
	defer l.Close()

	l.RecordAcquire("user-a", "1.2.3.4")
	if res := l.CheckAcquire("user-a", "1.2.3.4"); res.Allowed {
		t.Fatal("second acquire within the hour should be blocked")
	}

	clock.Advance(time.Hour)
	if res := l.CheckAcquire("user-a", "1.2.3.4"); !res.Allowed {
		t.Errorf("acquire after the window should be allowed, got %s", res.Reason)
	}
}

func TestCleanup_DropsStaleEntries(t *testing.T) {
	clock := newMockClock()
	l := newTestLimiter(clock, 5, 5)
	defer l.Close()

	l.RecordAcquire("user-a", "1.2.3.4")
	clock.Advance(2 * time.Hour)
	l.cleanup()

	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.byOwner) != 0 || len(l.byIP) != 0 {
		t.Errorf("stale entries not cleaned: owners=%d ips=%d", len(l.byOwner), len(l.byIP))
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trustProxy bool
		want       string
	}{
		{"direct connection", "203.0.113.9:4321", "", false, "203.0.113.9"},
		{"untrusted proxy ignores XFF", "203.0.113.9:4321", "198.51.100.7", false, "203.0.113.9"},
		{"trusted proxy rightmost public", "10.0.0.1:80", "198.51.100.7, 10.0.0.2", true, "198.51.100.7"},
		{"all private falls back to last", "10.0.0.1:80", "192.168.1.5, 10.0.0.2", true, "10.0.0.2"},
		{"no port", "203.0.113.9", "", false, "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/holds", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := GetClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaskToken(t *testing.T) {
	if got := MaskToken("member-12345"); got != "memb***" {
		t.Errorf("MaskToken() = %q, want memb***", got)
	}
	if got := MaskToken("ab"); got != "***" {
		t.Errorf("MaskToken() = %q, want ***", got)
	}
}
