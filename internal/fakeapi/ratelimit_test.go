package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("192.168.1.1:1234"); code != http.StatusOK {
		t.Errorf("first request: expected 200, got %d", code)
	}
	if code := send("192.168.1.2:1234"); code != http.StatusOK {
		t.Errorf("other client: expected 200, got %d", code)
	}
	// Same host on another port shares the limiter.
	if code := send("192.168.1.1:5678"); code != http.StatusTooManyRequests {
		t.Errorf("second request: expected 429, got %d", code)
	}
}

func TestRateLimiter_CleanupDropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(10, 1)
	defer rl.Stop()

	for i := 0; i < 50; i++ {
		rl.getLimiter("10.0.0." + strconv.Itoa(i))
	}

	rl.mu.Lock()
	old := time.Now().Add(-2 * limiterTTL)
	for i := 0; i < 40; i++ {
		rl.limiters["10.0.0."+strconv.Itoa(i)].lastAccess = old
	}
	rl.mu.Unlock()

	rl.cleanup(time.Now())

	rl.mu.RLock()
	remaining := len(rl.limiters)
	rl.mu.RUnlock()
	if remaining != 10 {
		t.Errorf("expected 10 limiters after cleanup, got %d", remaining)
	}
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Stop()
	rl.Stop()
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.168.1.1:1234", "192.168.1.1"},
		{"[::1]:8080", "::1"},
		{"no-port", "no-port"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if got := clientKey(req); got != tt.want {
			t.Errorf("clientKey(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
