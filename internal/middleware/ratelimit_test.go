package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docudrive/document-layer/pkg/logger"
)

func TestRateLimiterThrottlesPerClient(t *testing.T) {
	rl := NewRateLimiter(1, 3, logger.Discard())
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		if code := send("10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: got %d, want %d", i, code, http.StatusOK)
		}
	}
	if code := send("10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("burst exhausted: got %d, want %d", code, http.StatusTooManyRequests)
	}

	// A different source address has its own budget.
	if code := send("10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("second client: got %d, want %d", code, http.StatusOK)
	}
}

func TestRateLimiterCleanupDropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1, logger.Discard())
	rl.getLimiter("stale")
	rl.limiters["stale"].lastSeen = time.Now().Add(-time.Hour)

	rl.Cleanup(10 * time.Minute)

	rl.mu.Lock()
	_, ok := rl.limiters["stale"]
	rl.mu.Unlock()
	if ok {
		t.Fatal("idle limiter survived cleanup")
	}
}
