package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(0, 3, KeyByClientIP())
	r := newLimitedRouter(rl)

	for i := 0; i < 3; i++ {
		if w := get(r, "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
	}
	w := get(r, "10.0.0.1:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status after burst = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("429 without Retry-After")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByClientIP())
	r := newLimitedRouter(rl)

	if w := get(r, "10.0.0.1:1"); w.Code != http.StatusOK {
		t.Fatalf("first ip status = %d", w.Code)
	}
	if w := get(r, "10.0.0.1:1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("first ip second request = %d, want 429", w.Code)
	}
	// A different client still has a full bucket.
	if w := get(r, "10.0.0.2:1"); w.Code != http.StatusOK {
		t.Fatalf("second ip status = %d, want 200", w.Code)
	}
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(50, 1, KeyByClientIP())
	r := newLimitedRouter(rl)

	if w := get(r, "10.0.0.1:1"); w.Code != http.StatusOK {
		t.Fatalf("first status = %d", w.Code)
	}
	if w := get(r, "10.0.0.1:1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("drained status = %d, want 429", w.Code)
	}
	time.Sleep(40 * time.Millisecond) // 50 rps refills one token in 20ms
	if w := get(r, "10.0.0.1:1"); w.Code != http.StatusOK {
		t.Fatalf("refilled status = %d, want 200", w.Code)
	}
}

func TestRateLimiter_BurstCoercedToOne(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByClientIP())
	if rl.burst != 1 {
		t.Fatalf("burst = %d, want 1", rl.burst)
	}
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByClientIP())
	rl.ttl = time.Millisecond

	rl.getVisitor("ip:10.0.0.1")
	time.Sleep(5 * time.Millisecond)

	// Force the cleanup pass on the next lookup.
	rl.cleanupN = 4999
	rl.getVisitor("ip:10.0.0.2")

	rl.mu.Lock()
	_, stale := rl.visitors["ip:10.0.0.1"]
	rl.mu.Unlock()
	if stale {
		t.Fatal("idle visitor not evicted")
	}
}
