package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/grid/x", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	h := l.Handler(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom("10.0.0.1:1234"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.1:5678"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.2:1234"))
	assert.Equal(t, http.StatusOK, rec.Code, "other clients have their own bucket")
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 10, Burst: 10, IdleTTL: time.Minute})
	l.now = func() time.Time { return now }
	h := l.Handler(okHandler())

	h.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.1:1"))
	h.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.2:1"))
	assert.Equal(t, 2, l.Clients())

	now = now.Add(30 * time.Second)
	h.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.2:1"))

	now = now.Add(45 * time.Second)
	l.evict()
	assert.Equal(t, 1, l.Clients())
}

func TestClientIP(t *testing.T) {
	req := requestFrom("192.168.1.5:4000")
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "192.168.1.5", clientIP(req))

	req.RemoteAddr = "no-port"
	assert.Equal(t, "no-port", clientIP(req))
}
