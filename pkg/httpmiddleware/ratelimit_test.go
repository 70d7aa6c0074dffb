package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// limited returns a handler whose limiter uses a controllable clock.
func limited(cfg RateLimitConfig) (http.Handler, *rateLimiter, *time.Time) {
	now := time.Unix(1700000000, 0)
	rl := newRateLimiter(cfg)
	rl.now = func() time.Time { return now }
	return rateLimitMiddleware(rl)(okHandler()), rl, &now
}

func doRequest(h http.Handler, remoteAddr string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	h, _, _ := limited(RateLimitConfig{Max: 5, Window: time.Minute})

	for i := range 5 {
		w := doRequest(h, "192.168.1.1:12345", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, []string{"4", "3", "2", "1", "0"}[i], w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	h, _, _ := limited(RateLimitConfig{Max: 2, Window: time.Minute})

	for range 2 {
		require.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:9999", nil).Code)
	}

	w := doRequest(h, "10.0.0.1:9999", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_Refills(t *testing.T) {
	h, _, now := limited(RateLimitConfig{Max: 2, Window: time.Minute})

	for range 2 {
		require.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1", nil).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.1:1", nil).Code)

	*now = now.Add(30 * time.Second)
	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.1:1", nil).Code)
}

func TestRateLimit_Keys(t *testing.T) {
	t.Run("different IPs are independent", func(t *testing.T) {
		h, _, _ := limited(RateLimitConfig{Max: 1, Window: time.Minute})
		assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1234", nil).Code)
		assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.2:1234", nil).Code)
		assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.1:5678", nil).Code)
	})

	t.Run("custom key func", func(t *testing.T) {
		h, _, _ := limited(RateLimitConfig{
			Max:     1,
			Window:  time.Minute,
			KeyFunc: func(r *http.Request) string { return r.Header.Get("Authorization") },
		})
		a := map[string]string{"Authorization": "Bearer a"}
		b := map[string]string{"Authorization": "Bearer b"}
		assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1", a).Code)
		assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.2:1", a).Code)
		assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1", b).Code)
	})

	t.Run("forwarded headers ignored by default", func(t *testing.T) {
		h, _, _ := limited(RateLimitConfig{Max: 1, Window: time.Minute})
		assert.Equal(t, http.StatusOK, doRequest(h, "192.168.1.1:4444", nil).Code)
		// Rotating the header does not buy a fresh bucket.
		for _, spoofed := range []string{"203.0.113.1", "203.0.113.2"} {
			xff := map[string]string{"X-Forwarded-For": spoofed, "X-Real-IP": spoofed}
			assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "192.168.1.1:4444", xff).Code)
		}
	})

	t.Run("x-forwarded-for first hop behind trusted proxy", func(t *testing.T) {
		h, _, _ := limited(RateLimitConfig{Max: 1, Window: time.Minute, TrustProxy: true})
		xff := map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}
		assert.Equal(t, http.StatusOK, doRequest(h, "192.168.1.1:4444", xff).Code)
		assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "192.168.1.2:5555", xff).Code)
		other := map[string]string{"X-Forwarded-For": "203.0.113.51"}
		assert.Equal(t, http.StatusOK, doRequest(h, "192.168.1.1:4444", other).Code)
	})
}

func TestRateLimit_Cleanup(t *testing.T) {
	_, rl, now := limited(RateLimitConfig{Max: 1, Window: time.Minute})

	rl.allow("a", *now)
	rl.allow("b", now.Add(50*time.Second))
	rl.cleanup(now.Add(70 * time.Second))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.buckets, "a")
	assert.Contains(t, rl.buckets, "b")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:80"
	assert.Equal(t, "10.1.1.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
	assert.Equal(t, "10.1.1.1", RemoteIP(req))

	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", RemoteIP(req))
}
