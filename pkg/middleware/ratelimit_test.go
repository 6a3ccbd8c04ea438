package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
		BurstSize:         0,
		MaxClients:        100,
	})

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("client-a"), "request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow("client-a"))

	// Other clients have their own bucket
	assert.True(t, rl.Allow("client-b"))
}

func TestRateLimiter_ConcurrentFirstRequests(t *testing.T) {
	const n = 16
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: n,
		WindowDuration:    time.Hour,
		BurstSize:         0,
		MaxClients:        100,
	})

	// All first requests for one key must land on a single bucket,
	// so exactly n are allowed and the n+1th is not
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, rl.Allow("client"))
		}()
	}
	wg.Wait()

	assert.False(t, rl.Allow("client"))
}

func TestRateLimiter_BurstSize(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
		BurstSize:         2,
		MaxClients:        100,
	})

	for i := 0; i < 4; i++ {
		assert.True(t, rl.Allow("client"), "request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow("client"))
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    100 * time.Millisecond,
		BurstSize:         0,
		MaxClients:        100,
	})

	for i := 0; i < 10; i++ {
		rl.Allow("client")
	}
	assert.False(t, rl.Allow("client"))

	time.Sleep(150 * time.Millisecond)
	assert.True(t, rl.Allow("client"))
}

func TestRateLimiter_BoundedClients(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
		BurstSize:         0,
		MaxClients:        2,
	})

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	// Adding clients past MaxClients evicts the oldest bucket,
	// so "a" starts fresh
	assert.True(t, rl.Allow("b"))
	assert.True(t, rl.Allow("c"))
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiter_Handler(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
		BurstSize:         0,
		MaxClients:        100,
	})

	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:2222"))
	// Same IP, different port: still the same client
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:3333"))
	// A different IP is unaffected
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1111"))
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		want       string
	}{
		{"host and port", "192.168.1.10:54321", "192.168.1.10"},
		{"ipv6 host and port", "[::1]:8080", "::1"},
		{"no port falls back to raw value", "192.168.1.10", "192.168.1.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			assert.Equal(t, tt.want, clientKey(req))
		})
	}
}
