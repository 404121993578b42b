// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptoki.
//
// go-cryptoki is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	limiter := New(&Config{Enabled: true, RatePerSecond: 2, Burst: 10})
	defer limiter.Stop()

	assert.True(t, limiter.IsEnabled())
	stats := limiter.Stats()
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, 10, stats["burst"])
	assert.Equal(t, 2.0, stats["rate_per_s"])
}

func TestDefaultBurst(t *testing.T) {
	limiter := New(&Config{Enabled: true, RatePerSecond: 2.5})
	defer limiter.Stop()
	assert.Equal(t, 3, limiter.Stats()["burst"])
}

func TestDisabled(t *testing.T) {
	for name, limiter := range map[string]*Limiter{
		"nil config": New(nil),
		"disabled":   New(&Config{Enabled: false, RatePerSecond: 1, Burst: 1}),
		"zero rate":  New(&Config{Enabled: true}),
		"nil":        nil,
	} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, limiter.IsEnabled())
			for range 100 {
				assert.True(t, limiter.Allow("slot-0"))
			}
			assert.NoError(t, limiter.Wait(context.Background(), "slot-0"))
			limiter.Stop()
		})
	}
}

func TestAllowBurst(t *testing.T) {
	limiter := New(&Config{Enabled: true, RatePerSecond: 1, Burst: 5})
	defer limiter.Stop()

	for i := range 5 {
		assert.True(t, limiter.Allow("slot-0"), "request %d should fit the burst", i+1)
	}
	assert.False(t, limiter.Allow("slot-0"))

	// Keys have independent buckets.
	assert.True(t, limiter.Allow("slot-1"))
}

func TestWaitHonorsContext(t *testing.T) {
	limiter := New(&Config{Enabled: true, RatePerSecond: 0.1, Burst: 1})
	defer limiter.Stop()

	require.NoError(t, limiter.Wait(context.Background(), "slot-0"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx, "slot-0"))
}

func TestCleanup(t *testing.T) {
	limiter := New(&Config{Enabled: true, RatePerSecond: 1, Burst: 1, MaxIdle: time.Nanosecond})
	defer limiter.Stop()

	limiter.Allow("slot-0")
	time.Sleep(time.Millisecond)
	limiter.cleanup()
	assert.Equal(t, 0, limiter.Stats()["active_keys"])
}

func TestStopTwice(t *testing.T) {
	limiter := New(&Config{Enabled: true, RatePerSecond: 1})
	limiter.Stop()
	limiter.Stop()
}

func TestMiddleware(t *testing.T) {
	limiter := New(&Config{Enabled: true, RatePerSecond: 1, Burst: 2})
	defer limiter.Stop()
	handler := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/bench", nil)
		req.RemoteAddr = "192.0.2.1:4321"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different forwarded client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/bench", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:80"
	assert.Equal(t, "203.0.113.9", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(req))

	req.Header.Set("X-Forwarded-For", " 198.51.100.3 ,10.0.0.1")
	assert.Equal(t, "198.51.100.3", clientIP(req))
}
