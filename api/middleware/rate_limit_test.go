package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLimiterStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeLimiterStore) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[scope]++
	count := f.counts[scope]
	return count <= limit, count, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	store := &fakeLimiterStore{}
	policy := NewRateLimitPolicy("cart_mutation", time.Minute, 2)
	handler := RateLimit(policy, store, nil)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/cart/lines", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		require.Equal(t, http.StatusNoContent, resp.Code)
	}
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	store := &fakeLimiterStore{}
	policy := NewRateLimitPolicy("cart_mutation", time.Minute, 1)
	handler := RateLimit(policy, store, nil)(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/v1/cart/lines", nil)
	first.RemoteAddr = "10.0.0.1:4000"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, first)
	require.Equal(t, http.StatusNoContent, resp.Code)

	second := httptest.NewRequest(http.MethodPost, "/v1/cart/lines", nil)
	second.RemoteAddr = "10.0.0.1:4000"
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, second)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Contains(t, resp.Body.String(), "RATE_LIMITED")
}

func TestRateLimitSeparatesClientsByIP(t *testing.T) {
	store := &fakeLimiterStore{}
	policy := NewRateLimitPolicy("cart_mutation", time.Minute, 1)
	handler := RateLimit(policy, store, nil)(okHandler())

	a := httptest.NewRequest(http.MethodPost, "/v1/cart/lines", nil)
	a.RemoteAddr = "10.0.0.1:4000"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, a)
	require.Equal(t, http.StatusNoContent, resp.Code)

	b := httptest.NewRequest(http.MethodPost, "/v1/cart/lines", nil)
	b.Header.Set("X-Forwarded-For", "203.0.113.9")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, b)
	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	policy := NewRateLimitPolicy("cart_mutation", 0, 0)
	handler := RateLimit(policy, &fakeLimiterStore{}, nil)(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/cart/lines", nil)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		require.Equal(t, http.StatusNoContent, resp.Code)
	}
}

func TestRateLimitStoreFailureIsDependencyError(t *testing.T) {
	store := &fakeLimiterStore{err: assert.AnError}
	policy := NewRateLimitPolicy("cart_mutation", time.Minute, 1)
	handler := RateLimit(policy, store, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/cart/lines", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
