package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirabelleshop/cart-backend/internal/cartservice"
	"github.com/mirabelleshop/cart-backend/pkg/config"
)

func newTestTokens(t *testing.T) *cartservice.SessionTokens {
	t.Helper()
	tokens, err := cartservice.NewSessionTokens(config.CartTokenConfig{
		Secret: "test-secret",
		Issuer: "mirabelle",
	})
	require.NoError(t, err)
	return tokens
}

func sessionEcho(captured *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestCartSessionMintsNewSession(t *testing.T) {
	tokens := newTestTokens(t)
	var seen string
	handler := CartSession(tokens, time.Hour, nil)(sessionEcho(&seen))

	req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, resp.Header().Get("X-Session-Id"))

	token := resp.Header().Get("X-Cart-Token")
	require.NotEmpty(t, token)
	sessionID, ok := tokens.SessionID(token)
	require.True(t, ok)
	assert.Equal(t, seen, sessionID)
}

func TestCartSessionReusesTokenSession(t *testing.T) {
	tokens := newTestTokens(t)
	token, err := tokens.Issue("session-42", time.Hour)
	require.NoError(t, err)

	var seen string
	handler := CartSession(tokens, time.Hour, nil)(sessionEcho(&seen))

	req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "session-42", seen)
	assert.Equal(t, "session-42", resp.Header().Get("X-Session-Id"))
	assert.Empty(t, resp.Header().Get("X-Cart-Token"))
}

func TestCartSessionRejectsInvalidToken(t *testing.T) {
	tokens := newTestTokens(t)
	var seen string
	handler := CartSession(tokens, time.Hour, nil)(sessionEcho(&seen))

	req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Empty(t, seen)
}

func TestCartSessionRejectsTokenFromOtherSecret(t *testing.T) {
	other, err := cartservice.NewSessionTokens(config.CartTokenConfig{
		Secret: "other-secret",
		Issuer: "mirabelle",
	})
	require.NoError(t, err)
	token, err := other.Issue("session-42", time.Hour)
	require.NoError(t, err)

	var seen string
	handler := CartSession(newTestTokens(t), time.Hour, nil)(sessionEcho(&seen))

	req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
