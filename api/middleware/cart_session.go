package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mirabelleshop/cart-backend/api/responses"
	pkgerrors "github.com/mirabelleshop/cart-backend/pkg/errors"
	"github.com/mirabelleshop/cart-backend/pkg/logger"
)

const (
	sessionIDHeader = "X-Session-Id"
	cartTokenHeader = "X-Cart-Token"
)

// SessionTokenVerifier issues and verifies the signed tokens that carry a
// cart session id across requests.
type SessionTokenVerifier interface {
	Issue(sessionID string, ttl time.Duration) (string, error)
	SessionID(token string) (string, bool)
}

// CartSession resolves the caller's cart session from the bearer token and
// seeds the request context with it. Callers without a token get a fresh
// session; the newly minted token is echoed back on the response headers.
func CartSession(tokens SessionTokenVerifier, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session tokens unavailable"))
				return
			}

			raw := bearerToken(r)
			sessionID := ""
			if raw != "" {
				var ok bool
				sessionID, ok = tokens.SessionID(raw)
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session token"))
					return
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				token, err := tokens.Issue(sessionID, ttl)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue session token"))
					return
				}
				w.Header().Set(cartTokenHeader, token)
			}

			w.Header().Set(sessionIDHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
