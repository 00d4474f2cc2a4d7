package cartservice

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mirabelleshop/cart-backend/pkg/config"
)

var sessionTokenSigningMethod = jwt.SigningMethodHS256

// SessionTokens issues and verifies the signed tokens that carry a cart
// session id across requests.
type SessionTokens struct {
	cfg config.CartTokenConfig
}

// NewSessionTokens builds a token helper that signs and verifies with the
// configured secret.
func NewSessionTokens(cfg config.CartTokenConfig) (*SessionTokens, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("cart token secret required")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, fmt.Errorf("cart token issuer required")
	}
	return &SessionTokens{cfg: cfg}, nil
}

// Issue signs a token carrying the session id as its subject.
func (t *SessionTokens) Issue(sessionID string, ttl time.Duration) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session id required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    t.cfg.Issuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(sessionTokenSigningMethod, claims).SignedString([]byte(t.cfg.Secret))
}

// SessionID verifies the token's signature, issuer and expiry and returns the
// session id it carries.
func (t *SessionTokens) SessionID(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != sessionTokenSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(t.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{sessionTokenSigningMethod.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
	)
	if err != nil || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
