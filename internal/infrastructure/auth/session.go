// Package auth issues and verifies learner session tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// DefaultSessionTTL is used when Config.TTL is zero.
const DefaultSessionTTL = 24 * time.Hour

// Config configures the session issuer.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Claims are the JWT claims of a learner session. The subject is the learner id.
type Claims struct {
	jwt.RegisteredClaims
}

// Sessions signs and verifies HS256 session tokens.
type Sessions struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates a session issuer. The secret must not be empty.
func NewSessions(cfg Config) (*Sessions, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: session secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "bridge-practice"
	}
	return &Sessions{secret: cfg.Secret, issuer: cfg.Issuer, ttl: cfg.TTL, now: time.Now}, nil
}

// Issue signs a token for learnerID valid from now for the configured TTL.
func (s *Sessions) Issue(learnerID string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   learnerID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks the token and returns the learner id it was issued to.
// Any failure is reported as shared.ErrInvalidSession.
func (s *Sessions) Verify(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", shared.ErrInvalidSession
	}
	return claims.Subject, nil
}
