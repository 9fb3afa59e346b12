package handlers

import (
	"context"
	"net/http"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// SessionVerifier resolves a session token to a learner id.
type SessionVerifier interface {
	Verify(token string) (learnerID string, err error)
}

// ErrorWriter writes an error response in the server's envelope.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, code, message string)

// BearerAuth requires a valid session token in the Authorization header.
type BearerAuth struct {
	verifier SessionVerifier
	writeErr ErrorWriter
}

// NewBearerAuth creates a new bearer authenticator.
func NewBearerAuth(verifier SessionVerifier, writeErr ErrorWriter) *BearerAuth {
	if writeErr == nil {
		writeErr = func(w http.ResponseWriter, _ *http.Request, status int, _, message string) {
			http.Error(w, message, status)
		}
	}
	return &BearerAuth{verifier: verifier, writeErr: writeErr}
}

// Middleware rejects requests without a valid token and stores the learner
// id in the request context otherwise.
func (a *BearerAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			a.writeErr(w, r, http.StatusUnauthorized, "missing_token", "A bearer session token is required")
			return
		}

		learnerID, err := a.verifier.Verify(token)
		if err != nil {
			a.writeErr(w, r, http.StatusUnauthorized, "invalid_token", "Session is invalid or expired")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithLearnerID(r.Context(), learnerID)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyLearnerID contextKey = "learner_id"

// WithLearnerID stores the authenticated learner id in ctx.
func WithLearnerID(ctx context.Context, learnerID string) context.Context {
	return context.WithValue(ctx, contextKeyLearnerID, learnerID)
}

// LearnerIDFromContext returns the learner id set by BearerAuth.
func LearnerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKeyLearnerID).(string)
	return id, ok && id != ""
}

// ══════════════════════════════════════════════════════════════════════════════
// SECURITY HEADERS MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// SecurityHeadersMiddleware adds security-related headers.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST SIZE LIMIT MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RequestSizeLimitMiddleware limits the size of request bodies.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, `{"success":false,"error":{"code":"payload_too_large","message":"Request body too large"}}`,
					http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// MiddlewareFunc is a function that wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// Chain composes middlewares; the first one listed runs first.
func Chain(middlewares ...MiddlewareFunc) MiddlewareFunc {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
