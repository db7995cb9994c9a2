package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"storefront-api/pkg/apierror"
)

// SessionKey is the key for storing the authenticated session in request context.
const SessionKey contextKey = "session"

// Session identifies the caller of an authenticated request.
type Session struct {
	Token  string
	UserID string
}

// TokenChecker resolves a session token to its user.
type TokenChecker interface {
	CheckToken(ctx context.Context, token string) (string, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Sessions TokenChecker
	// ErrUnknownToken is the checker's error for absent tokens. Other errors
	// are reported as the store being unavailable.
	ErrUnknownToken error
}

// NewAuthMiddleware creates a middleware that requires a registered X-Token.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Token")
			if token == "" {
				writeError(w, apierror.Unauthorized("Authentication required. Use X-Token header."))
				return
			}

			userID, err := cfg.Sessions.CheckToken(r.Context(), token)
			if err != nil {
				if cfg.ErrUnknownToken == nil || errors.Is(err, cfg.ErrUnknownToken) {
					writeError(w, apierror.Unauthorized("Invalid or expired token"))
					return
				}
				writeError(w, apierror.ServiceUnavailable(""))
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, &Session{Token: token, UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewLoginKeyMiddleware guards admin endpoints with the X-Login-Key header.
// An empty key disables the endpoints entirely.
func NewLoginKeyMiddleware(loginKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if loginKey == "" {
				writeError(w, apierror.Forbidden("Admin access is not configured"))
				return
			}
			provided := r.Header.Get("X-Login-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(loginKey)) != 1 {
				writeError(w, apierror.Unauthorized("Invalid login key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// GetSession retrieves the authenticated session from request context.
func GetSession(ctx context.Context) *Session {
	if s, ok := ctx.Value(SessionKey).(*Session); ok {
		return s
	}
	return nil
}
