package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnknown = errors.New("unknown")

type fakeSessions map[string]string

func (f fakeSessions) CheckToken(_ context.Context, token string) (string, error) {
	if token == "broken" {
		return "", errors.New("connection refused")
	}
	user, ok := f[token]
	if !ok {
		return "", errUnknown
	}
	return user, nil
}

func TestAuthMiddleware(t *testing.T) {
	auth := NewAuthMiddleware(AuthConfig{
		Sessions:        fakeSessions{"tok": "userA"},
		ErrUnknownToken: errUnknown,
	})

	var seen *Session
	h := auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSession(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"unknown", "nope", http.StatusUnauthorized},
		{"store down", "broken", http.StatusServiceUnavailable},
		{"valid", "tok", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
			if tt.token != "" {
				req.Header.Set("X-Token", tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	require.NotNil(t, seen)
	assert.Equal(t, "userA", seen.UserID)
	assert.Equal(t, "tok", seen.Token)
}

func TestLoginKeyMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	NewLoginKeyMiddleware("")(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req.Header.Set("X-Login-Key", "wrong")
	NewLoginKeyMiddleware("secret")(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req.Header.Set("X-Login-Key", "secret")
	NewLoginKeyMiddleware("secret")(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoveryAndRequestID(t *testing.T) {
	log := testutil.Logger()
	h := RequestID(NewLogging(log)(NewRecovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestRequestIDKeepsOrReplacesClientID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	req.Header.Set("X-Request-ID", strings.Repeat("x", maxRequestIDLen+1))
	h.ServeHTTP(rec, req)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	entry := RequestLogger(context.WithValue(context.Background(), RequestIDKey, "abc-123"), testutil.Logger())
	assert.Equal(t, "abc-123", entry.Data["request_id"])
}
