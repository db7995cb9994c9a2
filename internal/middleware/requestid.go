package middleware

import (
	"context"
	"net/http"

	"storefront-api/pkg/uid"

	"github.com/sirupsen/logrus"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// RequestIDKey is the context key for request ID.
const RequestIDKey contextKey = "request_id"

// maxRequestIDLen bounds client supplied ids before they reach logs.
const maxRequestIDLen = 64

// RequestID is a middleware that adds a unique request ID to each request.
// Client supplied ids are kept unless empty or too long.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uid.New()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestLogger returns log tagged with the request ID carried by ctx.
func RequestLogger(ctx context.Context, log logrus.FieldLogger) *logrus.Entry {
	return log.WithField("request_id", GetRequestID(ctx))
}
