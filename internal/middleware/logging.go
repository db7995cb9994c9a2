package middleware

import (
	"net/http"
	"time"

	"storefront-api/internal/logger"

	"github.com/sirupsen/logrus"
)

// NewLogging returns a middleware that writes one access log entry per request.
func NewLogging(log logrus.FieldLogger) func(http.Handler) http.Handler {
	entry := logger.Component(log, "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			RequestLogger(r.Context(), entry).WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"remote":     r.RemoteAddr,
				"status":     wrapped.statusCode,
				"duration":   time.Since(start).String(),
			}).Info("request")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
