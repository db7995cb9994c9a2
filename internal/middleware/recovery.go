package middleware

import (
	"net/http"
	"runtime/debug"

	"storefront-api/internal/logger"
	"storefront-api/pkg/apierror"

	"github.com/sirupsen/logrus"
)

// NewRecovery returns a middleware that turns panics into 500 responses.
func NewRecovery(log logrus.FieldLogger) func(http.Handler) http.Handler {
	entry := logger.Component(log, "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					RequestLogger(r.Context(), entry).WithFields(logrus.Fields{
						"panic": err,
						"path":  r.URL.Path,
						"stack": string(debug.Stack()),
					}).Error("recovered from panic")

					writeError(w, apierror.InternalError("internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
