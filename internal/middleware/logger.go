// File: internal/middleware/logger.go
package middleware

import (
	"net/http"
	"time"

	"github.com/iyunix/go-mutabakat/internal/services"
)

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs one line per request after it was handled. Paths carry the
// reference code, so only the route template is logged.
func Logging(logger services.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("request handled",
				"method", r.Method,
				"route", routeOf(r),
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", ClientIP(r.Context()),
				"request_id", RequestID(r.Context()))
		})
	}
}
