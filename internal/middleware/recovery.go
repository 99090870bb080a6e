// File: internal/middleware/recovery.go
package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/iyunix/go-mutabakat/internal/services"
)

func RecoverPanic(logger services.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"panic", err,
						"route", routeOf(r),
						"request_id", RequestID(r.Context()),
						"stack", string(debug.Stack()))

					w.Header().Set("Connection", "close")
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": "Beklenmeyen bir hata oluştu."})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
