// File: internal/middleware/client_info.go
package middleware

import (
	"context"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iyunix/go-mutabakat/internal/ratelimit"
)

const maxUserAgentLength = 512

// ClientInfo stores the caller address, user agent and a request id in the
// request context. Forwarding headers are read only when trustProxy is set.
func ClientInfo(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > 64 {
				requestID = uuid.NewString()
			}
			ua := Truncate(r.UserAgent(), maxUserAgentLength)

			ctx := context.WithValue(r.Context(), ClientIPKey, ratelimit.GetClientIP(r, trustProxy))
			ctx = context.WithValue(ctx, UserAgentKey, ua)
			ctx = context.WithValue(ctx, RequestIDKey, requestID)

			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Truncate shortens s to at most maxBytes bytes without splitting a UTF-8
// sequence.
func Truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
