// File: internal/middleware/constants.go
package middleware

import "context"

// Context keys for middleware communication
type contextKey string

const (
	ClientIPKey  contextKey = "client_ip"
	UserAgentKey contextKey = "user_agent"
	RequestIDKey contextKey = "request_id"
)

// ClientIP returns the address stored by ClientInfo, or "" outside it.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ClientIPKey).(string)
	return ip
}

func UserAgent(ctx context.Context) string {
	ua, _ := ctx.Value(UserAgentKey).(string)
	return ua
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
