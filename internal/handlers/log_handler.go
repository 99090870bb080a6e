// File: internal/handlers/log_handler.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/iyunix/go-mutabakat/internal/middleware"
	"github.com/iyunix/go-mutabakat/internal/services"
)

const maxClientLogMessage = 1024

// FrontendLogPayload defines the structure for logs coming from the response page.
type FrontendLogPayload struct {
	Level   string `json:"level"` // info, warn or error
	Message string `json:"message"`
	Context any    `json:"context,omitempty"`
}

// ClientLogHandler forwards browser-side events from the response page to
// the service log.
type ClientLogHandler struct {
	Logger services.Logger
}

func NewClientLogHandler(logger services.Logger) *ClientLogHandler {
	return &ClientLogHandler{Logger: logger}
}

// LogFrontendEvent handles POST /api/client-log.
func (h *ClientLogHandler) LogFrontendEvent(w http.ResponseWriter, r *http.Request) {
	var payload FrontendLogPayload
	if err := decodeJSON(r, &payload); err != nil || strings.TrimSpace(payload.Message) == "" {
		writeError(w, "Geçersiz istek gövdesi.", http.StatusBadRequest)
		return
	}
	msg := middleware.Truncate(payload.Message, maxClientLogMessage)

	kv := []interface{}{
		"source", "client",
		"message", msg,
		"context", payload.Context,
		"request_id", middleware.RequestID(r.Context()),
	}
	switch strings.ToLower(payload.Level) {
	case "error":
		h.Logger.Error("CLIENT_LOG", kv...)
	case "warn", "warning":
		h.Logger.Warn("CLIENT_LOG", kv...)
	default:
		h.Logger.Info("CLIENT_LOG", kv...)
	}

	w.WriteHeader(http.StatusNoContent)
}
