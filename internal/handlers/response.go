// File: internal/handlers/response.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/iyunix/go-mutabakat/internal/dtos"
	"github.com/iyunix/go-mutabakat/internal/services"
	"github.com/iyunix/go-mutabakat/internal/services/reconciliation"
)

const maxBodyBytes = 16 << 10

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, dtos.ErrorResponseDTO{Error: message})
}

func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, dtos.ErrorResponseDTO{
		Error:  "Geçersiz istek.",
		Code:   string(reconciliation.KindValidationFailed),
		Fields: fields,
	})
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// statusFor maps an error kind onto an HTTP status code.
func statusFor(kind reconciliation.ErrorKind) int {
	switch kind {
	case reconciliation.KindNotFound:
		return http.StatusNotFound
	case reconciliation.KindInvalidFormat, reconciliation.KindValidationFailed, reconciliation.KindNoChallenge:
		return http.StatusBadRequest
	case reconciliation.KindExpired:
		return http.StatusGone
	case reconciliation.KindAlreadyUsed, reconciliation.KindConflict:
		return http.StatusConflict
	case reconciliation.KindRateLimited, reconciliation.KindLocked:
		return http.StatusTooManyRequests
	case reconciliation.KindDispatchFailed:
		return http.StatusBadGateway
	case reconciliation.KindVerificationRequired:
		return http.StatusForbidden
	case reconciliation.KindVerificationFailed:
		return http.StatusUnauthorized
	case reconciliation.KindAlreadyVerified:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err as returned by the reconciliation services.
// Anything outside the taxonomy is logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, logger services.Logger, err error) {
	var svcErr *reconciliation.Error
	if !errors.As(err, &svcErr) {
		logger.Error("unexpected service error", "error", err)
		writeError(w, "Beklenmeyen bir hata oluştu.", http.StatusInternalServerError)
		return
	}
	if svcErr.Cause != nil {
		logger.Warn("service error", "kind", svcErr.Kind, "cause", svcErr.Cause)
	}
	if svcErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(svcErr.RetryAfter.Seconds()))))
	}
	writeJSON(w, statusFor(svcErr.Kind), dtos.ErrorResponseDTO{
		Error: svcErr.Message,
		Code:  string(svcErr.Kind),
	})
}
