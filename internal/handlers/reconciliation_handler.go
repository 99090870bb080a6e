// File: internal/handlers/reconciliation_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-mutabakat/internal/dtos"
	"github.com/iyunix/go-mutabakat/internal/middleware"
	"github.com/iyunix/go-mutabakat/internal/services"
	"github.com/iyunix/go-mutabakat/internal/services/reconciliation"
)

// ReconciliationHandler serves the counter-party side of a reconciliation link.
type ReconciliationHandler struct {
	Resolver *reconciliation.LinkResolver
	Otp      *reconciliation.OtpIssuer
	Recorder *reconciliation.ResponseRecorder
	Logger   services.Logger
}

func NewReconciliationHandler(resolver *reconciliation.LinkResolver, otp *reconciliation.OtpIssuer, recorder *reconciliation.ResponseRecorder, logger services.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{
		Resolver: resolver,
		Otp:      otp,
		Recorder: recorder,
		Logger:   logger,
	}
}

// GetLink returns the projection used to render the response page.
func (h *ReconciliationHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	projection, err := h.Resolver.Resolve(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, projection)
}

// VerifyTaxNumber handles POST /api/reconciliation/{code}/tax.
func (h *ReconciliationHandler) VerifyTaxNumber(w http.ResponseWriter, r *http.Request) {
	var req dtos.TaxVerifyRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Geçersiz istek gövdesi.", http.StatusBadRequest)
		return
	}
	if fields := dtos.Validate(req); fields != nil {
		writeValidationError(w, fields)
		return
	}

	res, err := h.Otp.VerifyTaxNumber(r.Context(), mux.Vars(r)["code"], req.TaxNumber)
	h.writeVerifyResult(w, res, err)
}

// IssueOtp handles POST /api/reconciliation/{code}/otp.
func (h *ReconciliationHandler) IssueOtp(w http.ResponseWriter, r *http.Request) {
	res, err := h.Otp.Issue(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		if errors.Is(err, reconciliation.ErrAlreadyVerified) {
			writeJSON(w, http.StatusOK, dtos.VerifyResponseDTO{Verified: true})
			return
		}
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.OtpIssueResponseDTO{
		ExpiresInSeconds: res.ExpiresInSeconds,
		MaskedEmail:      res.MaskedEmail,
	})
}

// VerifyOtp handles POST /api/reconciliation/{code}/otp/verify.
func (h *ReconciliationHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req dtos.OtpVerifyRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Geçersiz istek gövdesi.", http.StatusBadRequest)
		return
	}
	if fields := dtos.Validate(req); fields != nil {
		writeValidationError(w, fields)
		return
	}

	res, err := h.Otp.Verify(r.Context(), mux.Vars(r)["code"], req.Code)
	h.writeVerifyResult(w, res, err)
}

// Respond handles POST /api/reconciliation/{code}/respond.
func (h *ReconciliationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req dtos.RespondRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Geçersiz istek gövdesi.", http.StatusBadRequest)
		return
	}

	res, err := h.Recorder.Submit(r.Context(), reconciliation.ResponseInput{
		Code:             mux.Vars(r)["code"],
		Decision:         req.ResponseStatus,
		Note:             req.ResponseNote,
		DisputedAmount:   string(req.DisputedAmount),
		DisputedCurrency: req.DisputedCurrency,
		SourceIP:         middleware.ClientIP(r.Context()),
		UserAgent:        middleware.UserAgent(r.Context()),
	})
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.RespondResponseDTO{Accepted: res.Accepted})
}

// writeVerifyResult treats AlreadyVerified as success.
func (h *ReconciliationHandler) writeVerifyResult(w http.ResponseWriter, res *reconciliation.VerifyResult, err error) {
	if err != nil && !(errors.Is(err, reconciliation.ErrAlreadyVerified) && res != nil) {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.VerifyResponseDTO{
		Verified:    res.Verified,
		OtpRequired: res.OtpRequired,
	})
}
