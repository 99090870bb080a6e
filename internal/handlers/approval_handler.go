// File: internal/handlers/approval_handler.go
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-mutabakat/internal/services"
	"github.com/iyunix/go-mutabakat/internal/services/reconciliation"
)

// ApprovalHandler serves the one-click approve/reject links.
type ApprovalHandler struct {
	Service *reconciliation.ApprovalService
	Logger  services.Logger
}

func NewApprovalHandler(service *reconciliation.ApprovalService, logger services.Logger) *ApprovalHandler {
	return &ApprovalHandler{Service: service, Logger: logger}
}

func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.Service.Approve(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.Service.Reject(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}
