// File: internal/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-mutabakat/internal/middleware"
	"github.com/iyunix/go-mutabakat/internal/services"
)

// RouterDeps groups what NewRouter mounts.
type RouterDeps struct {
	Reconciliation    *ReconciliationHandler
	Approval          *ApprovalHandler
	ClientLog         *ClientLogHandler
	Logger            services.Logger
	TrustProxyHeaders bool
}

func NewRouter(d RouterDeps) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.ClientInfo(d.TrustProxyHeaders))
	router.Use(middleware.RecoverPanic(d.Logger))
	router.Use(middleware.Logging(d.Logger))

	router.HandleFunc("/health", Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/reconciliation/{code}", d.Reconciliation.GetLink).Methods(http.MethodGet)
	api.HandleFunc("/reconciliation/{code}/tax", d.Reconciliation.VerifyTaxNumber).Methods(http.MethodPost)
	api.HandleFunc("/reconciliation/{code}/otp", d.Reconciliation.IssueOtp).Methods(http.MethodPost)
	api.HandleFunc("/reconciliation/{code}/otp/verify", d.Reconciliation.VerifyOtp).Methods(http.MethodPost)
	api.HandleFunc("/reconciliation/{code}/respond", d.Reconciliation.Respond).Methods(http.MethodPost)

	api.HandleFunc("/approval/{token}/approve", d.Approval.Approve).Methods(http.MethodPost)
	api.HandleFunc("/approval/{token}/reject", d.Approval.Reject).Methods(http.MethodPost)

	if d.ClientLog != nil {
		api.HandleFunc("/client-log", d.ClientLog.LogFrontendEvent).Methods(http.MethodPost)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Kaynak bulunamadı.", http.StatusNotFound)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Bu yöntem desteklenmiyor.", http.StatusMethodNotAllowed)
	})

	return router
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
