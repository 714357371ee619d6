// internal/integrity/handler.go
package integrity

import (
	"net/http"

	"libranexus/internal/httpx"
)

type Handler struct {
	auditor *Auditor
}

func NewHandler(auditor *Auditor) *Handler {
	return &Handler{auditor: auditor}
}

// HandleRun runs the audit now. The response is 200 when healthy and 503
// otherwise, so it can back an alerting probe.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.auditor.Run(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, report)
}
