package audit

import (
	"net/http"

	"librarydesk/internal/httpx"
)

type Handler struct {
	auditor *Auditor
}

func NewHandler(auditor *Auditor) *Handler {
	return &Handler{auditor: auditor}
}

// HandleRun evaluates every check and returns the report. Violations answer 409.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	report := h.auditor.Run(r.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusConflict
	}
	httpx.JSON(w, status, report)
}

// HandleLast returns the most recent report without running the checks again.
func (h *Handler) HandleLast(w http.ResponseWriter, r *http.Request) {
	report := h.auditor.Last()
	if report == nil {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
