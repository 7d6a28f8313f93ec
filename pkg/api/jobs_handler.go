package api

import (
	"fmt"
	"net/http"
)

// HandleListJobs handles GET /jobs
func (h *Handler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	if h.Jobs == nil {
		http.Error(w, "Scheduler is not enabled", http.StatusNotImplemented)
		return
	}
	writeJSON(w, http.StatusOK, h.Jobs.Jobs())
}

// HandleRunJobNow handles POST /jobs/{name}/run-now
func (h *Handler) HandleRunJobNow(w http.ResponseWriter, r *http.Request) {
	if h.Jobs == nil {
		http.Error(w, "Scheduler is not enabled", http.StatusNotImplemented)
		return
	}
	name := r.PathValue("name")
	if _, known := h.jobNames()[name]; !known {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if err := h.Jobs.RunNow(r.Context(), name); err != nil {
		http.Error(w, fmt.Sprintf("Job failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "done", "job": name})
}

func (h *Handler) jobNames() map[string]struct{} {
	names := make(map[string]struct{})
	for _, j := range h.Jobs.Jobs() {
		names[j.Name] = struct{}{}
	}
	return names
}

// HandleCalendarSync handles POST /calendar/sync
func (h *Handler) HandleCalendarSync(w http.ResponseWriter, r *http.Request) {
	if h.Calendar == nil {
		http.Error(w, "Calendar is not enabled", http.StatusNotImplemented)
		return
	}
	res, err := h.Calendar.SyncCurrent(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Calendar sync failed: %v", err), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
