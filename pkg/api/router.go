package api

import (
	"net/http"
)

// NewRouter creates a new HTTP router
func NewRouter(h *Handler) *http.ServeMux {
	if h.now == nil {
		h.now = defaultNow
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /tasks", h.HandleListTasks)
	mux.HandleFunc("GET /tasks/recent", h.HandleRecentTasks)
	mux.HandleFunc("GET /tasks/forest", h.HandleForest)
	mux.HandleFunc("GET /projects", h.HandleProjects)
	mux.HandleFunc("GET /stats", h.HandleStats)
	mux.HandleFunc("GET /analytics", h.HandleAnalytics)
	mux.HandleFunc("GET /history", h.HandleHistory)
	mux.HandleFunc("POST /refresh", h.HandleRefresh)
	mux.HandleFunc("POST /review", h.HandleReview)

	mux.HandleFunc("GET /local-tasks", h.HandleListLocalTasks)
	mux.HandleFunc("POST /local-tasks", h.HandleCreateLocalTask)
	mux.HandleFunc("PATCH /local-tasks/{id}", h.HandleUpdateLocalTask)
	mux.HandleFunc("DELETE /local-tasks/{id}", h.HandleDeleteLocalTask)
	mux.HandleFunc("POST /inbox", h.HandleInbox)

	mux.HandleFunc("GET /jobs", h.HandleListJobs)
	mux.HandleFunc("POST /jobs/{name}/run-now", h.HandleRunJobNow)
	mux.HandleFunc("POST /calendar/sync", h.HandleCalendarSync)

	return mux
}
