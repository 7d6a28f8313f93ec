// Package api serves the task snapshot, the project rollups and the local
// task store over HTTP as JSON.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mklimuk/orbit/pkg/ai"
	"github.com/mklimuk/orbit/pkg/automation"
	"github.com/mklimuk/orbit/pkg/db"
	"github.com/mklimuk/orbit/pkg/integration/calendar"
	"github.com/mklimuk/orbit/pkg/project"
	"github.com/mklimuk/orbit/pkg/snapshot"
	"github.com/mklimuk/orbit/pkg/store"
	"github.com/mklimuk/orbit/pkg/task"
)

// Snapshots serves the current snapshot and forces reloads.
type Snapshots interface {
	Current() *snapshot.Snapshot
	Refresh(ctx context.Context) error
}

// History lists recorded stats rows, newest first.
type History interface {
	ListStats(limit int) ([]db.StatsRecord, error)
}

// CalendarSyncer publishes the current deadlines.
type CalendarSyncer interface {
	SyncCurrent(ctx context.Context) (calendar.Result, error)
}

// Handler holds dependencies for API handlers. Store, History, AI, Jobs
// and Calendar are optional; their endpoints answer 501 without them.
type Handler struct {
	Snapshots Snapshots
	Store     *store.Store
	History   History
	AI        ai.Generator
	Jobs      *automation.Service
	Calendar  CalendarSyncer

	now func() time.Time
}

func defaultNow() time.Time { return time.Now() }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("API: failed to encode response: %v", err)
	}
}

// current returns the published snapshot or answers 503.
func (h *Handler) current(w http.ResponseWriter) (*snapshot.Snapshot, bool) {
	snap := h.Snapshots.Current()
	if snap == nil {
		msg := "Snapshot not loaded yet"
		if r, ok := h.Snapshots.(interface{ LastError() error }); ok && r.LastError() != nil {
			msg = fmt.Sprintf("%s: %v", msg, r.LastError())
		}
		http.Error(w, msg, http.StatusServiceUnavailable)
		return nil, false
	}
	return snap, true
}

// HandleListTasks handles GET /tasks
func (h *Handler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w)
	if !ok {
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, q.apply(snap.Tasks))
}

// HandleRecentTasks handles GET /tasks/recent
func (h *Handler) HandleRecentTasks(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w)
	if !ok {
		return
	}
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, task.Recent(snap.Tasks, limit))
}

// HandleForest handles GET /tasks/forest
func (h *Handler) HandleForest(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w)
	if !ok {
		return
	}
	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "parent":
		writeJSON(w, http.StatusOK, task.BuildForest(snap.Tasks))
	case "zoom":
		writeJSON(w, http.StatusOK, task.BuildZoomForest(snap.Tasks))
	default:
		http.Error(w, "mode must be parent or zoom", http.StatusBadRequest)
	}
}

// HandleProjects handles GET /projects
func (h *Handler) HandleProjects(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, project.Rollup(snap.Tasks, h.now()))
}

// HandleStats handles GET /stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, project.ComputeStats(snap.Tasks, h.now()))
}

// HandleAnalytics handles GET /analytics
func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, project.Analyze(snap.Tasks))
}

// HandleHistory handles GET /history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		http.Error(w, "History is not enabled", http.StatusNotImplemented)
		return
	}
	limit, err := intParam(r, "limit", 30)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := h.History.ListStats(limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list history: %v", err), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []db.StatsRecord{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleRefresh handles POST /refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Snapshots.Refresh(r.Context()); err != nil {
		http.Error(w, fmt.Sprintf("Refresh failed: %v", err), http.StatusBadGateway)
		return
	}
	snap := h.Snapshots.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"takenAt":  snap.TakenAt,
		"tasks":    len(snap.Tasks),
		"rejected": snap.Rejected,
		"sources":  snap.Sources,
	})
}

// HandleReview handles POST /review
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	if h.AI == nil {
		http.Error(w, "AI is not configured", http.StatusNotImplemented)
		return
	}
	snap, ok := h.current(w)
	if !ok {
		return
	}
	report := project.Rollup(snap.Tasks, h.now())
	review, err := h.AI.GenerateText(r.Context(), ai.ReviewPrompt(report))
	if err != nil {
		http.Error(w, fmt.Sprintf("AI generation failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generatedAt": report.GeneratedAt,
		"review":      review,
	})
}

// taskQuery is the parsed filter, sort and limit of a list request.
type taskQuery struct {
	filter task.Filter
	sort   task.Sort
	limit  int
}

func (q taskQuery) apply(tasks []task.Task) []task.Task {
	out := q.sort.Apply(q.filter.Apply(tasks))
	if q.limit > 0 && len(out) > q.limit {
		out = out[:q.limit]
	}
	return out
}

// parseQuery reads status, priority, zoom (repeated or comma separated),
// q, due_after, due_before, sort, order and limit.
func parseQuery(r *http.Request) (taskQuery, error) {
	var q taskQuery
	values := r.URL.Query()
	for _, s := range listParam(values["status"]) {
		q.filter.Statuses = append(q.filter.Statuses, task.ParseStatus(s))
	}
	for _, s := range listParam(values["priority"]) {
		q.filter.Priorities = append(q.filter.Priorities, task.ParsePriority(s))
	}
	for _, s := range listParam(values["zoom"]) {
		q.filter.Zooms = append(q.filter.Zooms, task.ParseZoom(s))
	}
	q.filter.Search = values.Get("q")

	for name, dst := range map[string]**time.Time{"due_after": &q.filter.DueAfter, "due_before": &q.filter.DueBefore} {
		if v := values.Get(name); v != "" {
			ts, ok := task.ParseTime(v)
			if !ok {
				return q, fmt.Errorf("invalid %s: %q", name, v)
			}
			*dst = &ts
		}
	}

	if v := values.Get("sort"); v != "" {
		field, ok := task.ParseSortField(v)
		if !ok {
			return q, fmt.Errorf("invalid sort: %q", v)
		}
		q.sort.Field = field
	}
	switch order := values.Get("order"); order {
	case "", "asc":
	case "desc":
		q.sort.Desc = true
	default:
		return q, fmt.Errorf("invalid order: %q", order)
	}

	limit, err := intParam(r, "limit", 0)
	if err != nil {
		return q, err
	}
	q.limit = limit
	return q, nil
}

func listParam(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, v)
	}
	return n, nil
}
