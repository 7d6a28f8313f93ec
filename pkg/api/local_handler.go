package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/mklimuk/orbit/pkg/ai"
	"github.com/mklimuk/orbit/pkg/project"
	"github.com/mklimuk/orbit/pkg/store"
	"github.com/mklimuk/orbit/pkg/task"
)

// taskRequest is the body of local task create and update calls. Absent
// fields are left unchanged; an empty dueDate clears the deadline.
type taskRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	DueDate     *string  `json:"dueDate"`
	Priority    *string  `json:"priority"`
	Status      *string  `json:"status"`
	Zoom        *string  `json:"zoom"`
	ParentID    *string  `json:"parentId"`
	Class       *string  `json:"class"`
	Projects    []string `json:"projects"`
	Goals       []string `json:"goals"`
}

func (req taskRequest) update() (task.Update, error) {
	u := task.Update{
		Description: req.Description,
		ParentID:    req.ParentID,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return u, fmt.Errorf("name must not be empty")
		}
		u.Name = &name
	}
	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			u.ClearDueDate = true
		} else {
			due, ok := task.ParseTime(*req.DueDate)
			if !ok {
				return u, fmt.Errorf("invalid dueDate: %q", *req.DueDate)
			}
			u.DueDate = &due
		}
	}
	if req.Priority != nil {
		p := task.ParsePriority(*req.Priority)
		u.Priority = &p
	}
	if req.Status != nil {
		s := task.ParseStatus(*req.Status)
		u.Status = &s
	}
	if req.Zoom != nil {
		z := task.ParseZoom(*req.Zoom)
		u.Zoom = &z
	}

	props := task.Properties{}
	if req.Class != nil {
		props[project.PropClass] = task.SelectProperty(*req.Class)
	}
	if req.Projects != nil {
		props[project.PropProjects] = task.RelationProperty(req.Projects...)
	}
	if req.Goals != nil {
		props[project.PropGoals] = task.RelationProperty(req.Goals...)
	}
	if len(props) > 0 {
		u.Properties = props
	}
	return u, nil
}

func (h *Handler) localStore(w http.ResponseWriter) bool {
	if h.Store == nil {
		http.Error(w, "Local tasks are not enabled", http.StatusNotImplemented)
		return false
	}
	return true
}

// persist saves the local store and republishes the snapshot. A failed
// refresh is logged only: the change itself is durable.
func (h *Handler) persist(ctx context.Context, change func() error) error {
	if err := h.Store.Commit(ctx, change); err != nil {
		return err
	}
	if err := h.Snapshots.Refresh(ctx); err != nil {
		log.Printf("API: refresh after local change failed: %v", err)
	}
	return nil
}

// HandleListLocalTasks handles GET /local-tasks
func (h *Handler) HandleListLocalTasks(w http.ResponseWriter, r *http.Request) {
	if !h.localStore(w) {
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tasks := h.Store.List(q.filter, q.sort)
	if q.limit > 0 && len(tasks) > q.limit {
		tasks = tasks[:q.limit]
	}
	writeJSON(w, http.StatusOK, tasks)
}

// HandleCreateLocalTask handles POST /local-tasks
func (h *Handler) HandleCreateLocalTask(w http.ResponseWriter, r *http.Request) {
	if !h.localStore(w) {
		return
	}
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == nil {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	u, err := req.update()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var t task.Task
	err = h.persist(r.Context(), func() error {
		t = h.Store.Create(*u.Name, u)
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to save task: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// HandleUpdateLocalTask handles PATCH /local-tasks/{id}
func (h *Handler) HandleUpdateLocalTask(w http.ResponseWriter, r *http.Request) {
	if !h.localStore(w) {
		return
	}
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	u, err := req.update()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var t task.Task
	err = h.persist(r.Context(), func() error {
		var err error
		t, err = h.Store.Update(r.PathValue("id"), u)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to save task: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleDeleteLocalTask handles DELETE /local-tasks/{id}
func (h *Handler) HandleDeleteLocalTask(w http.ResponseWriter, r *http.Request) {
	if !h.localStore(w) {
		return
	}
	err := h.persist(r.Context(), func() error {
		return h.Store.Delete(r.PathValue("id"))
	})
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to save tasks: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateInboxRequest represents the payload for capturing free text
type CreateInboxRequest struct {
	Content string `json:"content"`
}

// taskDraft is the JSON the AI answers a TaskPrompt with.
type taskDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Zoom        string `json:"zoom"`
}

// HandleInbox handles POST /inbox
func (h *Handler) HandleInbox(w http.ResponseWriter, r *http.Request) {
	if !h.localStore(w) {
		return
	}
	var req CreateInboxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	draft := h.draft(r.Context(), content)
	u := task.Update{}
	if draft.Description != "" {
		u.Description = &draft.Description
	}
	if draft.Priority != "" {
		p := task.ParsePriority(draft.Priority)
		u.Priority = &p
	}
	if draft.Zoom != "" {
		z := task.ParseZoom(draft.Zoom)
		u.Zoom = &z
	}

	var t task.Task
	err := h.persist(r.Context(), func() error {
		t = h.Store.Create(draft.Name, u)
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to save task: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// draft asks the AI to structure content. Without AI, or when the reply
// is unusable, the content itself becomes the task name.
func (h *Handler) draft(ctx context.Context, content string) taskDraft {
	fallback := taskDraft{Name: content}
	if h.AI == nil {
		return fallback
	}
	reply, err := h.AI.GenerateText(ctx, ai.TaskPrompt(content))
	if err != nil {
		log.Printf("API: AI draft failed: %v", err)
		return fallback
	}
	var d taskDraft
	if err := json.Unmarshal([]byte(ai.CleanJSON(reply)), &d); err != nil || strings.TrimSpace(d.Name) == "" {
		log.Printf("API: unusable AI draft, keeping raw content")
		return fallback
	}
	d.Name = strings.TrimSpace(d.Name)
	return d
}
