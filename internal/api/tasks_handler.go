package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mfarrow/taskhive/internal/apperr"
	"github.com/mfarrow/taskhive/internal/auth"
	"github.com/mfarrow/taskhive/internal/task"
)

// TaskService is the task surface the task handlers depend on.
// *task.Service satisfies it.
type TaskService interface {
	Create(ctx context.Context, userID string, in task.CreateTaskInput) (*task.Task, error)
	Get(ctx context.Context, taskID, userID string) (*task.Task, error)
	Update(ctx context.Context, taskID, userID string, in task.UpdateTaskInput) (*task.Task, error)
	Delete(ctx context.Context, taskID, userID string) error
	List(ctx context.Context, userID, listID string, f task.Filters) ([]task.Task, error)
}

// tasksHandler groups task HTTP handlers.
type tasksHandler struct {
	tasks TaskService
}

func newTasksHandler(tasks TaskService) *tasksHandler {
	return &tasksHandler{tasks: tasks}
}

// dueDateLayouts are the accepted shapes for the dueDate field, tried in
// order.
var dueDateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// parseDueDate interprets a raw dueDate value. A JSON null clears the
// field; anything that is not a parseable date string records a detail.
func parseDueDate(raw json.RawMessage, details map[string]string) (value *time.Time, present bool) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		details["dueDate"] = "dueDate must be a valid ISO date string"
		return nil, false
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	details["dueDate"] = "dueDate must be a valid ISO date string"
	return nil, false
}

// Create handles POST /api/v1/tasks.
func (h *tasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	var raw map[string]json.RawMessage
	if err := readJSON(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeInvalidJSON, "Invalid JSON body")
		return
	}

	details := map[string]string{}
	in := task.CreateTaskInput{}

	// Non-string listId and title degrade to empty and fall into the
	// required/length checks below.
	if v, ok := raw["listId"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			in.ListID = strings.TrimSpace(s)
		}
	}
	if in.ListID == "" {
		details["listId"] = "listId is required"
	}

	if v, ok := raw["title"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			in.Title = strings.TrimSpace(s)
		}
	}
	if len(in.Title) < 2 {
		details["title"] = "Title must be at least 2 characters"
	}

	if v, ok := raw["description"]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			details["description"] = "Description must be a string"
		} else {
			t := strings.TrimSpace(s)
			in.Description = &t
		}
	}

	if v, ok := raw["dueDate"]; ok {
		due, _ := parseDueDate(v, details)
		in.DueDate = due
	}

	if v, ok := raw["priority"]; ok {
		var s string
		_ = json.Unmarshal(v, &s)
		in.Priority = task.Priority(s)
	}
	if !in.Priority.Valid() {
		details["priority"] = "Priority must be LOW, MEDIUM, or HIGH"
	}

	if v, ok := raw["status"]; ok {
		var s string
		_ = json.Unmarshal(v, &s)
		in.Status = task.Status(s)
	}
	if !in.Status.Valid() {
		details["status"] = "Status must be TODO, IN_PROGRESS, or DONE"
	}

	if len(details) > 0 {
		writeAppError(w, r, apperr.Validation(details))
		return
	}

	t, err := h.tasks.Create(r.Context(), u.ID, in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "task.create", "task", t.ID, "list_id", t.ListID)
	writeJSON(w, http.StatusCreated, map[string]any{"item": t})
}

// List handles GET /api/v1/tasks.
func (h *tasksHandler) List(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	q := r.URL.Query()

	listID := strings.TrimSpace(q.Get("listId"))
	details := map[string]string{}
	f := task.Filters{Q: strings.TrimSpace(q.Get("q")), Due: task.DueAll}

	if listID == "" {
		details["listId"] = "listId is required"
	}
	if v := q.Get("status"); v != "" {
		st := task.Status(v)
		if !st.Valid() {
			details["status"] = "Status must be TODO, IN_PROGRESS, or DONE"
		} else {
			f.Status = &st
		}
	}
	if v := q.Get("priority"); v != "" {
		p := task.Priority(v)
		if !p.Valid() {
			details["priority"] = "Priority must be LOW, MEDIUM, or HIGH"
		} else {
			f.Priority = &p
		}
	}
	if v := q.Get("due"); v != "" {
		d := task.DueFilter(v)
		if !d.Valid() {
			details["due"] = "due must be soon, overdue, or all"
		} else {
			f.Due = d
		}
	}
	if len(details) > 0 {
		writeAppError(w, r, apperr.Validation(details))
		return
	}

	items, err := h.tasks.List(r.Context(), u.ID, listID, f)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if items == nil {
		items = []task.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Update handles PATCH /api/v1/tasks/{id}. Access is resolved through the
// parent list before the body is parsed.
func (h *tasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	taskID := chi.URLParam(r, "id")

	if _, err := h.tasks.Get(r.Context(), taskID, u.ID); err != nil {
		writeAppError(w, r, err)
		return
	}

	var raw map[string]json.RawMessage
	if err := readJSON(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeInvalidJSON, "Invalid JSON body")
		return
	}

	details := map[string]string{}
	in := task.UpdateTaskInput{}

	if v, ok := raw["title"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			details["title"] = "Title must be a string"
		} else {
			t := strings.TrimSpace(s)
			if len(t) < 2 {
				details["title"] = "Title must be at least 2 characters"
			}
			in.Title = &t
		}
	}

	if v, ok := raw["description"]; ok {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			in.HasDescription = true
		} else {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				details["description"] = "Description must be a string"
			} else {
				t := strings.TrimSpace(s)
				in.Description = &t
				in.HasDescription = true
			}
		}
	}

	if v, ok := raw["dueDate"]; ok {
		due, present := parseDueDate(v, details)
		in.DueDate = due
		in.HasDueDate = present
	}

	if v, ok := raw["priority"]; ok {
		var s string
		_ = json.Unmarshal(v, &s)
		p := task.Priority(s)
		if !p.Valid() {
			details["priority"] = "Priority must be LOW, MEDIUM, or HIGH"
		} else {
			in.Priority = &p
		}
	}

	if v, ok := raw["status"]; ok {
		var s string
		_ = json.Unmarshal(v, &s)
		st := task.Status(s)
		if !st.Valid() {
			details["status"] = "Status must be TODO, IN_PROGRESS, or DONE"
		} else {
			in.Status = &st
		}
	}

	if len(details) > 0 {
		writeAppError(w, r, apperr.Validation(details))
		return
	}

	t, err := h.tasks.Update(r.Context(), taskID, u.ID, in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "task.update", "task", taskID)
	writeJSON(w, http.StatusOK, map[string]any{"item": t})
}

// Delete handles DELETE /api/v1/tasks/{id}.
func (h *tasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	taskID := chi.URLParam(r, "id")

	if err := h.tasks.Delete(r.Context(), taskID, u.ID); err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "task.delete", "task", taskID)
	w.WriteHeader(http.StatusNoContent)
}
