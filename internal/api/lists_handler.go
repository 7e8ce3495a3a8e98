package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mfarrow/taskhive/internal/apperr"
	"github.com/mfarrow/taskhive/internal/auth"
	"github.com/mfarrow/taskhive/internal/tasklist"
)

// ListService is the task-list surface the list handlers depend on.
// *tasklist.Service satisfies it.
type ListService interface {
	Create(ctx context.Context, userID, name string, scope tasklist.Scope, teamID *string) (*tasklist.List, error)
	List(ctx context.Context, userID string, scope tasklist.Scope, teamID *string) ([]tasklist.List, error)
	GetAuthorized(ctx context.Context, listID, userID string) (*tasklist.List, error)
	Update(ctx context.Context, listID, userID string, in tasklist.UpdateListInput) (*tasklist.List, error)
	Delete(ctx context.Context, listID, userID string) error
}

// listsHandler groups task-list HTTP handlers.
type listsHandler struct {
	lists ListService
}

func newListsHandler(lists ListService) *listsHandler {
	return &listsHandler{lists: lists}
}

// Create handles POST /api/v1/task-lists.
func (h *listsHandler) Create(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	var req struct {
		Name   string  `json:"name"`
		Scope  string  `json:"scope"`
		TeamID *string `json:"teamId"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeInvalidJSON, "Invalid JSON body")
		return
	}

	l, err := h.lists.Create(r.Context(), u.ID, req.Name, tasklist.Scope(req.Scope), req.TeamID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "tasklist.create", "tasklist", l.ID, "scope", req.Scope)
	writeJSON(w, http.StatusCreated, map[string]any{"item": l})
}

// List handles GET /api/v1/task-lists.
func (h *listsHandler) List(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	q := r.URL.Query()

	var teamID *string
	if v := q.Get("teamId"); v != "" {
		teamID = &v
	}

	items, err := h.lists.List(r.Context(), u.ID, tasklist.Scope(q.Get("scope")), teamID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if items == nil {
		items = []tasklist.List{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Update handles PATCH /api/v1/task-lists/{id}. Access is checked before
// the body is parsed, so callers without access never see validation
// errors for a list they cannot reach.
func (h *listsHandler) Update(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	listID := chi.URLParam(r, "id")

	if _, err := h.lists.GetAuthorized(r.Context(), listID, u.ID); err != nil {
		writeAppError(w, r, err)
		return
	}

	var raw map[string]json.RawMessage
	if err := readJSON(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeInvalidJSON, "Invalid JSON body")
		return
	}

	var in tasklist.UpdateListInput
	if v, ok := raw["name"]; ok {
		var s string
		// Non-string names are ignored rather than rejected; the length
		// check below then applies only to real strings.
		if err := json.Unmarshal(v, &s); err == nil {
			in.Name = &s
		}
	}
	if v, ok := raw["archived"]; ok {
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			writeAppError(w, r, apperr.Validation(map[string]string{"archived": "Archived must be a boolean"}))
			return
		}
		in.Archived = &b
	}

	l, err := h.lists.Update(r.Context(), listID, u.ID, in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "tasklist.update", "tasklist", listID)
	writeJSON(w, http.StatusOK, map[string]any{"item": l})
}

// Delete handles DELETE /api/v1/task-lists/{id}.
func (h *listsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	listID := chi.URLParam(r, "id")

	if err := h.lists.Delete(r.Context(), listID, u.ID); err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "tasklist.delete", "tasklist", listID)
	w.WriteHeader(http.StatusNoContent)
}
