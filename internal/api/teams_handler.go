package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mfarrow/taskhive/internal/apperr"
	"github.com/mfarrow/taskhive/internal/auth"
	"github.com/mfarrow/taskhive/internal/team"
)

// TeamService is the membership authority the team handlers depend on.
// *team.Service satisfies it.
type TeamService interface {
	Create(ctx context.Context, userID, name string, description *string) (*team.Team, error)
	ListMine(ctx context.Context, userID string) ([]team.TeamWithRole, error)
	Get(ctx context.Context, teamID, userID string) (*team.Team, []team.Member, error)
	Delete(ctx context.Context, teamID, userID string) error
	AddMember(ctx context.Context, teamID, ownerUserID, inviterEmail, email string) (*team.Member, error)
	UpdateMemberRole(ctx context.Context, teamID, ownerUserID, memberID string, role team.Role) (*team.Member, error)
	RemoveMember(ctx context.Context, teamID, ownerUserID, memberID string) error
	Leave(ctx context.Context, teamID, userID string) error
}

// teamsHandler groups team and membership HTTP handlers.
type teamsHandler struct {
	teams TeamService
}

func newTeamsHandler(teams TeamService) *teamsHandler {
	return &teamsHandler{teams: teams}
}

// Create handles POST /api/v1/teams.
func (h *teamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeInvalidJSON, "Invalid JSON body")
		return
	}

	t, err := h.teams.Create(r.Context(), u.ID, req.Name, req.Description)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "team.create", "team", t.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"team": t})
}

// List handles GET /api/v1/teams.
func (h *teamsHandler) List(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	items, err := h.teams.ListMine(r.Context(), u.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if items == nil {
		items = []team.TeamWithRole{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Get handles GET /api/v1/teams/{id}.
func (h *teamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	teamID := chi.URLParam(r, "id")

	t, members, err := h.teams.Get(r.Context(), teamID, u.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if members == nil {
		members = []team.Member{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": t, "members": members})
}

// Delete handles DELETE /api/v1/teams/{id}.
func (h *teamsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	teamID := chi.URLParam(r, "id")

	if err := h.teams.Delete(r.Context(), teamID, u.ID); err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "team.delete", "team", teamID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// AddMember handles POST /api/v1/teams/{id}/members.
func (h *teamsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	teamID := chi.URLParam(r, "id")

	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeInvalidJSON, "Invalid JSON body")
		return
	}

	m, err := h.teams.AddMember(r.Context(), teamID, u.ID, u.Email, req.Email)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "team.member.add", "team", teamID, "member_id", m.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"member": m})
}

// UpdateMemberRole handles PATCH /api/v1/teams/{id}/members/{memberId}.
func (h *teamsHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	teamID := chi.URLParam(r, "id")
	memberID := chi.URLParam(r, "memberId")

	var req struct {
		Role string `json:"role"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeInvalidJSON, "Invalid JSON body")
		return
	}

	m, err := h.teams.UpdateMemberRole(r.Context(), teamID, u.ID, memberID, team.Role(req.Role))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "team.member.role", "team", teamID, "member_id", memberID, "role", m.Role)
	writeJSON(w, http.StatusOK, map[string]any{"member": m})
}

// RemoveMember handles DELETE /api/v1/teams/{id}/members/{memberId}.
func (h *teamsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	teamID := chi.URLParam(r, "id")
	memberID := chi.URLParam(r, "memberId")

	if err := h.teams.RemoveMember(r.Context(), teamID, u.ID, memberID); err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "team.member.remove", "team", teamID, "member_id", memberID)
	w.WriteHeader(http.StatusNoContent)
}

// Leave handles POST /api/v1/teams/{id}/leave.
func (h *teamsHandler) Leave(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	teamID := chi.URLParam(r, "id")

	if err := h.teams.Leave(r.Context(), teamID, u.ID); err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "team.leave", "team", teamID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
