package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/mfarrow/taskhive/internal/apperr"
	"github.com/mfarrow/taskhive/internal/auth"
	"github.com/mfarrow/taskhive/internal/user"
)

// UserStore is the subset of the user store the auth handlers depend on.
type UserStore interface {
	Create(ctx context.Context, in user.CreateUserInput) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	CreateSession(ctx context.Context, userID string) (string, *user.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	store UserStore
}

func newAuthHandler(store UserStore) *authHandler {
	return &authHandler{store: store}
}

// Register handles POST /api/v1/auth/register.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string  `json:"email"`
		Password  string  `json:"password"`
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeInvalidJSON, "Invalid JSON body")
		return
	}

	details := map[string]string{}
	email := user.NormalizeEmail(req.Email)
	if !user.IsValidEmail(email) {
		details["email"] = "Invalid email"
	}
	if len(req.Password) < 8 {
		details["password"] = "Password must be at least 8 characters"
	}
	firstName := trimOptional(req.FirstName)
	if req.FirstName != nil && firstName == nil {
		details["firstName"] = "First name must be at least 1 character"
	}
	lastName := trimOptional(req.LastName)
	if req.LastName != nil && lastName == nil {
		details["lastName"] = "Last name must be at least 1 character"
	}
	if len(details) > 0 {
		writeAppError(w, r, apperr.Validation(details))
		return
	}

	existing, err := h.store.GetByEmail(r.Context(), email)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if existing != nil {
		writeAppError(w, r, apperr.Conflict(apperr.CodeEmailInUse, "Email already in use"))
		return
	}

	u, err := h.store.Create(r.Context(), user.CreateUserInput{
		Email:     email,
		Password:  req.Password,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	auditLog(r, "auth.register", "user", u.ID, "email", u.Email)
	writeJSON(w, http.StatusCreated, map[string]any{"user": u})
}

// Login handles POST /api/v1/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeInvalidJSON, "Invalid JSON body")
		return
	}

	details := map[string]string{}
	email := user.NormalizeEmail(req.Email)
	if !user.IsValidEmail(email) {
		details["email"] = "Invalid email"
	}
	if len(req.Password) < 8 {
		details["password"] = "Password must be at least 8 characters"
	}
	if len(details) > 0 {
		writeAppError(w, r, apperr.Validation(details))
		return
	}

	u, err := h.store.GetByEmail(r.Context(), email)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if u == nil || !user.CheckPassword(u, req.Password) {
		writeError(w, http.StatusUnauthorized, apperr.CodeInvalidCredentials, "Invalid credentials")
		return
	}

	token, _, err := h.store.CreateSession(r.Context(), u.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": u})
}

// Me handles GET /api/v1/auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, apperr.CodeUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

// Logout handles POST /api/v1/auth/logout.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractBearerToken(r)
	if token != "" {
		_ = h.store.DeleteSession(r.Context(), token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// trimOptional trims s and returns nil when the result is empty.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
