package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mfarrow/taskhive/internal/auth"
	"github.com/mfarrow/taskhive/internal/contract"
	"github.com/mfarrow/taskhive/internal/metrics"
	"github.com/mfarrow/taskhive/internal/ratelimit"
)

// Pinger reports database liveness for the health endpoint. *pgxpool.Pool
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Users          UserStore
	Teams          TeamService
	Lists          ListService
	Tasks          TaskService
	Sessions       auth.SessionLookup
	Limiter        *ratelimit.Limiter
	Metrics        *metrics.Metrics
	Contract       *contract.Registry
	DB             Pinger
	AllowedOrigins []string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(secureHeaders)
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// Handlers.
	authH := newAuthHandler(deps.Users)
	teams := newTeamsHandler(deps.Teams)
	lists := newListsHandler(deps.Lists)
	tasks := newTasksHandler(deps.Tasks)

	reg := deps.Contract
	if reg == nil {
		reg = contract.NewRegistry()
	}
	doc := func(method, path, summary string, authed bool) {
		reg.Register(method, path, summary, authed)
	}

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		database := "connected"
		status := http.StatusOK
		if deps.DB != nil {
			if err := deps.DB.Ping(r.Context()); err != nil {
				database = "error"
				status = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, status, map[string]string{"status": "ok", "database": database})
	})

	// Operational surfaces.
	if deps.Metrics != nil {
		r.Get("/metrics", deps.Metrics.Handler().ServeHTTP)
	}
	r.Get("/api/v1/contract", reg.Handler().ServeHTTP)

	// Public (unauthenticated) routes.
	r.Post("/api/v1/auth/register", authH.Register)
	doc("POST", "/api/v1/auth/register", "Register a new account", false)
	r.Post("/api/v1/auth/login", authH.Login)
	doc("POST", "/api/v1/auth/login", "Exchange credentials for a bearer token", false)

	// Authenticated routes.
	r.Route("/api/v1", func(ar chi.Router) {
		var onAuth []func(ok bool)
		if deps.Metrics != nil {
			onAuth = append(onAuth, deps.Metrics.ObserveAuth)
		}
		ar.Use(auth.Middleware(deps.Sessions, onAuth...))
		if deps.Limiter != nil {
			var onReject []func()
			if deps.Metrics != nil {
				onReject = append(onReject, deps.Metrics.IncRateLimitRejection)
			}
			ar.Use(ratelimit.Middleware(deps.Limiter, onReject...))
		}

		ar.Get("/auth/me", authH.Me)
		doc("GET", "/api/v1/auth/me", "Current authenticated user", true)
		ar.Post("/auth/logout", authH.Logout)
		doc("POST", "/api/v1/auth/logout", "Revoke the current session", true)

		// Teams and memberships.
		ar.Post("/teams", teams.Create)
		doc("POST", "/api/v1/teams", "Create a team with the caller as owner", true)
		ar.Get("/teams", teams.List)
		doc("GET", "/api/v1/teams", "Teams the caller belongs to", true)
		ar.Get("/teams/{id}", teams.Get)
		doc("GET", "/api/v1/teams/{id}", "Team detail with members", true)
		ar.Delete("/teams/{id}", teams.Delete)
		doc("DELETE", "/api/v1/teams/{id}", "Delete a team and everything it owns", true)
		ar.Post("/teams/{id}/members", teams.AddMember)
		doc("POST", "/api/v1/teams/{id}/members", "Add a member by email", true)
		ar.Patch("/teams/{id}/members/{memberId}", teams.UpdateMemberRole)
		doc("PATCH", "/api/v1/teams/{id}/members/{memberId}", "Change a member's role", true)
		ar.Delete("/teams/{id}/members/{memberId}", teams.RemoveMember)
		doc("DELETE", "/api/v1/teams/{id}/members/{memberId}", "Remove a member", true)
		ar.Post("/teams/{id}/leave", teams.Leave)
		doc("POST", "/api/v1/teams/{id}/leave", "Leave a team", true)

		// Task lists.
		ar.Post("/task-lists", lists.Create)
		doc("POST", "/api/v1/task-lists", "Create a personal or team task list", true)
		ar.Get("/task-lists", lists.List)
		doc("GET", "/api/v1/task-lists", "Task lists in a scope", true)
		ar.Patch("/task-lists/{id}", lists.Update)
		doc("PATCH", "/api/v1/task-lists/{id}", "Rename or archive a task list", true)
		ar.Delete("/task-lists/{id}", lists.Delete)
		doc("DELETE", "/api/v1/task-lists/{id}", "Delete an empty task list", true)

		// Tasks.
		ar.Post("/tasks", tasks.Create)
		doc("POST", "/api/v1/tasks", "Create a task in a list", true)
		ar.Get("/tasks", tasks.List)
		doc("GET", "/api/v1/tasks", "Tasks in a list with filters", true)
		ar.Patch("/tasks/{id}", tasks.Update)
		doc("PATCH", "/api/v1/tasks/{id}", "Partially update a task", true)
		ar.Delete("/tasks/{id}", tasks.Delete)
		doc("DELETE", "/api/v1/tasks/{id}", "Delete a task", true)
	})

	return r
}
