package tasklist

import (
	"context"
	"strings"

	"github.com/mfarrow/taskhive/internal/apperr"
)

// store is the subset of Store the service depends on.
type store interface {
	GetByID(ctx context.Context, id string) (*List, error)
	Create(ctx context.Context, in CreateListInput) (*List, error)
	Update(ctx context.Context, id string, in UpdateListInput) (*List, error)
	Delete(ctx context.Context, id string) error
	ListPersonal(ctx context.Context, userID string) ([]List, error)
	ListTeam(ctx context.Context, teamID string) ([]List, error)
	CountTasks(ctx context.Context, listID string) (int, error)
}

// memberships answers team membership questions for team-scoped access
// checks. *team.Service satisfies it.
type memberships interface {
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
}

// Service enforces list invariants and resolves list ownership. Task access
// control also goes through Authorize here, so removing a user from a team
// cuts off that team's lists and tasks on the next request.
type Service struct {
	store store
	teams memberships
}

// NewService creates a task list service.
func NewService(st *Store, teams memberships) *Service {
	return &Service{store: st, teams: teams}
}

// Create makes a new list in the given scope. Team scope requires the caller
// to be a member of the team; ownership stays with the team, not the caller.
func (s *Service) Create(ctx context.Context, userID, name string, scope Scope, teamID *string) (*List, error) {
	name = strings.TrimSpace(name)

	details := map[string]string{}
	if len(name) < 2 {
		details["name"] = "Name must be at least 2 characters"
	}
	if scope != ScopePersonal && scope != ScopeTeam {
		details["scope"] = "Scope must be personal or team"
	}
	if scope == ScopeTeam && (teamID == nil || *teamID == "") {
		details["teamId"] = "teamId is required for team scope"
	}
	if len(details) > 0 {
		return nil, apperr.Validation(details)
	}

	in := CreateListInput{Name: name}
	if scope == ScopeTeam {
		member, err := s.teams.IsMember(ctx, *teamID, userID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, apperr.Forbidden()
		}
		in.TeamID = teamID
	} else {
		in.OwnerUserID = &userID
	}

	return s.store.Create(ctx, in)
}

// List returns the lists visible in one scope. Personal never includes team
// lists and vice versa.
func (s *Service) List(ctx context.Context, userID string, scope Scope, teamID *string) ([]List, error) {
	switch scope {
	case ScopePersonal:
		return s.store.ListPersonal(ctx, userID)
	case ScopeTeam:
		if teamID == nil || *teamID == "" {
			return nil, apperr.Validation(map[string]string{"teamId": "teamId is required for team scope"})
		}
		member, err := s.teams.IsMember(ctx, *teamID, userID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, apperr.Forbidden()
		}
		return s.store.ListTeam(ctx, *teamID)
	default:
		return nil, apperr.Validation(map[string]string{"scope": "Scope must be personal or team"})
	}
}

// Update renames or archives a list. A PATCH with no recognized fields is
// rejected. Archiving does not touch the contained tasks.
func (s *Service) Update(ctx context.Context, listID, userID string, in UpdateListInput) (*List, error) {
	if _, err := s.GetAuthorized(ctx, listID, userID); err != nil {
		return nil, err
	}

	if in.Name == nil && in.Archived == nil {
		return nil, apperr.Validation(map[string]string{"body": "No valid fields to update"})
	}
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if len(trimmed) < 2 {
			return nil, apperr.Validation(map[string]string{"name": "Name must be at least 2 characters"})
		}
		in.Name = &trimmed
	}

	updated, err := s.store.Update(ctx, listID, in)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("Task list not found")
	}
	return updated, nil
}

// Delete removes an empty list. A list holding any tasks is refused with
// LIST_NOT_EMPTY; nothing cascades here, unlike team deletion.
func (s *Service) Delete(ctx context.Context, listID, userID string) error {
	if _, err := s.GetAuthorized(ctx, listID, userID); err != nil {
		return err
	}

	n, err := s.store.CountTasks(ctx, listID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict(apperr.CodeListNotEmpty, "Task list is not empty")
	}

	return s.store.Delete(ctx, listID)
}

// GetAuthorized resolves a list by id and checks the caller's access to it.
func (s *Service) GetAuthorized(ctx context.Context, listID, userID string) (*List, error) {
	l, err := s.store.GetByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := s.Authorize(ctx, l, userID); err != nil {
		return nil, err
	}
	return l, nil
}

// Authorize checks whether userID may read or mutate the list. A nil list is
// NotFound; a personal list requires ownership; a team list requires current
// membership. A list with a corrupt owner pairing is treated as inaccessible.
func (s *Service) Authorize(ctx context.Context, l *List, userID string) error {
	if l == nil {
		return apperr.NotFound("Task list not found")
	}

	owner, ok := l.Owner()
	if !ok {
		return apperr.Forbidden()
	}

	switch owner.Scope {
	case ScopePersonal:
		if owner.UserID != userID {
			return apperr.Forbidden()
		}
		return nil
	default:
		member, err := s.teams.IsMember(ctx, owner.TeamID, userID)
		if err != nil {
			return err
		}
		if !member {
			return apperr.Forbidden()
		}
		return nil
	}
}
