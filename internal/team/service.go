package team

import (
	"context"
	"errors"
	"strings"

	"github.com/mfarrow/taskhive/internal/apperr"
	"github.com/mfarrow/taskhive/internal/user"
)

// store is the subset of Store the service depends on.
type store interface {
	CreateWithOwner(ctx context.Context, in CreateTeamInput) (*Team, error)
	GetByID(ctx context.Context, id string) (*Team, error)
	MembershipOf(ctx context.Context, teamID, userID string) (*Member, error)
	GetMember(ctx context.Context, teamID, memberID string) (*Member, error)
	CountOwners(ctx context.Context, teamID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]TeamWithRole, error)
	ListMembers(ctx context.Context, teamID string) ([]Member, error)
	AddMember(ctx context.Context, teamID, userID string, role Role) (*Member, error)
	UpdateMemberRoleGuarded(ctx context.Context, teamID, memberID string, role Role) (*Member, error)
	DeleteMemberGuarded(ctx context.Context, teamID, memberID string) error
	DeleteCascade(ctx context.Context, teamID string) error
}

// userDirectory resolves users when adding members by email.
// *user.Store satisfies it.
type userDirectory interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Notifier receives fire-and-forget membership notifications. Delivery must
// never block or fail the calling request.
type Notifier interface {
	TeamMemberAdded(toEmail, toName, teamName, inviterEmail string)
}

// Service enforces team and membership invariants on top of the store.
type Service struct {
	store    store
	users    userDirectory
	notifier Notifier
}

// NewService creates a team service. notifier may be nil when outbound
// notifications are disabled.
func NewService(st *Store, users *user.Store, notifier Notifier) *Service {
	return &Service{store: st, users: users, notifier: notifier}
}

// Create makes a new team with userID as the founding OWNER.
func (s *Service) Create(ctx context.Context, userID, name string, description *string) (*Team, error) {
	name = strings.TrimSpace(name)

	details := map[string]string{}
	if len(name) < 2 {
		details["name"] = "Name must be at least 2 characters"
	}
	if len(details) > 0 {
		return nil, apperr.Validation(details)
	}

	if description != nil {
		trimmed := strings.TrimSpace(*description)
		if trimmed == "" {
			description = nil
		} else {
			description = &trimmed
		}
	}

	return s.store.CreateWithOwner(ctx, CreateTeamInput{
		Name:            name,
		Description:     description,
		CreatedByUserID: userID,
	})
}

// ListMine returns the teams the user belongs to, with their role in each.
func (s *Service) ListMine(ctx context.Context, userID string) ([]TeamWithRole, error) {
	return s.store.ListByUser(ctx, userID)
}

// Get returns the team and its member roster. The caller must be a member.
func (s *Service) Get(ctx context.Context, teamID, userID string) (*Team, []Member, error) {
	t, _, err := s.RequireMember(ctx, teamID, userID)
	if err != nil {
		return nil, nil, err
	}
	members, err := s.store.ListMembers(ctx, teamID)
	if err != nil {
		return nil, nil, err
	}
	return t, members, nil
}

// Delete removes the team and cascades over its lists, tasks, and
// memberships. Only an OWNER may delete.
func (s *Service) Delete(ctx context.Context, teamID, userID string) error {
	if _, _, err := s.RequireOwner(ctx, teamID, userID); err != nil {
		return err
	}
	return s.store.DeleteCascade(ctx, teamID)
}

// AddMember adds an existing user, found by email, with role MEMBER. Only an
// OWNER may add. A best-effort notification is sent to the added user.
func (s *Service) AddMember(ctx context.Context, teamID, ownerUserID, inviterEmail, email string) (*Member, error) {
	t, _, err := s.RequireOwner(ctx, teamID, ownerUserID)
	if err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if email == "" || !user.IsValidEmail(email) {
		return nil, apperr.Validation(map[string]string{"email": "Invalid email"})
	}

	target, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.NotFoundCode(apperr.CodeUserNotFound, "User not found")
	}

	existing, err := s.store.MembershipOf(ctx, teamID, target.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict(apperr.CodeAlreadyMember, "User is already a member")
	}

	m, err := s.store.AddMember(ctx, teamID, target.ID, RoleMember)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.TeamMemberAdded(target.Email, displayName(target), t.Name, inviterEmail)
	}
	return m, nil
}

// UpdateMemberRole changes a member's role. Only an OWNER may change roles;
// demoting the sole OWNER is refused with OWNER_MUST_TRANSFER.
func (s *Service) UpdateMemberRole(ctx context.Context, teamID, ownerUserID, memberID string, role Role) (*Member, error) {
	if _, _, err := s.RequireOwner(ctx, teamID, ownerUserID); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperr.Validation(map[string]string{"role": "Role must be OWNER or MEMBER"})
	}

	m, err := s.store.UpdateMemberRoleGuarded(ctx, teamID, memberID, role)
	if err != nil {
		return nil, mapGuardErr(err)
	}
	return m, nil
}

// RemoveMember deletes a membership. Only an OWNER may remove; removing the
// sole OWNER is refused with OWNER_MUST_TRANSFER.
func (s *Service) RemoveMember(ctx context.Context, teamID, ownerUserID, memberID string) error {
	if _, _, err := s.RequireOwner(ctx, teamID, ownerUserID); err != nil {
		return err
	}
	if err := s.store.DeleteMemberGuarded(ctx, teamID, memberID); err != nil {
		return mapGuardErr(err)
	}
	return nil
}

// Leave removes the caller's own membership. No owner check: any member may
// attempt to leave, but the sole OWNER is refused with OWNER_MUST_TRANSFER.
func (s *Service) Leave(ctx context.Context, teamID, userID string) error {
	t, err := s.store.GetByID(ctx, teamID)
	if err != nil {
		return err
	}
	if t == nil {
		return apperr.NotFound("Team not found")
	}

	m, err := s.store.MembershipOf(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.NotFound("Membership not found")
	}

	if err := s.store.DeleteMemberGuarded(ctx, teamID, m.ID); err != nil {
		return mapGuardErr(err)
	}
	return nil
}

// RequireMember resolves the team and the caller's membership, failing with
// NotFound when the team is absent and Forbidden when the caller is not a
// member.
func (s *Service) RequireMember(ctx context.Context, teamID, userID string) (*Team, *Member, error) {
	t, err := s.store.GetByID(ctx, teamID)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, apperr.NotFound("Team not found")
	}

	m, err := s.store.MembershipOf(ctx, teamID, userID)
	if err != nil {
		return nil, nil, err
	}
	if m == nil {
		return nil, nil, apperr.Forbidden()
	}
	return t, m, nil
}

// RequireOwner is RequireMember plus an OWNER role check.
func (s *Service) RequireOwner(ctx context.Context, teamID, userID string) (*Team, *Member, error) {
	t, m, err := s.RequireMember(ctx, teamID, userID)
	if err != nil {
		return nil, nil, err
	}
	if m.Role != RoleOwner {
		return nil, nil, apperr.Forbidden()
	}
	return t, m, nil
}

// IsMember reports whether the user has a membership row for the team.
// Used by the list ownership resolver for team-scoped access checks.
func (s *Service) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	m, err := s.store.MembershipOf(ctx, teamID, userID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

func mapGuardErr(err error) error {
	switch {
	case errors.Is(err, ErrMemberNotFound):
		return apperr.NotFound("Member not found")
	case errors.Is(err, ErrLastOwner):
		return apperr.Conflict(apperr.CodeOwnerMustTransfer, "Owner must transfer")
	default:
		return err
	}
}

func displayName(u *user.User) string {
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	return strings.Join(parts, " ")
}
