// Package team owns team records, memberships, and the role invariants that
// go with them, most importantly that every team keeps at least one OWNER.
package team

import (
	"errors"
	"time"

	"github.com/mfarrow/taskhive/internal/user"
)

// Role is a member's role within a team.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleMember Role = "MEMBER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// Team is a named collaboration unit.
type Team struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	CreatedAt       time.Time `json:"createdAt"`
	CreatedByUserID string    `json:"createdByUserId"`
}

// Member relates one user to one team with a role. At most one membership
// row exists per (team, user) pair.
type Member struct {
	ID       string       `json:"id"`
	TeamID   string       `json:"-"`
	UserID   string       `json:"-"`
	Role     Role         `json:"role"`
	JoinedAt time.Time    `json:"joinedAt"`
	User     user.Summary `json:"user"`
}

// TeamWithRole pairs a team with the requesting user's role in it.
type TeamWithRole struct {
	Team   Team `json:"team"`
	MyRole Role `json:"myRole"`
}

// CreateTeamInput holds the fields for creating a team. The creating user
// becomes the founding OWNER in the same transaction.
type CreateTeamInput struct {
	Name            string
	Description     *string
	CreatedByUserID string
}

// Store-level sentinels, mapped onto the wire by the service.
var (
	// ErrMemberNotFound reports a membership id that does not resolve
	// within the given team.
	ErrMemberNotFound = errors.New("team: member not found")
	// ErrLastOwner reports a demotion or removal that would leave the team
	// with zero owners.
	ErrLastOwner = errors.New("team: sole owner must transfer ownership first")
)

// CanDemoteOrRemove reports whether the membership may be removed or assigned
// a non-owner role. The single blocking case is the team's sole OWNER being
// demoted or removed; every other transition is permitted.
func CanDemoteOrRemove(current Role, ownerCount int, targetsNonOwnerRole bool) bool {
	return !(current == RoleOwner && ownerCount == 1 && targetsNonOwnerRole)
}
