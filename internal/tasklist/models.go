// Package tasklist owns task list records and the ownership resolution that
// all list and task access control derives from. A list belongs to exactly
// one user (personal scope) or one team (team scope), never both.
package tasklist

import "time"

// Scope distinguishes personal lists from team lists.
type Scope string

const (
	ScopePersonal Scope = "personal"
	ScopeTeam     Scope = "team"
)

// List is a named container for tasks.
type List struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OwnerUserID *string   `json:"ownerUserId"`
	TeamID      *string   `json:"teamId"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Owner is the resolved owning principal of a list. Exactly one of UserID
// and TeamID is set, matching Scope.
type Owner struct {
	Scope  Scope
	UserID string
	TeamID string
}

// Owner resolves the owning principal from the two nullable columns. ok is
// false when neither or both are set, which the creation invariant and the
// schema CHECK constraint should make unreachable; callers treat that state
// as inaccessible rather than repairing it.
func (l *List) Owner() (Owner, bool) {
	hasUser := l.OwnerUserID != nil && *l.OwnerUserID != ""
	hasTeam := l.TeamID != nil && *l.TeamID != ""
	switch {
	case hasUser && !hasTeam:
		return Owner{Scope: ScopePersonal, UserID: *l.OwnerUserID}, true
	case hasTeam && !hasUser:
		return Owner{Scope: ScopeTeam, TeamID: *l.TeamID}, true
	default:
		return Owner{}, false
	}
}

// CreateListInput holds the fields for creating a list. Exactly one of
// OwnerUserID and TeamID must be set.
type CreateListInput struct {
	Name        string
	OwnerUserID *string
	TeamID      *string
}

// UpdateListInput carries the PATCH fields for a list. Nil means the field
// was absent from the request.
type UpdateListInput struct {
	Name     *string
	Archived *bool
}
