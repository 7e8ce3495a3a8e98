package user

import (
	"context"

	"github.com/mfarrow/taskhive/internal/auth"
)

// AuthAdapter adapts user.Store to the auth.SessionLookup interface.
type AuthAdapter struct {
	store *Store
}

// NewAuthAdapter creates a new AuthAdapter wrapping the given user store.
func NewAuthAdapter(store *Store) *AuthAdapter {
	return &AuthAdapter{store: store}
}

// LookupSession looks up a session token and returns the associated auth.User.
func (a *AuthAdapter) LookupSession(ctx context.Context, token string) (*auth.User, error) {
	u, err := a.store.GetSessionUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	return &auth.User{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}, nil
}
