// Package auth resolves bearer credentials to authenticated users and
// carries the resolved identity through the request context.
package auth

import (
	"context"
	"time"
)

// User is the authenticated identity attached to a request.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName *string   `json:"firstName"`
	LastName  *string   `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionLookup resolves an opaque bearer token to a user. Implementations
// return (nil, nil) when the token does not resolve to a live session.
type SessionLookup interface {
	LookupSession(ctx context.Context, token string) (*User, error)
}
