package user

import "time"

// User represents a registered account. Email is stored normalized
// (trimmed, lower-cased) and is unique.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    *string   `json:"firstName"`
	LastName     *string   `json:"lastName"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary is the embedded user shape returned inside team member payloads.
type Summary struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// Summary returns the embeddable view of the user.
func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

// CreateUserInput holds the fields required to register a new user.
// Email must already be normalized by the caller.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// Session represents an active bearer session. Only the SHA-256 hash of the
// opaque token is stored.
type Session struct {
	TokenHash string    `json:"-"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
