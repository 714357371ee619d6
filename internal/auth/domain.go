// internal/auth/domain.go
package auth

import (
	"time"
)

// Role is the authority granted to a system user.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleLibrarian Role = "LIBRARIAN"
	RoleStaff     Role = "STAFF"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLibrarian, RoleStaff:
		return true
	}
	return false
}

// User is an operator of the system (not a library member).
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Salt         string    `db:"salt"`
	Role         Role      `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   int64
	Username string
	Role     Role
}

// HasRole reports whether the principal holds any of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// UserInput carries the writable fields of a user. Password may be empty on
// update, meaning "keep the current password".
type UserInput struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// Token is a signed access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}
