// internal/auth/service.go
package auth

import (
	"context"
)

// Service defines the interface for system users and authentication.
type Service interface {
	// Register creates a user and returns a token for it. Requires ADMIN.
	Register(ctx context.Context, in UserInput) (*Token, error)
	Login(ctx context.Context, username, password string) (*Token, error)
	// Authenticate verifies an access token and returns its principal.
	Authenticate(ctx context.Context, accessToken string) (*Principal, error)

	CreateUser(ctx context.Context, in UserInput) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	UpdateUser(ctx context.Context, id int64, in UserInput) (*User, error)
	DeleteUser(ctx context.Context, id int64) error

	// EnsureAdmin creates an ADMIN user when no user exists yet and reports
	// whether it did.
	EnsureAdmin(ctx context.Context, username, email, password string) (bool, error)
}

// Repository is the user persistence port. Lookups return (nil, nil) when
// the row does not exist.
type Repository interface {
	Get(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
}

type Store interface {
	InTx(ctx context.Context, fn func(Repository) error) error
	ReadOnly(ctx context.Context, fn func(Repository) error) error
}
