// internal/membership/service.go
package membership

import (
	"context"
)

// Service defines the interface for the membership service.
type Service interface {
	CreateMember(ctx context.Context, in MemberInput) (*Member, error)
	GetMember(ctx context.Context, id int64) (*Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
	UpdateMember(ctx context.Context, id int64, in MemberInput) (*Member, error)
	// DeleteMember fails with a Conflict error when the member has any
	// borrowing history.
	DeleteMember(ctx context.Context, id int64) error
}

// Repository is the member persistence port. Lookups return (nil, nil)
// when the row does not exist.
type Repository interface {
	Get(ctx context.Context, id int64) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
	List(ctx context.Context) ([]Member, error)
	Insert(ctx context.Context, m *Member) error
	Update(ctx context.Context, m *Member) error
	Delete(ctx context.Context, id int64) error
	HasTransactions(ctx context.Context, id int64) (bool, error)
}

type Store interface {
	InTx(ctx context.Context, fn func(Repository) error) error
	ReadOnly(ctx context.Context, fn func(Repository) error) error
}
