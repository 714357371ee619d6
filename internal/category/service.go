// internal/category/service.go
package category

import (
	"context"
)

// Service defines the interface for the category service.
type Service interface {
	Create(ctx context.Context, name string, parentID *int64) (*Category, error)
	// Update renames category id and sets its parent; a nil parentID makes it a root.
	Update(ctx context.Context, id int64, name string, parentID *int64) (*Category, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*Category, error)
	List(ctx context.Context) ([]Category, error)
}

// Repository is the category persistence port. Lookups return (nil, nil)
// when the row does not exist.
type Repository interface {
	// LockHierarchy serialises writers of the tree until the transaction ends.
	LockHierarchy(ctx context.Context) error
	Get(ctx context.Context, id int64) (*Category, error)
	GetByName(ctx context.Context, name string) (*Category, error)
	List(ctx context.Context) ([]Category, error)
	Insert(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id int64) error
	HasChildren(ctx context.Context, id int64) (bool, error)
	HasBooks(ctx context.Context, id int64) (bool, error)
}

type Store interface {
	InTx(ctx context.Context, fn func(Repository) error) error
	ReadOnly(ctx context.Context, fn func(Repository) error) error
}
