// internal/storage/storage.go
package storage

import (
	"context"

	"libranexus/internal/auth"
	"libranexus/internal/catalog"
	"libranexus/internal/category"
	"libranexus/internal/circulation"
	"libranexus/internal/integrity"
	"libranexus/internal/membership"
)

// Backend is the storage implementation the service runs on. Both the
// postgres and memory packages provide one.
type Backend interface {
	Circulation() circulation.Store
	Catalog() catalog.Store
	Categories() category.Store
	Membership() membership.Store
	Users() auth.Store
	integrity.Measurer

	Ping(ctx context.Context) error
	Close() error
}
