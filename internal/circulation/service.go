// internal/circulation/service.go
package circulation

import (
	"context"

	"libranexus/internal/eventlog"
)

// Service defines the interface for the circulation service.
type Service interface {
	Borrow(ctx context.Context, memberID, bookID int64) (*BorrowingResult, error)
	Return(ctx context.Context, transactionID int64) (*ReturnResult, error)
	IsCurrentlyBorrowed(ctx context.Context, bookID int64) (bool, error)
	FindOpenTransactionsForBook(ctx context.Context, bookID int64) ([]Transaction, error)
	Get(ctx context.Context, transactionID int64) (*Transaction, error)
	ListByMember(ctx context.Context, memberID int64) ([]Transaction, error)
	History(ctx context.Context, transactionID int64) ([]eventlog.Event, error)
}

// Repository is the persistence port used inside one storage transaction.
// Lookups return (nil, nil) when the row does not exist.
type Repository interface {
	// LockBook loads the book and holds a write lock on it until the
	// transaction ends, serialising loans of the same book.
	LockBook(ctx context.Context, bookID int64) (*BookRef, error)
	GetBook(ctx context.Context, bookID int64) (*BookRef, error)
	GetMember(ctx context.Context, memberID int64) (*MemberRef, error)
	OpenTransactionsForBook(ctx context.Context, bookID int64) ([]Transaction, error)
	Insert(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, id int64) (*Transaction, error)
	// LockTransaction loads the transaction and holds a write lock on it.
	LockTransaction(ctx context.Context, id int64) (*Transaction, error)
	Update(ctx context.Context, t *Transaction) error
	ListByMember(ctx context.Context, memberID int64) ([]Transaction, error)
	AppendEvent(ctx context.Context, expectedVersion int, ev eventlog.Event) error
	LoadEvents(ctx context.Context, aggregateID int64) ([]eventlog.Event, error)
}

// Store runs fn inside a storage transaction. InTx commits when fn returns
// nil and rolls back otherwise; ReadOnly never writes.
type Store interface {
	InTx(ctx context.Context, fn func(Repository) error) error
	ReadOnly(ctx context.Context, fn func(Repository) error) error
}
