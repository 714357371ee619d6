// internal/catalog/service.go
package catalog

import (
	"context"
)

// Service defines the interface for the catalog service.
type Service interface {
	CreateBook(ctx context.Context, in BookInput) (*Book, error)
	GetBook(ctx context.Context, id int64) (*Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (*Book, error)
	ListBooks(ctx context.Context) ([]BookOverview, error)
	UpdateBook(ctx context.Context, id int64, in BookInput) (*Book, error)
	// DeleteBook fails with a Conflict error while the book is on loan.
	DeleteBook(ctx context.Context, id int64) error
	IsBookAvailable(ctx context.Context, id int64) (bool, error)

	CreateAuthor(ctx context.Context, name, biography string) (*Author, error)
	GetAuthor(ctx context.Context, id int64) (*Author, error)
	ListAuthors(ctx context.Context) ([]Author, error)
	UpdateAuthor(ctx context.Context, id int64, name, biography string) (*Author, error)
	DeleteAuthor(ctx context.Context, id int64) error

	CreatePublisher(ctx context.Context, name, address string) (*Publisher, error)
	GetPublisher(ctx context.Context, id int64) (*Publisher, error)
	ListPublishers(ctx context.Context) ([]Publisher, error)
	UpdatePublisher(ctx context.Context, id int64, name, address string) (*Publisher, error)
	DeletePublisher(ctx context.Context, id int64) error
}

// Repository is the catalog persistence port. Lookups return (nil, nil)
// when the row does not exist.
type Repository interface {
	GetBook(ctx context.Context, id int64) (*Book, error)
	// LockBook loads the book and holds a write lock on it, excluding
	// concurrent loans until the transaction ends.
	LockBook(ctx context.Context, id int64) (*Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (*Book, error)
	ListBooks(ctx context.Context) ([]BookOverview, error)
	InsertBook(ctx context.Context, b *Book) error
	UpdateBook(ctx context.Context, b *Book) error
	DeleteBook(ctx context.Context, id int64) error
	// HasOpenLoans reports whether a borrowing transaction without a return
	// date references the book.
	HasOpenLoans(ctx context.Context, bookID int64) (bool, error)
	CountCategories(ctx context.Context, ids []int64) (int, error)
	CountAuthors(ctx context.Context, ids []int64) (int, error)

	GetAuthor(ctx context.Context, id int64) (*Author, error)
	GetAuthorByName(ctx context.Context, name string) (*Author, error)
	ListAuthors(ctx context.Context) ([]Author, error)
	InsertAuthor(ctx context.Context, a *Author) error
	UpdateAuthor(ctx context.Context, a *Author) error
	DeleteAuthor(ctx context.Context, id int64) error
	AuthorHasBooks(ctx context.Context, id int64) (bool, error)

	GetPublisher(ctx context.Context, id int64) (*Publisher, error)
	GetPublisherByName(ctx context.Context, name string) (*Publisher, error)
	ListPublishers(ctx context.Context) ([]Publisher, error)
	InsertPublisher(ctx context.Context, p *Publisher) error
	UpdatePublisher(ctx context.Context, p *Publisher) error
	DeletePublisher(ctx context.Context, id int64) error
	PublisherHasBooks(ctx context.Context, id int64) (bool, error)
}

type Store interface {
	InTx(ctx context.Context, fn func(Repository) error) error
	ReadOnly(ctx context.Context, fn func(Repository) error) error
}
