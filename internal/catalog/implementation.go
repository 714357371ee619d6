// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libranexus/internal/apperror"
)

// service implements the Service interface.
type service struct {
	store  Store
	log    zerolog.Logger
	tracer trace.Tracer
}

// NewService creates a new catalog service instance.
func NewService(store Store, log zerolog.Logger) Service {
	return &service{
		store:  store,
		log:    log.With().Str("component", "catalog").Logger(),
		tracer: otel.Tracer("libranexus/catalog"),
	}
}

// CreateBook adds a book after checking ISBN uniqueness and that every
// referenced category, author and publisher exists.
func (s *service) CreateBook(ctx context.Context, in BookInput) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.create_book")
	defer span.End()

	if in.ISBN == nil || in.Title == nil || in.PublisherID == nil {
		return nil, apperror.InvalidInput("isbn, title and publisherId are required")
	}
	span.SetAttributes(attribute.String("book.isbn", *in.ISBN))

	b := &Book{}
	in.apply(b)
	err := s.store.InTx(ctx, func(repo Repository) error {
		existing, err := repo.GetBookByISBN(ctx, b.ISBN)
		if err != nil {
			return fmt.Errorf("find book by isbn: %w", err)
		}
		if existing != nil {
			return apperror.AlreadyExists("book", "isbn", b.ISBN)
		}
		if err := s.resolveLinks(ctx, repo, b, in); err != nil {
			return err
		}
		return repo.InsertBook(ctx, b)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.log.Info().Int64("book_id", b.ID).Str("title", b.Title).Msg("book saved")
	return s.GetBook(ctx, b.ID)
}

// resolveLinks validates and sets the publisher, author and category links
// present in in.
func (s *service) resolveLinks(ctx context.Context, repo Repository, b *Book, in BookInput) error {
	if in.CategoryIDs != nil {
		ids := uniqueIDs(in.CategoryIDs)
		n, err := repo.CountCategories(ctx, ids)
		if err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if n != len(ids) {
			return &apperror.Error{Kind: apperror.KindNotFound, Entity: "category", Message: "one or more categories not found"}
		}
		b.CategoryIDs = ids
	}

	if in.PublisherID != nil {
		p, err := repo.GetPublisher(ctx, *in.PublisherID)
		if err != nil {
			return fmt.Errorf("get publisher: %w", err)
		}
		if p == nil {
			return apperror.NotFound("publisher", *in.PublisherID)
		}
		b.PublisherID = p.ID
	}

	if in.AuthorIDs != nil {
		ids := uniqueIDs(in.AuthorIDs)
		n, err := repo.CountAuthors(ctx, ids)
		if err != nil {
			return fmt.Errorf("count authors: %w", err)
		}
		if n != len(ids) {
			return &apperror.Error{Kind: apperror.KindNotFound, Entity: "author", Message: "one or more authors not found"}
		}
		b.AuthorIDs = ids
	}
	return nil
}

func (s *service) GetBook(ctx context.Context, id int64) (*Book, error) {
	var b *Book
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		b, err = repo.GetBook(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if b == nil {
		return nil, apperror.NotFound("book", id)
	}
	return b, nil
}

func (s *service) GetBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	var b *Book
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		b, err = repo.GetBookByISBN(ctx, isbn)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get book by isbn: %w", err)
	}
	if b == nil {
		return nil, &apperror.Error{
			Kind:    apperror.KindNotFound,
			Entity:  "book",
			ID:      isbn,
			Message: "book not found with isbn: " + isbn,
		}
	}
	return b, nil
}

func (s *service) ListBooks(ctx context.Context) ([]BookOverview, error) {
	var list []BookOverview
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		var err error
		list, err = repo.ListBooks(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return list, nil
}

// UpdateBook applies the non-nil fields of in. Nil link slices keep the
// current links.
func (s *service) UpdateBook(ctx context.Context, id int64, in BookInput) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.update_book", trace.WithAttributes(attribute.Int64("book.id", id)))
	defer span.End()

	err := s.store.InTx(ctx, func(repo Repository) error {
		b, err := repo.LockBook(ctx, id)
		if err != nil {
			return fmt.Errorf("lock book: %w", err)
		}
		if b == nil {
			return apperror.NotFound("book", id)
		}

		if in.ISBN != nil && *in.ISBN != b.ISBN {
			other, err := repo.GetBookByISBN(ctx, *in.ISBN)
			if err != nil {
				return fmt.Errorf("find book by isbn: %w", err)
			}
			if other != nil {
				s.log.Warn().Str("isbn", *in.ISBN).Msg("isbn already used")
				return apperror.AlreadyExists("book", "isbn", *in.ISBN)
			}
		}

		in.apply(b)
		if err := s.resolveLinks(ctx, repo, b, in); err != nil {
			return err
		}
		return repo.UpdateBook(ctx, b)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.log.Info().Int64("book_id", id).Msg("book updated")
	return s.GetBook(ctx, id)
}

// DeleteBook removes a book unless it is currently borrowed. The book row is
// locked first so no loan can open between the check and the delete.
func (s *service) DeleteBook(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "catalog.delete_book", trace.WithAttributes(attribute.Int64("book.id", id)))
	defer span.End()

	err := s.store.InTx(ctx, func(repo Repository) error {
		b, err := repo.LockBook(ctx, id)
		if err != nil {
			return fmt.Errorf("lock book: %w", err)
		}
		if b == nil {
			return apperror.NotFound("book", id)
		}

		borrowed, err := repo.HasOpenLoans(ctx, id)
		if err != nil {
			return fmt.Errorf("check open loans: %w", err)
		}
		if borrowed {
			msg := fmt.Sprintf("can't delete book %q because it is currently borrowed", b.Title)
			s.log.Warn().Int64("book_id", id).Msg(msg)
			return apperror.Conflict("book", id, msg)
		}
		return repo.DeleteBook(ctx, id)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.log.Info().Int64("book_id", id).Msg("book deleted")
	return nil
}

// IsBookAvailable reports whether the book exists and has no open loan.
func (s *service) IsBookAvailable(ctx context.Context, id int64) (bool, error) {
	var available bool
	err := s.store.ReadOnly(ctx, func(repo Repository) error {
		b, err := repo.GetBook(ctx, id)
		if err != nil {
			return fmt.Errorf("get book: %w", err)
		}
		if b == nil {
			return apperror.NotFound("book", id)
		}
		borrowed, err := repo.HasOpenLoans(ctx, id)
		if err != nil {
			return fmt.Errorf("check open loans: %w", err)
		}
		available = !borrowed
		return nil
	})
	if err != nil {
		return false, err
	}

	s.log.Debug().Int64("book_id", id).Bool("available", available).Msg("availability checked")
	return available, nil
}
