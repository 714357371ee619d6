// internal/storage/memory/catalog.go
package memory

import (
	"context"
	"slices"

	"libranexus/internal/apperror"
	"libranexus/internal/catalog"
)

type catalogRepo struct {
	st       *state
	readOnly bool
}

func (r *catalogRepo) bookView(b catalog.Book) *catalog.Book {
	b = cloneBook(b)
	b.CategoryNames = make([]string, 0, len(b.CategoryIDs))
	for _, id := range b.CategoryIDs {
		if c, ok := r.st.categories[id]; ok {
			b.CategoryNames = append(b.CategoryNames, c.Name)
		}
	}
	return &b
}

func (r *catalogRepo) GetBook(_ context.Context, id int64) (*catalog.Book, error) {
	b, ok := r.st.books[id]
	if !ok {
		return nil, nil
	}
	return r.bookView(b), nil
}

func (r *catalogRepo) LockBook(ctx context.Context, id int64) (*catalog.Book, error) {
	return r.GetBook(ctx, id)
}

func (r *catalogRepo) GetBookByISBN(_ context.Context, isbn string) (*catalog.Book, error) {
	for _, b := range r.st.books {
		if b.ISBN == isbn {
			return r.bookView(b), nil
		}
	}
	return nil, nil
}

func (r *catalogRepo) ListBooks(_ context.Context) ([]catalog.BookOverview, error) {
	out := make([]catalog.BookOverview, 0, len(r.st.books))
	for _, b := range sortedValues(r.st.books) {
		out = append(out, catalog.BookOverview{ID: b.ID, ISBN: b.ISBN, Title: b.Title})
	}
	return out, nil
}

func (r *catalogRepo) isbnTaken(isbn string, except int64) bool {
	for _, b := range r.st.books {
		if b.ISBN == isbn && b.ID != except {
			return true
		}
	}
	return false
}

func (r *catalogRepo) InsertBook(_ context.Context, b *catalog.Book) error {
	if r.readOnly {
		return errReadOnly
	}
	if r.isbnTaken(b.ISBN, 0) {
		return apperror.AlreadyExists("book", "isbn", b.ISBN)
	}
	b.ID = r.st.nextID()
	stored := cloneBook(*b)
	stored.CategoryNames = nil
	r.st.books[b.ID] = stored
	return nil
}

func (r *catalogRepo) UpdateBook(_ context.Context, b *catalog.Book) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.books[b.ID]; !ok {
		return apperror.NotFound("book", b.ID)
	}
	if r.isbnTaken(b.ISBN, b.ID) {
		return apperror.AlreadyExists("book", "isbn", b.ISBN)
	}
	stored := cloneBook(*b)
	stored.CategoryNames = nil
	r.st.books[b.ID] = stored
	return nil
}

// DeleteBook removes the book and its closed loan history.
func (r *catalogRepo) DeleteBook(_ context.Context, id int64) error {
	if r.readOnly {
		return errReadOnly
	}
	if hasOpenLoan(r.st, id) {
		return apperror.Conflict("book", id, "book is currently borrowed")
	}
	delete(r.st.books, id)
	for tid, t := range r.st.loans {
		if t.BookID == id {
			delete(r.st.loans, tid)
		}
	}
	return nil
}

func (r *catalogRepo) HasOpenLoans(_ context.Context, bookID int64) (bool, error) {
	return hasOpenLoan(r.st, bookID), nil
}

func (r *catalogRepo) CountCategories(_ context.Context, ids []int64) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := r.st.categories[id]; ok {
			n++
		}
	}
	return n, nil
}

func (r *catalogRepo) CountAuthors(_ context.Context, ids []int64) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := r.st.authors[id]; ok {
			n++
		}
	}
	return n, nil
}

func (r *catalogRepo) GetAuthor(_ context.Context, id int64) (*catalog.Author, error) {
	a, ok := r.st.authors[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *catalogRepo) GetAuthorByName(_ context.Context, name string) (*catalog.Author, error) {
	for _, a := range r.st.authors {
		if a.Name == name {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *catalogRepo) ListAuthors(_ context.Context) ([]catalog.Author, error) {
	return sortedValues(r.st.authors), nil
}

func (r *catalogRepo) InsertAuthor(_ context.Context, a *catalog.Author) error {
	if r.readOnly {
		return errReadOnly
	}
	a.ID = r.st.nextID()
	r.st.authors[a.ID] = *a
	return nil
}

func (r *catalogRepo) UpdateAuthor(_ context.Context, a *catalog.Author) error {
	if r.readOnly {
		return errReadOnly
	}
	r.st.authors[a.ID] = *a
	return nil
}

func (r *catalogRepo) DeleteAuthor(_ context.Context, id int64) error {
	if r.readOnly {
		return errReadOnly
	}
	delete(r.st.authors, id)
	return nil
}

func (r *catalogRepo) AuthorHasBooks(_ context.Context, id int64) (bool, error) {
	for _, b := range r.st.books {
		if slices.Contains(b.AuthorIDs, id) {
			return true, nil
		}
	}
	return false, nil
}

func (r *catalogRepo) GetPublisher(_ context.Context, id int64) (*catalog.Publisher, error) {
	p, ok := r.st.publishers[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *catalogRepo) GetPublisherByName(_ context.Context, name string) (*catalog.Publisher, error) {
	for _, p := range r.st.publishers {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *catalogRepo) ListPublishers(_ context.Context) ([]catalog.Publisher, error) {
	return sortedValues(r.st.publishers), nil
}

func (r *catalogRepo) InsertPublisher(_ context.Context, p *catalog.Publisher) error {
	if r.readOnly {
		return errReadOnly
	}
	p.ID = r.st.nextID()
	r.st.publishers[p.ID] = *p
	return nil
}

func (r *catalogRepo) UpdatePublisher(_ context.Context, p *catalog.Publisher) error {
	if r.readOnly {
		return errReadOnly
	}
	r.st.publishers[p.ID] = *p
	return nil
}

func (r *catalogRepo) DeletePublisher(_ context.Context, id int64) error {
	if r.readOnly {
		return errReadOnly
	}
	delete(r.st.publishers, id)
	return nil
}

func (r *catalogRepo) PublisherHasBooks(_ context.Context, id int64) (bool, error) {
	for _, b := range r.st.books {
		if b.PublisherID == id {
			return true, nil
		}
	}
	return false, nil
}
