// internal/storage/postgres/catalog.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"libranexus/internal/catalog"
)

const bookColumns = `id, isbn, title, publication_year, edition, summary, language, cover_url, publisher_id`

type catalogRepo struct {
	tx *sqlx.Tx
}

func (r *catalogRepo) GetBook(ctx context.Context, id int64) (*catalog.Book, error) {
	return r.book(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
}

func (r *catalogRepo) LockBook(ctx context.Context, id int64) (*catalog.Book, error) {
	return r.book(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, id)
}

func (r *catalogRepo) GetBookByISBN(ctx context.Context, isbn string) (*catalog.Book, error) {
	return r.book(ctx, `SELECT `+bookColumns+` FROM books WHERE isbn = $1`, isbn)
}

// book loads one book row and its author and category links.
func (r *catalogRepo) book(ctx context.Context, query string, arg any) (*catalog.Book, error) {
	var b catalog.Book
	ok, err := getOne(ctx, r.tx, &b, query, arg)
	if err != nil {
		return nil, fmt.Errorf("select book: %w", err)
	}
	if !ok {
		return nil, nil
	}

	b.AuthorIDs = []int64{}
	if err := r.tx.SelectContext(ctx, &b.AuthorIDs, `
		SELECT author_id FROM book_author WHERE book_id = $1 ORDER BY position
	`, b.ID); err != nil {
		return nil, fmt.Errorf("select book authors: %w", err)
	}

	var links []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	if err := r.tx.SelectContext(ctx, &links, `
		SELECT c.id, c.name
		FROM book_category bc
		JOIN categories c ON c.id = bc.category_id
		WHERE bc.book_id = $1
		ORDER BY bc.position
	`, b.ID); err != nil {
		return nil, fmt.Errorf("select book categories: %w", err)
	}
	b.CategoryIDs = make([]int64, 0, len(links))
	b.CategoryNames = make([]string, 0, len(links))
	for _, l := range links {
		b.CategoryIDs = append(b.CategoryIDs, l.ID)
		b.CategoryNames = append(b.CategoryNames, l.Name)
	}
	return &b, nil
}

func (r *catalogRepo) ListBooks(ctx context.Context) ([]catalog.BookOverview, error) {
	out := []catalog.BookOverview{}
	if err := r.tx.SelectContext(ctx, &out, `SELECT id, isbn, title FROM books ORDER BY id`); err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}
	return out, nil
}

func (r *catalogRepo) InsertBook(ctx context.Context, b *catalog.Book) error {
	rows, err := sqlx.NamedQueryContext(ctx, r.tx, `
		INSERT INTO books (isbn, title, publication_year, edition, summary, language, cover_url, publisher_id)
		VALUES (:isbn, :title, :publication_year, :edition, :summary, :language, :cover_url, :publisher_id)
		RETURNING id
	`, b)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&b.ID); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return r.writeLinks(ctx, b)
}

func (r *catalogRepo) UpdateBook(ctx context.Context, b *catalog.Book) error {
	if _, err := r.tx.NamedExecContext(ctx, `
		UPDATE books
		SET isbn = :isbn, title = :title, publication_year = :publication_year, edition = :edition,
		    summary = :summary, language = :language, cover_url = :cover_url, publisher_id = :publisher_id
		WHERE id = :id
	`, b); err != nil {
		return err
	}
	return r.writeLinks(ctx, b)
}

// writeLinks replaces the book's author and category links, keeping order.
func (r *catalogRepo) writeLinks(ctx context.Context, b *catalog.Book) error {
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM book_author WHERE book_id = $1`, b.ID); err != nil {
		return err
	}
	if _, err := r.tx.ExecContext(ctx, `
		INSERT INTO book_author (book_id, author_id, position)
		SELECT $1, a.id, a.ord FROM unnest($2::bigint[]) WITH ORDINALITY AS a(id, ord)
	`, b.ID, pq.Array(b.AuthorIDs)); err != nil {
		return err
	}
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM book_category WHERE book_id = $1`, b.ID); err != nil {
		return err
	}
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO book_category (book_id, category_id, position)
		SELECT $1, c.id, c.ord FROM unnest($2::bigint[]) WITH ORDINALITY AS c(id, ord)
	`, b.ID, pq.Array(b.CategoryIDs))
	return err
}

// DeleteBook removes the book; links and closed loans cascade.
func (r *catalogRepo) DeleteBook(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	return err
}

func (r *catalogRepo) HasOpenLoans(ctx context.Context, bookID int64) (bool, error) {
	return exists(ctx, r.tx, `SELECT 1 FROM borrowing_transactions WHERE book_id = $1 AND return_date IS NULL`, bookID)
}

func (r *catalogRepo) CountCategories(ctx context.Context, ids []int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM categories WHERE id = ANY($1)`, ids)
}

func (r *catalogRepo) CountAuthors(ctx context.Context, ids []int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM authors WHERE id = ANY($1)`, ids)
}

func (r *catalogRepo) count(ctx context.Context, query string, ids []int64) (int, error) {
	var n int
	if err := r.tx.GetContext(ctx, &n, query, pq.Array(ids)); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *catalogRepo) GetAuthor(ctx context.Context, id int64) (*catalog.Author, error) {
	var a catalog.Author
	ok, err := getOne(ctx, r.tx, &a, `SELECT id, name, biography FROM authors WHERE id = $1`, id)
	if err != nil || !ok {
		return nil, err
	}
	return &a, nil
}

func (r *catalogRepo) GetAuthorByName(ctx context.Context, name string) (*catalog.Author, error) {
	var a catalog.Author
	ok, err := getOne(ctx, r.tx, &a, `SELECT id, name, biography FROM authors WHERE name = $1`, name)
	if err != nil || !ok {
		return nil, err
	}
	return &a, nil
}

func (r *catalogRepo) ListAuthors(ctx context.Context) ([]catalog.Author, error) {
	out := []catalog.Author{}
	if err := r.tx.SelectContext(ctx, &out, `SELECT id, name, biography FROM authors ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *catalogRepo) InsertAuthor(ctx context.Context, a *catalog.Author) error {
	return r.tx.QueryRowxContext(ctx,
		`INSERT INTO authors (name, biography) VALUES ($1, $2) RETURNING id`,
		a.Name, a.Biography).Scan(&a.ID)
}

func (r *catalogRepo) UpdateAuthor(ctx context.Context, a *catalog.Author) error {
	_, err := r.tx.ExecContext(ctx, `UPDATE authors SET name = $2, biography = $3 WHERE id = $1`, a.ID, a.Name, a.Biography)
	return err
}

func (r *catalogRepo) DeleteAuthor(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM authors WHERE id = $1`, id)
	return err
}

func (r *catalogRepo) AuthorHasBooks(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.tx, `SELECT 1 FROM book_author WHERE author_id = $1`, id)
}

func (r *catalogRepo) GetPublisher(ctx context.Context, id int64) (*catalog.Publisher, error) {
	var p catalog.Publisher
	ok, err := getOne(ctx, r.tx, &p, `SELECT id, name, address FROM publishers WHERE id = $1`, id)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (r *catalogRepo) GetPublisherByName(ctx context.Context, name string) (*catalog.Publisher, error) {
	var p catalog.Publisher
	ok, err := getOne(ctx, r.tx, &p, `SELECT id, name, address FROM publishers WHERE name = $1`, name)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (r *catalogRepo) ListPublishers(ctx context.Context) ([]catalog.Publisher, error) {
	out := []catalog.Publisher{}
	if err := r.tx.SelectContext(ctx, &out, `SELECT id, name, address FROM publishers ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *catalogRepo) InsertPublisher(ctx context.Context, p *catalog.Publisher) error {
	return r.tx.QueryRowxContext(ctx,
		`INSERT INTO publishers (name, address) VALUES ($1, $2) RETURNING id`,
		p.Name, p.Address).Scan(&p.ID)
}

func (r *catalogRepo) UpdatePublisher(ctx context.Context, p *catalog.Publisher) error {
	_, err := r.tx.ExecContext(ctx, `UPDATE publishers SET name = $2, address = $3 WHERE id = $1`, p.ID, p.Name, p.Address)
	return err
}

func (r *catalogRepo) DeletePublisher(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM publishers WHERE id = $1`, id)
	return err
}

func (r *catalogRepo) PublisherHasBooks(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.tx, `SELECT 1 FROM books WHERE publisher_id = $1`, id)
}
