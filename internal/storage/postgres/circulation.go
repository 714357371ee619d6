// internal/storage/postgres/circulation.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"libranexus/internal/circulation"
	"libranexus/internal/eventlog"
)

const transactionColumns = `id, book_id, member_id, borrow_date, due_date, return_date, status`

type circulationRepo struct {
	tx     *sqlx.Tx
	events *eventlog.Log
}

// LockBook takes the book row lock that serialises borrows of one book.
func (r *circulationRepo) LockBook(ctx context.Context, bookID int64) (*circulation.BookRef, error) {
	var b circulation.BookRef
	ok, err := getOne(ctx, r.tx, &b, `SELECT id, title FROM books WHERE id = $1 FOR UPDATE`, bookID)
	if err != nil || !ok {
		return nil, err
	}
	return &b, nil
}

func (r *circulationRepo) GetBook(ctx context.Context, bookID int64) (*circulation.BookRef, error) {
	var b circulation.BookRef
	ok, err := getOne(ctx, r.tx, &b, `SELECT id, title FROM books WHERE id = $1`, bookID)
	if err != nil || !ok {
		return nil, err
	}
	return &b, nil
}

func (r *circulationRepo) GetMember(ctx context.Context, memberID int64) (*circulation.MemberRef, error) {
	var m circulation.MemberRef
	ok, err := getOne(ctx, r.tx, &m, `SELECT id, name FROM members WHERE id = $1`, memberID)
	if err != nil || !ok {
		return nil, err
	}
	return &m, nil
}

func (r *circulationRepo) OpenTransactionsForBook(ctx context.Context, bookID int64) ([]circulation.Transaction, error) {
	var out []circulation.Transaction
	err := r.tx.SelectContext(ctx, &out, `
		SELECT `+transactionColumns+`
		FROM borrowing_transactions
		WHERE book_id = $1 AND return_date IS NULL
		ORDER BY id
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("select open transactions: %w", err)
	}
	return out, nil
}

func (r *circulationRepo) Insert(ctx context.Context, t *circulation.Transaction) error {
	return r.tx.QueryRowxContext(ctx, `
		INSERT INTO borrowing_transactions (book_id, member_id, borrow_date, due_date, return_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, t.BookID, t.MemberID, t.BorrowDate, t.DueDate, t.ReturnDate, t.Status).Scan(&t.ID)
}

func (r *circulationRepo) Get(ctx context.Context, id int64) (*circulation.Transaction, error) {
	return r.get(ctx, `SELECT `+transactionColumns+` FROM borrowing_transactions WHERE id = $1`, id)
}

func (r *circulationRepo) LockTransaction(ctx context.Context, id int64) (*circulation.Transaction, error) {
	return r.get(ctx, `SELECT `+transactionColumns+` FROM borrowing_transactions WHERE id = $1 FOR UPDATE`, id)
}

func (r *circulationRepo) get(ctx context.Context, query string, id int64) (*circulation.Transaction, error) {
	var t circulation.Transaction
	ok, err := getOne(ctx, r.tx, &t, query, id)
	if err != nil {
		return nil, fmt.Errorf("select transaction: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *circulationRepo) Update(ctx context.Context, t *circulation.Transaction) error {
	_, err := r.tx.ExecContext(ctx, `
		UPDATE borrowing_transactions
		SET return_date = $2, status = $3
		WHERE id = $1
	`, t.ID, t.ReturnDate, t.Status)
	return err
}

func (r *circulationRepo) ListByMember(ctx context.Context, memberID int64) ([]circulation.Transaction, error) {
	var out []circulation.Transaction
	err := r.tx.SelectContext(ctx, &out, `
		SELECT `+transactionColumns+`
		FROM borrowing_transactions
		WHERE member_id = $1
		ORDER BY id
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("select member transactions: %w", err)
	}
	return out, nil
}

func (r *circulationRepo) AppendEvent(ctx context.Context, expectedVersion int, ev eventlog.Event) error {
	return r.events.Append(ctx, r.tx, ev.AggregateID, ev.AggregateType, expectedVersion, ev)
}

func (r *circulationRepo) LoadEvents(ctx context.Context, aggregateID int64) ([]eventlog.Event, error) {
	return r.events.Load(ctx, r.tx, aggregateID, circulation.AggregateType)
}
