package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libranexus/internal/apperror"
	"libranexus/internal/catalog"
	"libranexus/internal/category"
	"libranexus/internal/circulation"
	"libranexus/internal/eventlog"
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		raw.Close()
	})
	return New(sqlx.NewDb(raw, "postgres")), mock
}

func TestInTxCommitsOnSuccess(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, title FROM books WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow(7, "Dune"))
	mock.ExpectCommit()

	var got *circulation.BookRef
	err := db.Circulation().InTx(ctx, func(repo circulation.Repository) error {
		var err error
		got, err = repo.LockBook(ctx, 7)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Dune", got.Title)
}

func TestInTxMissingRowIsNil(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, name FROM members WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectCommit()

	err := db.Circulation().InTx(ctx, func(repo circulation.Repository) error {
		m, err := repo.GetMember(ctx, 99)
		assert.Nil(t, m)
		return err
	})
	require.NoError(t, err)
}

func TestInTxRollsBackOnCallbackError(t *testing.T) {
	db, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.Catalog().InTx(context.Background(), func(catalog.Repository) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestOpenLoanIndexViolationIsConflict(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO borrowing_transactions`).
		WillReturnError(&pq.Error{Code: uniqueViolation, Table: "borrowing_transactions", Constraint: openLoanIndex})
	mock.ExpectRollback()

	today := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	err := db.Circulation().InTx(ctx, func(repo circulation.Repository) error {
		return repo.Insert(ctx, &circulation.Transaction{
			BookID: 1, MemberID: 2, BorrowDate: today, DueDate: today.AddDate(0, 0, 14), Status: circulation.StatusBorrowed,
		})
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperror.Kind
	}{
		{"unique", &pq.Error{Code: uniqueViolation, Table: "books", Constraint: "books_isbn_key"}, apperror.KindAlreadyExists},
		{"foreign key", &pq.Error{Code: foreignKeyViolation, Table: "borrowing_transactions"}, apperror.KindConflict},
		{"serialization", &pq.Error{Code: serializationFailure}, apperror.KindConflict},
		{"other pq", &pq.Error{Code: "42P01"}, apperror.KindInternal},
		{"plain", errors.New("x"), apperror.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperror.KindOf(mapError(tt.err)))
		})
	}
}

func TestEntityOf(t *testing.T) {
	assert.Equal(t, "book", entityOf("books"))
	assert.Equal(t, "category", entityOf("categories"))
	assert.Equal(t, "borrowing transaction", entityOf("lending_events"))
	assert.Equal(t, "record", entityOf(""))
}

func TestGetBookLoadsLinksInOrder(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM books WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "isbn", "title", "publication_year", "edition", "summary", "language", "cover_url", "publisher_id"}).
			AddRow(3, "9780441172719", "Dune", 1965, "1st", "", "en", "", 1))
	mock.ExpectQuery(`SELECT author_id FROM book_author`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}).AddRow(5).AddRow(4))
	mock.ExpectQuery(`FROM book_category bc`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(9, "Science Fiction").AddRow(2, "Novels"))
	mock.ExpectCommit()

	var b *catalog.Book
	err := db.Catalog().ReadOnly(ctx, func(repo catalog.Repository) error {
		var err error
		b, err = repo.GetBook(ctx, 3)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, []int64{5, 4}, b.AuthorIDs)
	assert.Equal(t, []int64{9, 2}, b.CategoryIDs)
	assert.Equal(t, []string{"Science Fiction", "Novels"}, b.CategoryNames)
}

func TestAppendEventVersionConflict(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version\), 0\)`).
		WithArgs(int64(11), circulation.AggregateType).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(2))
	mock.ExpectRollback()

	ev, err := eventlog.New(circulation.AggregateType, circulation.EventBookReturned, 11, map[string]any{}, nil)
	require.NoError(t, err)

	err = db.Circulation().InTx(ctx, func(repo circulation.Repository) error {
		return repo.AppendEvent(ctx, 1, ev)
	})
	assert.ErrorIs(t, err, eventlog.ErrConcurrencyConflict)
}

func TestLockHierarchyTakesAdvisoryLock(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(int64(hierarchyLockKey)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := db.Categories().InTx(ctx, func(repo category.Repository) error {
		return repo.LockHierarchy(ctx)
	})
	require.NoError(t, err)
}

func TestIntegrityCounts(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(`HAVING COUNT\(\*\) > 1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`WITH RECURSIVE ancestry`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`due_date <> borrow_date \+ \$1::int`).
		WithArgs(int64(14)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`due_date < \$1::date`).
		WithArgs("2024-05-01").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := db.BooksWithMultipleOpenLoans(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = db.CategoryCycles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.MisdatedLoans(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.OverdueOpenLoans(ctx, time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
