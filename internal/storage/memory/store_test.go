package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libranexus/internal/apperror"
	"libranexus/internal/catalog"
	"libranexus/internal/category"
	"libranexus/internal/circulation"
	"libranexus/internal/eventlog"
	"libranexus/internal/membership"
)

func seedBookAndMember(t *testing.T, db *DB) (bookID, memberID int64) {
	t.Helper()
	ctx := context.Background()
	err := db.Catalog().InTx(ctx, func(repo catalog.Repository) error {
		p := &catalog.Publisher{Name: "Ace"}
		if err := repo.InsertPublisher(ctx, p); err != nil {
			return err
		}
		b := &catalog.Book{ISBN: "9780441013593", Title: "Neuromancer", PublisherID: p.ID}
		if err := repo.InsertBook(ctx, b); err != nil {
			return err
		}
		bookID = b.ID
		return nil
	})
	require.NoError(t, err)
	err = db.Membership().InTx(ctx, func(repo membership.Repository) error {
		m := &membership.Member{Name: "Case", Email: "case@example.com"}
		if err := repo.Insert(ctx, m); err != nil {
			return err
		}
		memberID = m.ID
		return nil
	})
	require.NoError(t, err)
	return bookID, memberID
}

func TestFailedTransactionLeavesNoTrace(t *testing.T) {
	db := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Categories().InTx(ctx, func(repo category.Repository) error {
		if err := repo.Insert(ctx, &category.Category{Name: "Science"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = db.Categories().ReadOnly(ctx, func(repo category.Repository) error {
		list, err := repo.List(ctx)
		assert.Empty(t, list)
		return err
	})
	require.NoError(t, err)
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	db := New()
	ctx := context.Background()
	err := db.Categories().ReadOnly(ctx, func(repo category.Repository) error {
		return repo.Insert(ctx, &category.Category{Name: "Science"})
	})
	assert.ErrorIs(t, err, errReadOnly)
}

func TestCanceledContext(t *testing.T) {
	db := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := db.Catalog().ReadOnly(ctx, func(catalog.Repository) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGettersReturnCopies(t *testing.T) {
	db := New()
	ctx := context.Background()
	bookID, _ := seedBookAndMember(t, db)

	err := db.Catalog().ReadOnly(ctx, func(repo catalog.Repository) error {
		b, err := repo.GetBook(ctx, bookID)
		require.NoError(t, err)
		b.Title = "changed"
		b.AuthorIDs = append(b.AuthorIDs, 42)

		again, err := repo.GetBook(ctx, bookID)
		require.NoError(t, err)
		assert.Equal(t, "Neuromancer", again.Title)
		assert.Empty(t, again.AuthorIDs)
		return nil
	})
	require.NoError(t, err)
}

func TestInsertEnforcesOneOpenLoanPerBook(t *testing.T) {
	db := New()
	ctx := context.Background()
	bookID, memberID := seedBookAndMember(t, db)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	open := func() error {
		return db.Circulation().InTx(ctx, func(repo circulation.Repository) error {
			return repo.Insert(ctx, &circulation.Transaction{
				BookID: bookID, MemberID: memberID, BorrowDate: day, DueDate: day.AddDate(0, 0, 14), Status: circulation.StatusBorrowed,
			})
		})
	}
	require.NoError(t, open())
	err := open()
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestAppendEventChecksVersion(t *testing.T) {
	db := New()
	ctx := context.Background()
	db.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	ev, err := eventlog.New(circulation.AggregateType, circulation.EventBookBorrowed, 5, map[string]int{"n": 1}, nil)
	require.NoError(t, err)

	appendAt := func(v int) error {
		return db.Circulation().InTx(ctx, func(repo circulation.Repository) error {
			return repo.AppendEvent(ctx, v, ev)
		})
	}
	require.NoError(t, appendAt(0))
	assert.ErrorIs(t, appendAt(0), eventlog.ErrConcurrencyConflict)
	require.NoError(t, appendAt(1))
	assert.ErrorIs(t, appendAt(-1), eventlog.ErrInvalidVersion)

	err = db.Circulation().ReadOnly(ctx, func(repo circulation.Repository) error {
		events, err := repo.LoadEvents(ctx, 5)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, 1, events[0].Version)
		assert.Equal(t, 2, events[1].Version)
		assert.Equal(t, db.now().UTC(), events[0].CreatedAt)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteBookCascadesClosedLoans(t *testing.T) {
	db := New()
	ctx := context.Background()
	bookID, memberID := seedBookAndMember(t, db)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	err := db.Circulation().InTx(ctx, func(repo circulation.Repository) error {
		return repo.Insert(ctx, &circulation.Transaction{
			BookID: bookID, MemberID: memberID, BorrowDate: day, DueDate: day.AddDate(0, 0, 14),
			ReturnDate: &day, Status: circulation.StatusReturned,
		})
	})
	require.NoError(t, err)

	require.NoError(t, db.Catalog().InTx(ctx, func(repo catalog.Repository) error {
		return repo.DeleteBook(ctx, bookID)
	}))

	err = db.Membership().ReadOnly(ctx, func(repo membership.Repository) error {
		has, err := repo.HasTransactions(ctx, memberID)
		assert.False(t, has)
		return err
	})
	require.NoError(t, err)
}

func TestIntegrityMeasures(t *testing.T) {
	db := New()
	ctx := context.Background()
	bookID, memberID := seedBookAndMember(t, db)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	// Corrupt the state directly to exercise every measure.
	db.state.loans[100] = circulation.Transaction{ID: 100, BookID: bookID, MemberID: memberID, BorrowDate: day, DueDate: day.AddDate(0, 0, 14), Status: circulation.StatusBorrowed}
	db.state.loans[101] = circulation.Transaction{ID: 101, BookID: bookID, MemberID: memberID, BorrowDate: day, DueDate: day.AddDate(0, 0, 10), Status: circulation.StatusReturned}
	a, b := int64(200), int64(201)
	db.state.categories[a] = category.Category{ID: a, Name: "A", ParentID: &b}
	db.state.categories[b] = category.Category{ID: b, Name: "B", ParentID: &a}

	n, err := db.BooksWithMultipleOpenLoans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.InconsistentLoans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.CategoryCycles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.MisdatedLoans(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.OverdueOpenLoans(ctx, day.AddDate(0, 0, 20))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
