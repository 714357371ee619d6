// internal/storage/memory/integrity.go
package memory

import (
	"context"
	"time"

	"libranexus/internal/circulation"
)

// The methods below implement integrity.Measurer.

func (db *DB) BooksWithMultipleOpenLoans(ctx context.Context) (int, error) {
	var n int
	err := db.read(ctx, func(st *state) error {
		open := map[int64]int{}
		for _, t := range st.loans {
			if t.ReturnDate == nil {
				open[t.BookID]++
			}
		}
		for _, c := range open {
			if c > 1 {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (db *DB) InconsistentLoans(ctx context.Context) (int, error) {
	var n int
	err := db.read(ctx, func(st *state) error {
		for _, t := range st.loans {
			if !consistentLoan(t) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func consistentLoan(t circulation.Transaction) bool {
	if t.ReturnDate == nil {
		return t.Status == circulation.StatusBorrowed
	}
	return t.Status == circulation.Classify(*t.ReturnDate, t.DueDate)
}

func (db *DB) CategoryCycles(ctx context.Context) (int, error) {
	var n int
	err := db.read(ctx, func(st *state) error {
		for id := range st.categories {
			if onCycle(st, id) {
				n++
			}
		}
		return nil
	})
	return n, err
}

// onCycle reports whether walking parents from id leads back to id.
func onCycle(st *state, id int64) bool {
	seen := map[int64]bool{}
	cur := st.categories[id].ParentID
	for cur != nil {
		if *cur == id {
			return true
		}
		if seen[*cur] {
			return false
		}
		seen[*cur] = true
		cur = st.categories[*cur].ParentID
	}
	return false
}

func (db *DB) MisdatedLoans(ctx context.Context, loanDays int) (int, error) {
	var n int
	err := db.read(ctx, func(st *state) error {
		for _, t := range st.loans {
			want := circulation.DateOf(t.BorrowDate).AddDate(0, 0, loanDays)
			if !circulation.DateOf(t.DueDate).Equal(want) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (db *DB) OverdueOpenLoans(ctx context.Context, today time.Time) (int, error) {
	var n int
	err := db.read(ctx, func(st *state) error {
		for _, t := range st.loans {
			if t.ReturnDate == nil && circulation.DateOf(t.DueDate).Before(circulation.DateOf(today)) {
				n++
			}
		}
		return nil
	})
	return n, err
}
