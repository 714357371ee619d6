// internal/storage/memory/circulation.go
package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"libranexus/internal/apperror"
	"libranexus/internal/circulation"
	"libranexus/internal/eventlog"
)

type circulationRepo struct {
	st       *state
	readOnly bool
	now      func() time.Time
}

func (r *circulationRepo) LockBook(ctx context.Context, bookID int64) (*circulation.BookRef, error) {
	return r.GetBook(ctx, bookID)
}

func (r *circulationRepo) GetBook(_ context.Context, bookID int64) (*circulation.BookRef, error) {
	b, ok := r.st.books[bookID]
	if !ok {
		return nil, nil
	}
	return &circulation.BookRef{ID: b.ID, Title: b.Title}, nil
}

func (r *circulationRepo) GetMember(_ context.Context, memberID int64) (*circulation.MemberRef, error) {
	m, ok := r.st.members[memberID]
	if !ok {
		return nil, nil
	}
	return &circulation.MemberRef{ID: m.ID, Name: m.Name}, nil
}

func (r *circulationRepo) OpenTransactionsForBook(_ context.Context, bookID int64) ([]circulation.Transaction, error) {
	var open []circulation.Transaction
	for _, t := range r.st.loans {
		if t.BookID == bookID && t.ReturnDate == nil {
			open = append(open, cloneLoan(t))
		}
	}
	slices.SortFunc(open, byID(func(t circulation.Transaction) int64 { return t.ID }))
	return open, nil
}

// Insert mirrors the storage constraints: existing book and member, and at
// most one open transaction per book.
func (r *circulationRepo) Insert(_ context.Context, t *circulation.Transaction) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.books[t.BookID]; !ok {
		return apperror.NotFound("book", t.BookID)
	}
	if _, ok := r.st.members[t.MemberID]; !ok {
		return apperror.NotFound("member", t.MemberID)
	}
	if t.ReturnDate == nil && hasOpenLoan(r.st, t.BookID) {
		return apperror.Conflict("book", t.BookID, "book not available: it already has an open loan")
	}
	t.ID = r.st.nextID()
	r.st.loans[t.ID] = cloneLoan(*t)
	return nil
}

func (r *circulationRepo) Get(_ context.Context, id int64) (*circulation.Transaction, error) {
	t, ok := r.st.loans[id]
	if !ok {
		return nil, nil
	}
	t = cloneLoan(t)
	return &t, nil
}

func (r *circulationRepo) LockTransaction(ctx context.Context, id int64) (*circulation.Transaction, error) {
	return r.Get(ctx, id)
}

func (r *circulationRepo) Update(_ context.Context, t *circulation.Transaction) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.loans[t.ID]; !ok {
		return apperror.NotFound("borrowing transaction", t.ID)
	}
	r.st.loans[t.ID] = cloneLoan(*t)
	return nil
}

func (r *circulationRepo) ListByMember(_ context.Context, memberID int64) ([]circulation.Transaction, error) {
	var out []circulation.Transaction
	for _, t := range sortedValues(r.st.loans) {
		if t.MemberID == memberID {
			out = append(out, cloneLoan(t))
		}
	}
	return out, nil
}

// AppendEvent applies the event log's optimistic version check.
func (r *circulationRepo) AppendEvent(_ context.Context, expectedVersion int, ev eventlog.Event) error {
	if r.readOnly {
		return errReadOnly
	}
	if expectedVersion < 0 {
		return eventlog.ErrInvalidVersion
	}
	current := 0
	for _, e := range r.st.events {
		if e.AggregateType == ev.AggregateType && e.AggregateID == ev.AggregateID && e.Version > current {
			current = e.Version
		}
	}
	if current != expectedVersion {
		return fmt.Errorf("aggregate %s/%d at version %d: %w", ev.AggregateType, ev.AggregateID, current, eventlog.ErrConcurrencyConflict)
	}

	ev.ID = r.st.nextID()
	ev.Version = expectedVersion + 1
	ev.CreatedAt = r.now().UTC()
	r.st.events = append(r.st.events, ev)
	return nil
}

func (r *circulationRepo) LoadEvents(_ context.Context, aggregateID int64) ([]eventlog.Event, error) {
	var out []eventlog.Event
	for _, e := range r.st.events {
		if e.AggregateType == circulation.AggregateType && e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b eventlog.Event) int { return a.Version - b.Version })
	return out, nil
}
