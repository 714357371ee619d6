// Package memory is an in-process implementation of every storage port.
// Writers are serialised by one mutex and work on a copy of the state that
// replaces the live state only when the callback succeeds, so a failed
// operation leaves no partial effect.
package memory

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"libranexus/internal/auth"
	"libranexus/internal/catalog"
	"libranexus/internal/category"
	"libranexus/internal/circulation"
	"libranexus/internal/eventlog"
	"libranexus/internal/membership"
)

var errReadOnly = errors.New("memory: write in read-only transaction")

type state struct {
	seq        int64
	books      map[int64]catalog.Book
	authors    map[int64]catalog.Author
	publishers map[int64]catalog.Publisher
	categories map[int64]category.Category
	members    map[int64]membership.Member
	users      map[int64]auth.User
	loans      map[int64]circulation.Transaction
	events     []eventlog.Event
}

func newState() *state {
	return &state{
		books:      map[int64]catalog.Book{},
		authors:    map[int64]catalog.Author{},
		publishers: map[int64]catalog.Publisher{},
		categories: map[int64]category.Category{},
		members:    map[int64]membership.Member{},
		users:      map[int64]auth.User{},
		loans:      map[int64]circulation.Transaction{},
	}
}

func (s *state) clone() *state {
	c := &state{
		seq:        s.seq,
		books:      make(map[int64]catalog.Book, len(s.books)),
		authors:    maps.Clone(s.authors),
		publishers: maps.Clone(s.publishers),
		categories: make(map[int64]category.Category, len(s.categories)),
		members:    maps.Clone(s.members),
		users:      maps.Clone(s.users),
		loans:      make(map[int64]circulation.Transaction, len(s.loans)),
		events:     slices.Clone(s.events),
	}
	for k, v := range s.books {
		c.books[k] = cloneBook(v)
	}
	for k, v := range s.categories {
		c.categories[k] = cloneCategory(v)
	}
	for k, v := range s.loans {
		c.loans[k] = cloneLoan(v)
	}
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func cloneBook(b catalog.Book) catalog.Book {
	b.AuthorIDs = slices.Clone(b.AuthorIDs)
	b.CategoryIDs = slices.Clone(b.CategoryIDs)
	b.CategoryNames = slices.Clone(b.CategoryNames)
	return b
}

func cloneCategory(c category.Category) category.Category {
	if c.ParentID != nil {
		pid := *c.ParentID
		c.ParentID = &pid
	}
	return c
}

func cloneLoan(t circulation.Transaction) circulation.Transaction {
	if t.ReturnDate != nil {
		rd := *t.ReturnDate
		t.ReturnDate = &rd
	}
	return t
}

// sortedValues returns the map values ordered by id.
func sortedValues[V any](m map[int64]V) []V {
	out := make([]V, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, m[k])
	}
	return out
}

// hasOpenLoan is the "currently borrowed" predicate shared by lending and
// the catalog: a transaction for the book without a return date.
func hasOpenLoan(s *state, bookID int64) bool {
	for _, t := range s.loans {
		if t.BookID == bookID && t.ReturnDate == nil {
			return true
		}
	}
	return false
}

// DB holds the in-memory state.
type DB struct {
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

func New() *DB {
	return &DB{state: newState(), now: time.Now}
}

func (db *DB) write(ctx context.Context, fn func(*state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	next := db.state.clone()
	if err := fn(next); err != nil {
		return err
	}
	db.state = next
	return nil
}

func (db *DB) read(ctx context.Context, fn func(*state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(db.state)
}

// txStore adapts DB to a context's Store port for repository type R.
type txStore[R any] struct {
	db   *DB
	repo func(st *state, readOnly bool) R
}

func (s txStore[R]) InTx(ctx context.Context, fn func(R) error) error {
	return s.db.write(ctx, func(st *state) error { return fn(s.repo(st, false)) })
}

func (s txStore[R]) ReadOnly(ctx context.Context, fn func(R) error) error {
	return s.db.read(ctx, func(st *state) error { return fn(s.repo(st, true)) })
}

func (db *DB) Circulation() circulation.Store {
	return txStore[circulation.Repository]{db: db, repo: func(st *state, ro bool) circulation.Repository {
		return &circulationRepo{st: st, readOnly: ro, now: db.now}
	}}
}

func (db *DB) Catalog() catalog.Store {
	return txStore[catalog.Repository]{db: db, repo: func(st *state, ro bool) catalog.Repository {
		return &catalogRepo{st: st, readOnly: ro}
	}}
}

func (db *DB) Categories() category.Store {
	return txStore[category.Repository]{db: db, repo: func(st *state, ro bool) category.Repository {
		return &categoryRepo{st: st, readOnly: ro}
	}}
}

func (db *DB) Membership() membership.Store {
	return txStore[membership.Repository]{db: db, repo: func(st *state, ro bool) membership.Repository {
		return &memberRepo{st: st, readOnly: ro}
	}}
}

func (db *DB) Users() auth.Store {
	return txStore[auth.Repository]{db: db, repo: func(st *state, ro bool) auth.Repository {
		return &userRepo{st: st, readOnly: ro}
	}}
}

func byID[T any](id func(T) int64) func(a, b T) int {
	return func(a, b T) int { return cmp.Compare(id(a), id(b)) }
}

// Ping reports ctx errors only; the store has no connection to check.
func (db *DB) Ping(ctx context.Context) error { return ctx.Err() }

func (db *DB) Close() error { return nil }
