// Package postgres implements the storage ports on PostgreSQL with sqlx.
// Every service call runs in one database transaction; repositories handed to
// the callback are bound to that transaction.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libranexus/internal/apperror"
	"libranexus/internal/auth"
	"libranexus/internal/catalog"
	"libranexus/internal/category"
	"libranexus/internal/circulation"
	"libranexus/internal/eventlog"
	"libranexus/internal/membership"
)

const (
	uniqueViolation      = "23505"
	foreignKeyViolation  = "23503"
	serializationFailure = "40001"

	// openLoanIndex is the partial unique index allowing one open loan per book.
	openLoanIndex = "borrowing_transactions_one_open_per_book"
)

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps the connection pool.
type DB struct {
	db     *sqlx.DB
	events *eventlog.Log
	tracer trace.Tracer
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts Options) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return New(db), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB) *DB {
	return &DB{
		db:     db,
		events: eventlog.NewLog(),
		tracer: otel.Tracer("libranexus/storage/postgres"),
	}
}

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// withTx runs fn in a transaction that commits when fn returns nil. Writes
// run at READ COMMITTED and rely on row locks; reads use a read-only
// transaction so a whole service call sees one consistent view.
func (d *DB) withTx(ctx context.Context, readOnly bool, fn func(*sqlx.Tx) error) (err error) {
	ctx, span := d.tracer.Start(ctx, "postgres.tx", trace.WithAttributes(attribute.Bool("tx.read_only", readOnly)))
	defer span.End()

	opts := &sql.TxOptions{ReadOnly: readOnly}
	if readOnly {
		opts.Isolation = sql.LevelRepeatableRead
	}
	tx, err := d.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			span.RecordError(err)
		}
	}()

	if err = fn(tx); err != nil {
		return mapError(err)
	}
	if err = tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// mapError turns constraint violations that escaped the service checks into
// domain errors. Other errors are returned unchanged.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	entity := entityOf(pqErr.Table)
	switch pqErr.Code {
	case uniqueViolation:
		if pqErr.Constraint == openLoanIndex {
			return &apperror.Error{Kind: apperror.KindConflict, Entity: "book", Message: "book not available: it already has an open loan", Err: err}
		}
		return &apperror.Error{Kind: apperror.KindAlreadyExists, Entity: entity, Message: entity + " already exists", Err: err}
	case foreignKeyViolation:
		return &apperror.Error{Kind: apperror.KindConflict, Entity: entity, Message: entity + " references missing or is referenced by other records", Err: err}
	case serializationFailure:
		return &apperror.Error{Kind: apperror.KindConflict, Entity: entity, Message: "concurrent update, try again", Err: err}
	}
	return err
}

func entityOf(table string) string {
	switch table {
	case "borrowing_transactions", "lending_events":
		return "borrowing transaction"
	case "book_author", "book_category":
		return "book"
	case "categories":
		return "category"
	case "":
		return "record"
	}
	return strings.TrimSuffix(table, "s")
}

// txStore adapts DB to a context's Store port for repository type R.
type txStore[R any] struct {
	db   *DB
	repo func(tx *sqlx.Tx) R
}

func (s txStore[R]) InTx(ctx context.Context, fn func(R) error) error {
	return s.db.withTx(ctx, false, func(tx *sqlx.Tx) error { return fn(s.repo(tx)) })
}

func (s txStore[R]) ReadOnly(ctx context.Context, fn func(R) error) error {
	return s.db.withTx(ctx, true, func(tx *sqlx.Tx) error { return fn(s.repo(tx)) })
}

func (d *DB) Circulation() circulation.Store {
	return txStore[circulation.Repository]{db: d, repo: func(tx *sqlx.Tx) circulation.Repository {
		return &circulationRepo{tx: tx, events: d.events}
	}}
}

func (d *DB) Catalog() catalog.Store {
	return txStore[catalog.Repository]{db: d, repo: func(tx *sqlx.Tx) catalog.Repository {
		return &catalogRepo{tx: tx}
	}}
}

func (d *DB) Categories() category.Store {
	return txStore[category.Repository]{db: d, repo: func(tx *sqlx.Tx) category.Repository {
		return &categoryRepo{tx: tx}
	}}
}

func (d *DB) Membership() membership.Store {
	return txStore[membership.Repository]{db: d, repo: func(tx *sqlx.Tx) membership.Repository {
		return &memberRepo{tx: tx}
	}}
}

func (d *DB) Users() auth.Store {
	return txStore[auth.Repository]{db: d, repo: func(tx *sqlx.Tx) auth.Repository {
		return &userRepo{tx: tx}
	}}
}

// getOne scans a single row into dst and reports whether one was found.
func getOne(ctx context.Context, q sqlx.QueryerContext, dst any, query string, args ...any) (bool, error) {
	err := sqlx.GetContext(ctx, q, dst, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func exists(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (bool, error) {
	var ok bool
	if err := sqlx.GetContext(ctx, q, &ok, "SELECT EXISTS ("+query+")", args...); err != nil {
		return false, err
	}
	return ok, nil
}
