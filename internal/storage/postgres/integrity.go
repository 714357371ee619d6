// internal/storage/postgres/integrity.go
package postgres

import (
	"context"
	"fmt"
	"time"
)

// The methods below implement integrity.Measurer.

func (d *DB) count(ctx context.Context, name, query string, args ...any) (int, error) {
	ctx, span := d.tracer.Start(ctx, "postgres.integrity."+name)
	defer span.End()

	var n int
	if err := d.db.GetContext(ctx, &n, query, args...); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func (d *DB) BooksWithMultipleOpenLoans(ctx context.Context) (int, error) {
	return d.count(ctx, "books_with_multiple_open_loans", `
		SELECT COUNT(*) FROM (
			SELECT book_id
			FROM borrowing_transactions
			WHERE return_date IS NULL
			GROUP BY book_id
			HAVING COUNT(*) > 1
		) AS dup
	`)
}

func (d *DB) InconsistentLoans(ctx context.Context) (int, error) {
	return d.count(ctx, "inconsistent_loans", `
		SELECT COUNT(*)
		FROM borrowing_transactions
		WHERE (return_date IS NULL AND status <> 'BORROWED')
		   OR (return_date IS NOT NULL AND status = 'BORROWED')
		   OR (return_date IS NOT NULL AND status = 'OVERDUE' AND return_date <= due_date)
		   OR (return_date IS NOT NULL AND status = 'RETURNED' AND return_date > due_date)
	`)
}

// CategoryCycles walks every category's ancestor chain; the walk stops at a
// repeated node, and a chain that reaches its own start is a cycle.
func (d *DB) CategoryCycles(ctx context.Context) (int, error) {
	return d.count(ctx, "category_cycles", `
		WITH RECURSIVE ancestry (origin, current, path, cycle) AS (
			SELECT id, parent_id, ARRAY[id], false
			FROM categories
			WHERE parent_id IS NOT NULL
			UNION ALL
			SELECT a.origin, c.parent_id, a.path || a.current, a.current = ANY(a.path)
			FROM ancestry a
			JOIN categories c ON c.id = a.current
			WHERE NOT a.cycle AND a.current IS NOT NULL
		)
		SELECT COUNT(DISTINCT origin)
		FROM ancestry
		WHERE current = origin
	`)
}

func (d *DB) MisdatedLoans(ctx context.Context, loanDays int) (int, error) {
	return d.count(ctx, "misdated_loans", `
		SELECT COUNT(*)
		FROM borrowing_transactions
		WHERE due_date <> borrow_date + $1::int
	`, loanDays)
}

func (d *DB) OverdueOpenLoans(ctx context.Context, today time.Time) (int, error) {
	return d.count(ctx, "overdue_open_loans", `
		SELECT COUNT(*)
		FROM borrowing_transactions
		WHERE return_date IS NULL AND due_date < $1::date
	`, today.Format(time.DateOnly))
}
