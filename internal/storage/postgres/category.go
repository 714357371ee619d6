// internal/storage/postgres/category.go
package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"libranexus/internal/category"
)

// hierarchyLockKey identifies the advisory lock taken by category writers.
const hierarchyLockKey = 0x6c6e_6361_7465 // "lncate"

type categoryRepo struct {
	tx *sqlx.Tx
}

// LockHierarchy serialises category writers until the transaction ends, so
// two concurrent parent changes cannot together close a cycle.
func (r *categoryRepo) LockHierarchy(ctx context.Context) error {
	_, err := r.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, hierarchyLockKey)
	return err
}

func (r *categoryRepo) Get(ctx context.Context, id int64) (*category.Category, error) {
	var c category.Category
	ok, err := getOne(ctx, r.tx, &c, `SELECT id, name, parent_id FROM categories WHERE id = $1`, id)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepo) GetByName(ctx context.Context, name string) (*category.Category, error) {
	var c category.Category
	ok, err := getOne(ctx, r.tx, &c, `SELECT id, name, parent_id FROM categories WHERE name = $1`, name)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepo) List(ctx context.Context) ([]category.Category, error) {
	out := []category.Category{}
	if err := r.tx.SelectContext(ctx, &out, `SELECT id, name, parent_id FROM categories ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryRepo) Insert(ctx context.Context, c *category.Category) error {
	return r.tx.QueryRowxContext(ctx,
		`INSERT INTO categories (name, parent_id) VALUES ($1, $2) RETURNING id`,
		c.Name, c.ParentID).Scan(&c.ID)
}

func (r *categoryRepo) Update(ctx context.Context, c *category.Category) error {
	_, err := r.tx.ExecContext(ctx, `UPDATE categories SET name = $2, parent_id = $3 WHERE id = $1`, c.ID, c.Name, c.ParentID)
	return err
}

func (r *categoryRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return err
}

func (r *categoryRepo) HasChildren(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.tx, `SELECT 1 FROM categories WHERE parent_id = $1`, id)
}

func (r *categoryRepo) HasBooks(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.tx, `SELECT 1 FROM book_category WHERE category_id = $1`, id)
}
