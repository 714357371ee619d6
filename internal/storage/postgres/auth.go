// internal/storage/postgres/auth.go
package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"libranexus/internal/auth"
)

const userColumns = `id, username, email, password_hash, salt, role, created_at`

type userRepo struct {
	tx *sqlx.Tx
}

func (r *userRepo) one(ctx context.Context, where string, arg any) (*auth.User, error) {
	var u auth.User
	ok, err := getOne(ctx, r.tx, &u, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Get(ctx context.Context, id int64) (*auth.User, error) {
	return r.one(ctx, `id = $1`, id)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.one(ctx, `username = $1`, username)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.one(ctx, `email = $1`, email)
}

func (r *userRepo) List(ctx context.Context) ([]auth.User, error) {
	out := []auth.User{}
	if err := r.tx.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}

func (r *userRepo) Insert(ctx context.Context, u *auth.User) error {
	return r.tx.QueryRowxContext(ctx, `
		INSERT INTO users (username, email, password_hash, salt, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, u.Username, u.Email, u.PasswordHash, u.Salt, u.Role, u.CreatedAt).Scan(&u.ID)
}

func (r *userRepo) Update(ctx context.Context, u *auth.User) error {
	_, err := r.tx.ExecContext(ctx, `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, salt = $5, role = $6
		WHERE id = $1
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Salt, u.Role)
	return err
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}
