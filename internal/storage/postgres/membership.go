// internal/storage/postgres/membership.go
package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"libranexus/internal/membership"
)

const memberColumns = `id, name, email, phone, membership_date`

type memberRepo struct {
	tx *sqlx.Tx
}

func (r *memberRepo) Get(ctx context.Context, id int64) (*membership.Member, error) {
	var m membership.Member
	ok, err := getOne(ctx, r.tx, &m, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	if err != nil || !ok {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepo) GetByEmail(ctx context.Context, email string) (*membership.Member, error) {
	var m membership.Member
	ok, err := getOne(ctx, r.tx, &m, `SELECT `+memberColumns+` FROM members WHERE email = $1`, email)
	if err != nil || !ok {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepo) List(ctx context.Context) ([]membership.Member, error) {
	out := []membership.Member{}
	if err := r.tx.SelectContext(ctx, &out, `SELECT `+memberColumns+` FROM members ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *memberRepo) Insert(ctx context.Context, m *membership.Member) error {
	return r.tx.QueryRowxContext(ctx, `
		INSERT INTO members (name, email, phone, membership_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, m.Name, m.Email, m.Phone, m.MembershipDate).Scan(&m.ID)
}

func (r *memberRepo) Update(ctx context.Context, m *membership.Member) error {
	_, err := r.tx.NamedExecContext(ctx, `
		UPDATE members
		SET name = :name, email = :email, phone = :phone, membership_date = :membership_date
		WHERE id = :id
	`, m)
	return err
}

func (r *memberRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	return err
}

func (r *memberRepo) HasTransactions(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.tx, `SELECT 1 FROM borrowing_transactions WHERE member_id = $1`, id)
}
