// internal/storage/memory/membership.go
package memory

import (
	"context"

	"libranexus/internal/apperror"
	"libranexus/internal/membership"
)

type memberRepo struct {
	st       *state
	readOnly bool
}

func (r *memberRepo) Get(_ context.Context, id int64) (*membership.Member, error) {
	m, ok := r.st.members[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *memberRepo) GetByEmail(_ context.Context, email string) (*membership.Member, error) {
	for _, m := range r.st.members {
		if m.Email == email {
			return &m, nil
		}
	}
	return nil, nil
}

func (r *memberRepo) List(_ context.Context) ([]membership.Member, error) {
	return sortedValues(r.st.members), nil
}

func (r *memberRepo) Insert(_ context.Context, m *membership.Member) error {
	if r.readOnly {
		return errReadOnly
	}
	m.ID = r.st.nextID()
	r.st.members[m.ID] = *m
	return nil
}

func (r *memberRepo) Update(_ context.Context, m *membership.Member) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.members[m.ID]; !ok {
		return apperror.NotFound("member", m.ID)
	}
	r.st.members[m.ID] = *m
	return nil
}

// Delete refuses to orphan transactions, like the foreign key does.
func (r *memberRepo) Delete(ctx context.Context, id int64) error {
	if r.readOnly {
		return errReadOnly
	}
	if has, _ := r.HasTransactions(ctx, id); has {
		return apperror.Conflict("member", id, "member has borrowing transactions")
	}
	delete(r.st.members, id)
	return nil
}

func (r *memberRepo) HasTransactions(_ context.Context, id int64) (bool, error) {
	for _, t := range r.st.loans {
		if t.MemberID == id {
			return true, nil
		}
	}
	return false, nil
}
