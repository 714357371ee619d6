// internal/storage/memory/auth.go
package memory

import (
	"context"

	"libranexus/internal/apperror"
	"libranexus/internal/auth"
)

type userRepo struct {
	st       *state
	readOnly bool
}

func (r *userRepo) Get(_ context.Context, id int64) (*auth.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) find(match func(auth.User) bool) *auth.User {
	for _, u := range r.st.users {
		if match(u) {
			return &u
		}
	}
	return nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	return r.find(func(u auth.User) bool { return u.Username == username }), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	return r.find(func(u auth.User) bool { return u.Email == email }), nil
}

func (r *userRepo) List(_ context.Context) ([]auth.User, error) {
	return sortedValues(r.st.users), nil
}

func (r *userRepo) Count(_ context.Context) (int, error) {
	return len(r.st.users), nil
}

func (r *userRepo) Insert(_ context.Context, u *auth.User) error {
	if r.readOnly {
		return errReadOnly
	}
	if r.find(func(o auth.User) bool { return o.Username == u.Username }) != nil {
		return apperror.AlreadyExists("user", "username", u.Username)
	}
	u.ID = r.st.nextID()
	r.st.users[u.ID] = *u
	return nil
}

func (r *userRepo) Update(_ context.Context, u *auth.User) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.users[u.ID]; !ok {
		return apperror.NotFound("user", u.ID)
	}
	r.st.users[u.ID] = *u
	return nil
}

func (r *userRepo) Delete(_ context.Context, id int64) error {
	if r.readOnly {
		return errReadOnly
	}
	delete(r.st.users, id)
	return nil
}
