// internal/storage/memory/category.go
package memory

import (
	"context"
	"slices"

	"libranexus/internal/apperror"
	"libranexus/internal/category"
)

type categoryRepo struct {
	st       *state
	readOnly bool
}

// LockHierarchy is a no-op: the write mutex already serialises writers.
func (r *categoryRepo) LockHierarchy(context.Context) error { return nil }

func (r *categoryRepo) Get(_ context.Context, id int64) (*category.Category, error) {
	c, ok := r.st.categories[id]
	if !ok {
		return nil, nil
	}
	c = cloneCategory(c)
	return &c, nil
}

func (r *categoryRepo) GetByName(_ context.Context, name string) (*category.Category, error) {
	for _, c := range r.st.categories {
		if c.Name == name {
			c = cloneCategory(c)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *categoryRepo) List(_ context.Context) ([]category.Category, error) {
	out := sortedValues(r.st.categories)
	for i := range out {
		out[i] = cloneCategory(out[i])
	}
	return out, nil
}

func (r *categoryRepo) Insert(ctx context.Context, c *category.Category) error {
	if r.readOnly {
		return errReadOnly
	}
	if other, _ := r.GetByName(ctx, c.Name); other != nil {
		return apperror.AlreadyExists("category", "name", c.Name)
	}
	c.ID = r.st.nextID()
	r.st.categories[c.ID] = cloneCategory(*c)
	return nil
}

func (r *categoryRepo) Update(_ context.Context, c *category.Category) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, ok := r.st.categories[c.ID]; !ok {
		return apperror.NotFound("category", c.ID)
	}
	r.st.categories[c.ID] = cloneCategory(*c)
	return nil
}

func (r *categoryRepo) Delete(_ context.Context, id int64) error {
	if r.readOnly {
		return errReadOnly
	}
	delete(r.st.categories, id)
	return nil
}

func (r *categoryRepo) HasChildren(_ context.Context, id int64) (bool, error) {
	for _, c := range r.st.categories {
		if c.ParentID != nil && *c.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *categoryRepo) HasBooks(_ context.Context, id int64) (bool, error) {
	for _, b := range r.st.books {
		if slices.Contains(b.CategoryIDs, id) {
			return true, nil
		}
	}
	return false, nil
}
