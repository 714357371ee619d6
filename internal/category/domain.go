// internal/category/domain.go
package category

import "libranexus/internal/apperror"

// Category is a node of the category tree. Children and books are derived by
// query; a category only stores its parent id.
type Category struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	ParentID *int64 `db:"parent_id"`
}

// ParentLookup returns the parent id of category id, or nil for a root.
type ParentLookup func(id int64) (*int64, error)

// AssignParent sets c's parent to parentID and walks the resulting ancestor
// chain by id. It fails with a HierarchyCycle error, leaving c unchanged, if
// the walk reaches an id it has already visited.
func AssignParent(c *Category, parentID *int64, lookup ParentLookup) error {
	parentOf := func(id int64) (*int64, error) {
		if id == c.ID {
			return parentID, nil
		}
		return lookup(id)
	}

	visited := make(map[int64]struct{})
	current := c.ID
	for {
		parent, err := parentOf(current)
		if err != nil {
			return err
		}
		if parent == nil {
			break
		}
		if _, seen := visited[*parent]; seen {
			return apperror.HierarchyCycle(c.ID, *parentID)
		}
		visited[current] = struct{}{}
		current = *parent
	}

	c.ParentID = parentID
	return nil
}
