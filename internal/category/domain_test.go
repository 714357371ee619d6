package category

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"libranexus/internal/apperror"
)

// forest maps category id to parent id.
type forest map[int64]*int64

func (f forest) lookup(id int64) (*int64, error) { return f[id], nil }

func id(v int64) *int64 { return &v }

func TestAssignParentSelfIsCycle(t *testing.T) {
	c := &Category{ID: 1, Name: "Fiction"}
	err := AssignParent(c, id(1), forest{1: nil}.lookup)
	assert.ErrorIs(t, err, apperror.ErrHierarchyCycle)
	assert.Nil(t, c.ParentID)
}

func TestAssignParentChildIsCycle(t *testing.T) {
	tree := forest{1: nil, 2: id(1), 3: id(2)}
	c := &Category{ID: 1, Name: "Fiction"}
	err := AssignParent(c, id(3), tree.lookup)
	require.Error(t, err)
	assert.Equal(t, apperror.KindHierarchyCycle, apperror.KindOf(err))
	assert.Nil(t, c.ParentID, "failed assignment must leave the category unchanged")
}

func TestAssignParentSibling(t *testing.T) {
	tree := forest{1: nil, 2: id(1), 3: id(1)}
	c := &Category{ID: 2, Name: "Sci-Fi", ParentID: id(1)}
	require.NoError(t, AssignParent(c, id(3), tree.lookup))
	assert.Equal(t, int64(3), *c.ParentID)
}

func TestAssignParentNilMakesRoot(t *testing.T) {
	c := &Category{ID: 2, ParentID: id(1)}
	require.NoError(t, AssignParent(c, nil, forest{1: nil}.lookup))
	assert.Nil(t, c.ParentID)
}

func TestAssignParentLookupError(t *testing.T) {
	boom := errors.New("boom")
	c := &Category{ID: 2}
	err := AssignParent(c, id(1), func(int64) (*int64, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

// isDescendant reports whether node lies in the subtree rooted at root.
func isDescendant(f forest, node, root int64) bool {
	for cur := &node; cur != nil; cur = f[*cur] {
		if *cur == root {
			return true
		}
	}
	return false
}

func TestAssignParentCycleIffDescendant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		tree := forest{}
		for i := int64(1); i <= int64(n); i++ {
			if i > 1 && rapid.Bool().Draw(t, "hasParent") {
				tree[i] = id(rapid.Int64Range(1, i-1).Draw(t, "parent"))
			} else {
				tree[i] = nil
			}
		}
		target := rapid.Int64Range(1, int64(n)).Draw(t, "target")
		candidate := rapid.Int64Range(1, int64(n)).Draw(t, "candidate")

		c := &Category{ID: target, ParentID: tree[target]}
		err := AssignParent(c, id(candidate), tree.lookup)

		if isDescendant(tree, candidate, target) {
			if apperror.KindOf(err) != apperror.KindHierarchyCycle {
				t.Fatalf("parent %d of %d should be a cycle, got %v", candidate, target, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("parent %d of %d rejected: %v", candidate, target, err)
		}
		if *c.ParentID != candidate {
			t.Fatalf("parent not set")
		}
	})
}
