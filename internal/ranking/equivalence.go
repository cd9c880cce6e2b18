package ranking

import (
	"fmt"
	"slices"

	"github.com/ahrav/go-ballot/internal/domain"
)

// EquivalenceIndex is a union-find forest grouping items judged tied.
// The zero value is an empty index; use NewEquivalenceIndex or
// equivalenceFromSnapshot to create a usable one.
type EquivalenceIndex struct {
	// parent[i] is the parent of item i; roots are self-parented.
	parent []int
}

// NewEquivalenceIndex creates an index over n items where every item is
// its own cluster.
func NewEquivalenceIndex(n int) *EquivalenceIndex {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &EquivalenceIndex{parent: parent}
}

// equivalenceFromSnapshot builds a mutable working copy of the snapshot's
// parent array. The snapshot itself is never modified.
func equivalenceFromSnapshot(s domain.Snapshot) *EquivalenceIndex {
	return &EquivalenceIndex{parent: s.Parent()}
}

// Len returns the number of items in the index.
func (e *EquivalenceIndex) Len() int { return len(e.parent) }

// Find returns the root of x's cluster by following parent links until it
// reaches a self-parented item. The walk is bounded by the number of items;
// a longer chain means the forest is corrupt and yields an error wrapping
// domain.ErrCorruptState. Find does not compress paths, so the parent array
// only ever changes through Union.
func (e *EquivalenceIndex) Find(x int) (int, error) {
	if x < 0 || x >= len(e.parent) {
		return 0, domain.NewInputError("item", x, domain.ErrItemOutOfRange)
	}
	for steps := 0; e.parent[x] != x; steps++ {
		if steps >= len(e.parent) {
			return 0, fmt.Errorf("%w: parent chain from %d does not reach a root", domain.ErrCorruptState, x)
		}
		x = e.parent[x]
	}
	return x, nil
}

// mustFind is Find for indices already validated against a well-formed
// forest, which every restored Snapshot guarantees.
func (e *EquivalenceIndex) mustFind(x int) int {
	for e.parent[x] != x {
		x = e.parent[x]
	}
	return x
}

// Union merges the cluster containing a with the cluster containing b by
// making find(a) the parent of find(b). It is a no-op when both items
// already share a root, so repeated identical unions leave the partition
// unchanged. Which root survives depends on argument order; the resulting
// partition does not.
func (e *EquivalenceIndex) Union(a, b int) error {
	ra, err := e.Find(a)
	if err != nil {
		return err
	}
	rb, err := e.Find(b)
	if err != nil {
		return err
	}
	if ra != rb {
		e.parent[rb] = ra
	}
	return nil
}

// Same reports whether a and b belong to the same cluster.
func (e *EquivalenceIndex) Same(a, b int) bool {
	return e.mustFind(a) == e.mustFind(b)
}

// Parent returns a copy of the parent array.
func (e *EquivalenceIndex) Parent() []int { return slices.Clone(e.parent) }

// Partition returns the clusters as sorted member lists, ordered by their
// smallest member. Two indexes with the same Partition are equivalent
// regardless of which item each chose as root.
func (e *EquivalenceIndex) Partition() [][]int {
	c := clustersOf(e)
	out := make([][]int, 0, len(c.Roots))
	for _, root := range c.Roots {
		out = append(out, slices.Clone(c.Members[root]))
	}
	return out
}
