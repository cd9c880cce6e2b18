package ranking

import "github.com/ahrav/go-ballot/internal/domain"

// clusters groups every item by its equivalence root.
type clusters struct {
	// Roots lists each cluster root once, in the order its first member
	// appears when scanning items 0…N-1.
	Roots []int
	// Members maps a root to its items in ascending order.
	Members map[int][]int
}

func clustersOf(e *EquivalenceIndex) clusters {
	c := clusters{Members: make(map[int][]int)}
	for i := range e.parent {
		root := e.mustFind(i)
		if _, seen := c.Members[root]; !seen {
			c.Roots = append(c.Roots, root)
		}
		c.Members[root] = append(c.Members[root], i)
	}
	return c
}

// resolved reports whether the relation between roots u and v is already
// determined by a path in either direction.
func resolved(g *OrderGraph, u, v int) bool {
	return g.HasPath(u, v) || g.HasPath(v, u)
}

// SelectPair returns the first pair of cluster roots whose relative order
// is still undetermined, scanning pairs in root-list order (outer loop over
// the earlier root, inner loop over the later one). The boolean is false
// when every pair is resolved, which is the completion signal; a single
// cluster completes immediately.
//
// The result depends only on the current state, so the same state always
// yields the same pair.
func SelectPair(e *EquivalenceIndex, g *OrderGraph) (domain.Pair, bool) {
	roots := clustersOf(e).Roots
	for i := 0; i < len(roots); i++ {
		for j := i + 1; j < len(roots); j++ {
			u, v := roots[i], roots[j]
			if !resolved(g, u, v) {
				return domain.Pair{A: u, B: v}, true
			}
		}
	}
	return domain.Pair{}, false
}

// UnresolvedPairs counts the cluster-root pairs SelectPair could still
// return. A judgment that merges clusters or adds reachability never
// increases this count, which bounds a survey by C(N,2) judgments.
func UnresolvedPairs(e *EquivalenceIndex, g *OrderGraph) int {
	roots := clustersOf(e).Roots
	count := 0
	for i := 0; i < len(roots); i++ {
		for j := i + 1; j < len(roots); j++ {
			if !resolved(g, roots[i], roots[j]) {
				count++
			}
		}
	}
	return count
}
