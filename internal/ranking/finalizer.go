package ranking

import "github.com/ahrav/go-ballot/internal/domain"

// FinalizeRanks computes the dense rank assignment for a completed state.
//
// Only cluster roots take part. The indegree of each root counts edges whose
// source and target are both current roots; an edge recorded before a later
// tie may name an item that is no longer a root and is then ignored. Roots
// are ordered with Kahn's algorithm, seeding the FIFO queue with zero
// indegree roots in root-list order and visiting successors in ascending
// order, and every member of the cluster at position p receives rank p+1.
//
// FinalizeRanks returns:
//   - a StateError wrapping ErrRankingIncomplete if an undetermined pair
//     of clusters remains
//   - a DataConsistencyError wrapping ErrPrecedenceCycle if some roots never
//     reach zero indegree
//   - a DataConsistencyError wrapping ErrUnrankedItems if, after ordering,
//     any item still lacks a rank
func FinalizeRanks(e *EquivalenceIndex, g *OrderGraph) (domain.RankAssignment, error) {
	if _, pending := SelectPair(e, g); pending {
		return nil, domain.NewStateError("", "finalize", domain.ErrRankingIncomplete)
	}

	c := clustersOf(e)

	indegree := make(map[int]int, len(c.Roots))
	for _, root := range c.Roots {
		indegree[root] = 0
	}
	for _, u := range c.Roots {
		for _, v := range g.Successors(u) {
			if _, isRoot := indegree[v]; isRoot {
				indegree[v]++
			}
		}
	}

	// Seed with every root that has no incoming edges.
	queue := make([]int, 0, len(c.Roots))
	for _, root := range c.Roots {
		if indegree[root] == 0 {
			queue = append(queue, root)
		}
	}

	order := make([]int, 0, len(c.Roots))
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, u)

		for _, v := range g.Successors(u) {
			if _, isRoot := indegree[v]; !isRoot {
				continue
			}
			indegree[v]--
			if indegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	ranks := make(domain.RankAssignment, e.Len())
	for pos, root := range order {
		for _, item := range c.Members[root] {
			ranks[item] = pos + 1
		}
	}

	if len(order) != len(c.Roots) {
		return nil, domain.NewDataConsistencyError(unranked(ranks, e.Len()), domain.ErrPrecedenceCycle)
	}
	if len(ranks) != e.Len() {
		return nil, domain.NewDataConsistencyError(unranked(ranks, e.Len()), domain.ErrUnrankedItems)
	}
	return ranks, nil
}

// unranked lists the items of 0…n-1 missing from ranks, ascending.
func unranked(ranks domain.RankAssignment, n int) []int {
	var missing []int
	for i := 0; i < n; i++ {
		if _, ok := ranks[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}
