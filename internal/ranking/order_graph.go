package ranking

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ahrav/go-ballot/internal/domain"
)

// OrderGraph is the directed "precedes" relation over raw item indices.
// An edge (a, b) means a was judged to precede b. Edges are keyed to the
// items named in the judgment, never to their cluster roots, and are never
// removed. The graph has no protection against cycles; intransitive
// judgments are detected later by the finalizer.
type OrderGraph struct {
	// adj[i] holds the direct successors of item i.
	adj []*roaring.Bitmap
}

// NewOrderGraph creates an empty graph over n items.
func NewOrderGraph(n int) *OrderGraph {
	adj := make([]*roaring.Bitmap, n)
	for i := range adj {
		adj[i] = roaring.New()
	}
	return &OrderGraph{adj: adj}
}

// graphFromSnapshot builds a working graph from the snapshot's adjacency
// lists. Restored snapshots have already range-checked every edge.
func graphFromSnapshot(s domain.Snapshot) *OrderGraph {
	adjacency := s.Adjacency()
	g := NewOrderGraph(len(adjacency))
	for from, targets := range adjacency {
		for _, to := range targets {
			g.adj[from].Add(uint32(to))
		}
	}
	return g
}

// Len returns the number of items the graph covers.
func (g *OrderGraph) Len() int { return len(g.adj) }

// AddEdge records that a precedes b. Adding an existing edge is a no-op.
func (g *OrderGraph) AddEdge(a, b int) error {
	if err := g.checkRange("item_a", a); err != nil {
		return err
	}
	if err := g.checkRange("item_b", b); err != nil {
		return err
	}
	g.adj[a].Add(uint32(b))
	return nil
}

// HasPath reports whether b is reachable from a through zero or more edges.
// An item always reaches itself. The search is an iterative depth-first
// walk that visits each item at most once, so a query costs O(N + E).
func (g *OrderGraph) HasPath(a, b int) bool {
	if a < 0 || a >= len(g.adj) || b < 0 || b >= len(g.adj) {
		return false
	}
	if a == b {
		return true
	}

	visited := roaring.New()
	visited.Add(uint32(a))
	stack := []uint32{uint32(a)}

	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		it := g.adj[u].Iterator()
		for it.HasNext() {
			v := it.Next()
			if int(v) == b {
				return true
			}
			if visited.CheckedAdd(v) {
				stack = append(stack, v)
			}
		}
	}
	return false
}

// Successors returns the direct successors of a in ascending order.
func (g *OrderGraph) Successors(a int) []int {
	if a < 0 || a >= len(g.adj) {
		return nil
	}
	return toInts(g.adj[a].ToArray())
}

// EdgeCount returns the number of distinct edges.
func (g *OrderGraph) EdgeCount() int {
	total := 0
	for _, bm := range g.adj {
		total += int(bm.GetCardinality())
	}
	return total
}

// Adjacency returns the graph as ascending, duplicate-free successor
// lists, the shape a domain.Snapshot stores.
func (g *OrderGraph) Adjacency() [][]int {
	out := make([][]int, len(g.adj))
	for i, bm := range g.adj {
		out[i] = toInts(bm.ToArray())
	}
	return out
}

func (g *OrderGraph) checkRange(field string, x int) error {
	if x < 0 || x >= len(g.adj) {
		return domain.NewInputError(field, x, domain.ErrItemOutOfRange)
	}
	return nil
}

func toInts(values []uint32) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
