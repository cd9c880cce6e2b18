// Package domain contains pure, dependency-free domain models and types
// for the ranking engine.
package domain

import (
	"fmt"
	"slices"
)

// SnapshotVersion is the version of the EngineState schema produced by this
// package. Collaborators that serialize a Snapshot record it alongside the
// arrays so a future schema change can be detected on restore.
const SnapshotVersion = 1

// Snapshot is the immutable per-respondent engine state: the union-find
// parent array and the precedence adjacency sets over N items. The engine
// is fully reconstructable from these two arrays; nothing else is hidden.
//
// Snapshot uses copy-on-write semantics. Accessors return copies, and the
// engine never modifies a Snapshot in place, so a value can be shared
// across goroutines safely.
type Snapshot struct {
	// parent[i] is the parent of item i in the equivalence forest.
	parent []int
	// adjacency[i] is the ascending, duplicate-free list of items that
	// item i was judged to precede.
	adjacency [][]int
}

// NewSnapshot creates the initial state for a universe of n items: every
// item is its own cluster and no precedence edges exist.
func NewSnapshot(n int) Snapshot {
	parent := make([]int, n)
	adjacency := make([][]int, n)
	for i := range parent {
		parent[i] = i
		adjacency[i] = []int{}
	}
	return Snapshot{parent: parent, adjacency: adjacency}
}

// RestoreSnapshot rebuilds a Snapshot from its two serialized arrays. It
// verifies that the arrays agree on N, that every index is in range, and
// that the parent array forms a forest (every chain reaches a self-parented
// root within N steps). Adjacency lists are normalized to ascending order
// without duplicates. Invalid input yields an error wrapping ErrCorruptState.
func RestoreSnapshot(parent []int, adjacency [][]int) (Snapshot, error) {
	n := len(parent)
	if len(adjacency) != n {
		return Snapshot{}, fmt.Errorf("%w: parent has %d entries, adjacency has %d", ErrCorruptState, n, len(adjacency))
	}

	for i, p := range parent {
		if p < 0 || p >= n {
			return Snapshot{}, fmt.Errorf("%w: parent[%d]=%d out of range", ErrCorruptState, i, p)
		}
	}

	for i := range parent {
		x, steps := i, 0
		for parent[x] != x {
			x = parent[x]
			steps++
			if steps > n {
				return Snapshot{}, fmt.Errorf("%w: parent chain from %d does not reach a root", ErrCorruptState, i)
			}
		}
	}

	normalized := make([][]int, n)
	for i, targets := range adjacency {
		list := slices.Clone(targets)
		for _, t := range list {
			if t < 0 || t >= n {
				return Snapshot{}, fmt.Errorf("%w: edge %d->%d out of range", ErrCorruptState, i, t)
			}
		}
		slices.Sort(list)
		normalized[i] = slices.Compact(list)
		if normalized[i] == nil {
			normalized[i] = []int{}
		}
	}

	return Snapshot{parent: slices.Clone(parent), adjacency: normalized}, nil
}

// N returns the number of items the snapshot covers.
func (s Snapshot) N() int { return len(s.parent) }

// IsZero reports whether s is the zero Snapshot (no state at all).
func (s Snapshot) IsZero() bool { return s.parent == nil }

// Parent returns a copy of the parent array.
func (s Snapshot) Parent() []int { return slices.Clone(s.parent) }

// Adjacency returns a deep copy of the adjacency lists.
func (s Snapshot) Adjacency() [][]int {
	out := make([][]int, len(s.adjacency))
	for i, targets := range s.adjacency {
		out[i] = slices.Clone(targets)
	}
	return out
}

// EdgeCount returns the number of recorded precedence edges.
func (s Snapshot) EdgeCount() int {
	total := 0
	for _, targets := range s.adjacency {
		total += len(targets)
	}
	return total
}

// Equal reports whether two snapshots hold identical arrays.
func (s Snapshot) Equal(other Snapshot) bool {
	if !slices.Equal(s.parent, other.parent) || len(s.adjacency) != len(other.adjacency) {
		return false
	}
	for i := range s.adjacency {
		if !slices.Equal(s.adjacency[i], other.adjacency[i]) {
			return false
		}
	}
	return true
}

// String returns a string representation of the Snapshot for debugging purposes.
func (s Snapshot) String() string {
	return fmt.Sprintf("Snapshot{parent:%v adjacency:%v}", s.parent, s.adjacency)
}
