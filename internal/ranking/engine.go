package ranking

import (
	"fmt"

	"github.com/ahrav/go-ballot/internal/domain"
)

// Progress describes how far a respondent's state is from completion.
type Progress struct {
	// Clusters is the current number of equivalence clusters, R.
	Clusters int `json:"clusters"`
	// Unresolved is the number of cluster pairs still undetermined.
	Unresolved int `json:"unresolved"`
	// Edges is the number of recorded precedence edges.
	Edges int `json:"edges"`
	// Complete is true when no pair remains to present.
	Complete bool `json:"complete"`
}

// Apply records one judgment against s and returns the resulting snapshot.
// All input is validated before anything is built, so a rejected judgment
// leaves no trace: s is never modified and the returned snapshot is the
// zero value.
//
// A tie merges the two items' clusters, a_before_b adds the edge a→b, and
// b_before_a adds b→a. Edges use the item indices exactly as given.
//
// Apply returns a StateError wrapping ErrNoState for a zero snapshot, and an
// InputError for an out-of-range index, an item compared with itself, or
// an unrecognized result.
func Apply(s domain.Snapshot, j domain.Judgment) (domain.Snapshot, error) {
	if s.IsZero() {
		return domain.Snapshot{}, domain.NewStateError(j.RespondentID, "apply", domain.ErrNoState)
	}
	if err := validateJudgment(s.N(), j); err != nil {
		return domain.Snapshot{}, err
	}

	e := equivalenceFromSnapshot(s)
	g := graphFromSnapshot(s)

	var err error
	switch j.Result {
	case domain.OutcomeTie:
		err = e.Union(j.ItemA, j.ItemB)
	case domain.OutcomeABeforeB:
		err = g.AddEdge(j.ItemA, j.ItemB)
	case domain.OutcomeBBeforeA:
		err = g.AddEdge(j.ItemB, j.ItemA)
	}
	if err != nil {
		return domain.Snapshot{}, err
	}

	return snapshotOf(e, g)
}

// Next returns the next pair to present for s, or false when the state is
// complete and ready for Finalize.
func Next(s domain.Snapshot) (domain.Pair, bool, error) {
	if s.IsZero() {
		return domain.Pair{}, false, domain.NewStateError("", "next", domain.ErrNoState)
	}
	pair, ok := SelectPair(equivalenceFromSnapshot(s), graphFromSnapshot(s))
	return pair, ok, nil
}

// Finalize computes the dense rank assignment for a complete state.
// See FinalizeRanks for the error contract.
func Finalize(s domain.Snapshot) (domain.RankAssignment, error) {
	if s.IsZero() {
		return nil, domain.NewStateError("", "finalize", domain.ErrNoState)
	}
	return FinalizeRanks(equivalenceFromSnapshot(s), graphFromSnapshot(s))
}

// Inspect reports the progress of s.
func Inspect(s domain.Snapshot) Progress {
	if s.IsZero() {
		return Progress{}
	}
	e := equivalenceFromSnapshot(s)
	g := graphFromSnapshot(s)
	unresolved := UnresolvedPairs(e, g)
	return Progress{
		Clusters:   len(clustersOf(e).Roots),
		Unresolved: unresolved,
		Edges:      g.EdgeCount(),
		Complete:   unresolved == 0,
	}
}

// Replay rebuilds the state of a universe of n items by applying judgments
// in order, as they appear in the append-only log. A judgment that was
// rejected when it was first submitted is rejected again here, so replay
// stops at the first invalid entry and reports its position.
func Replay(n int, judgments []domain.Judgment) (domain.Snapshot, error) {
	s := domain.NewSnapshot(n)
	for i, j := range judgments {
		next, err := Apply(s, j)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("replay judgment %d: %w", i, err)
		}
		s = next
	}
	return s, nil
}

func validateJudgment(n int, j domain.Judgment) error {
	if j.ItemA < 0 || j.ItemA >= n {
		return domain.NewInputError("item_a", j.ItemA, domain.ErrItemOutOfRange)
	}
	if j.ItemB < 0 || j.ItemB >= n {
		return domain.NewInputError("item_b", j.ItemB, domain.ErrItemOutOfRange)
	}
	if j.ItemA == j.ItemB {
		return domain.NewInputError("item_b", j.ItemB, domain.ErrSameItem)
	}
	if !j.Result.Valid() {
		return domain.NewInputError("result", j.Result, domain.ErrUnknownOutcome)
	}
	return nil
}

func snapshotOf(e *EquivalenceIndex, g *OrderGraph) (domain.Snapshot, error) {
	return domain.RestoreSnapshot(e.Parent(), g.Adjacency())
}
