// Package ranking implements the pairwise ranking engine: an equivalence
// index for ties, a precedence graph for strict judgments, the selector that
// picks the next undetermined pair of clusters, and the finalizer that turns
// a completed state into a dense rank assignment.
//
// Every exported operation is a pure function over an immutable
// domain.Snapshot. Nothing is held between calls, so callers round-trip the
// snapshot through whatever session transport they use and may process
// independent respondents in parallel without coordination.
package ranking
