package domain

// Aggregator defines the interface for combining many respondents'
// finalized rank assignments into per-item summary statistics.
// Implementations provide different summary strategies such as the mean
// rank or the median rank.
type Aggregator interface {
	// Aggregate computes one AggregateStat per catalog item, in index order.
	// It must start from zeroed accumulators on every call and must not
	// retain or mutate its inputs, so repeated calls over the same rankings
	// return identical results.
	//
	// Returns:
	//   - []AggregateStat: one entry per item; items without votes have
	//     VoteCount 0 and a nil Average
	//   - error: a DataConsistencyError if a ranking references an item
	//     outside the catalog
	//
	// An empty rankings slice is not an error.
	//
	// Example:
	//
	//	stats, err := aggregator.Aggregate(catalog, []RankAssignment{{0: 1, 1: 2}, {0: 2, 1: 1}})
	//	// stats[0].Average == 1.5, stats[0].VoteCount == 2
	Aggregate(catalog Catalog, rankings []RankAssignment) ([]AggregateStat, error)

	// Method names the strategy (e.g. "mean", "median").
	Method() string
}
