package aggregators

import (
	"fmt"
	"slices"

	"github.com/ahrav/go-ballot/internal/domain"
)

var _ domain.Aggregator = (*MedianRank)(nil)

// MedianRank reports everything MeanRank does plus the median rank of each
// item. The median is less sensitive than the mean to a few respondents
// placing an item at an extreme.
//
// Concurrency: the aggregator is stateless and safe for concurrent use.
type MedianRank struct {
	config Config
}

// NewMedianRank creates a MedianRank aggregator.
// It returns an error if the configuration is invalid.
func NewMedianRank(config Config) (*MedianRank, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &MedianRank{config: config}, nil
}

// Method returns "median".
func (m *MedianRank) Method() string { return MethodMedian }

// Aggregate implements the domain.Aggregator interface.
func (m *MedianRank) Aggregate(catalog domain.Catalog, rankings []domain.RankAssignment) ([]domain.AggregateStat, error) {
	t, err := accumulate(catalog, rankings, true)
	if err != nil {
		return nil, err
	}

	out := t.stats(catalog, m.config.Precision)
	for i := range out {
		if len(t.ranks[i]) == 0 {
			continue
		}
		med := round(median(t.ranks[i]), m.config.Precision)
		out[i].Median = &med
	}
	return out, nil
}

// median computes the statistical median of ranks:
//   - Odd count: the middle value after sorting
//   - Even count: the mean of the two middle values
//
// The input slice is sorted in place.
func median(ranks []int) float64 {
	slices.Sort(ranks)
	n := len(ranks)
	if n%2 == 1 {
		return float64(ranks[n/2])
	}
	return float64(ranks[n/2-1]+ranks[n/2]) / 2
}
