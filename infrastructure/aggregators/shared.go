// Package aggregators provides domain.Aggregator implementations that
// summarize many respondents' rank assignments into per-item statistics.
package aggregators

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-ballot/internal/domain"
)

// Supported aggregation methods.
const (
	// MethodMean reports the arithmetic mean rank per item.
	MethodMean = "mean"

	// MethodMedian reports the median rank per item alongside the mean.
	MethodMedian = "median"
)

// ErrUnknownMethod is returned by New for an unsupported method name.
var ErrUnknownMethod = errors.New("unknown aggregation method")

// Package-level validator instance for configuration validation.
var validate = validator.New()

// Config defines the parameters shared by every aggregator.
type Config struct {
	// Precision is the number of decimal places averages and medians are
	// rounded to. Exact halves round to the even neighbor, so 2.125 becomes
	// 2.12 and 2.625 becomes 2.62.
	Precision int `yaml:"precision" json:"precision" validate:"min=0,max=6"`
}

// DefaultConfig returns the configuration used by the survey: two decimal
// places.
func DefaultConfig() Config {
	return Config{Precision: 2}
}

// New creates the aggregator for method.
func New(method string, cfg Config) (domain.Aggregator, error) {
	switch method {
	case MethodMean:
		return NewMeanRank(cfg)
	case MethodMedian:
		return NewMedianRank(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// tally holds the from-scratch accumulation of one aggregation run.
type tally struct {
	sums   []int
	counts []int
	ranks  [][]int
}

// accumulate builds a fresh tally over rankings. keepRanks retains every
// individual rank per item for order statistics. A ranking that names an
// item outside the catalog, or a rank below 1, is a DataConsistencyError.
func accumulate(catalog domain.Catalog, rankings []domain.RankAssignment, keepRanks bool) (tally, error) {
	n := catalog.Len()
	t := tally{sums: make([]int, n), counts: make([]int, n)}
	if keepRanks {
		t.ranks = make([][]int, n)
	}

	for i, ranking := range rankings {
		for item, rank := range ranking {
			if !catalog.Contains(item) {
				return tally{}, domain.NewDataConsistencyError(nil,
					fmt.Errorf("ranking %d references item %d outside the catalog: %w", i, item, domain.ErrItemOutOfRange))
			}
			if rank < 1 {
				return tally{}, domain.NewDataConsistencyError(nil,
					fmt.Errorf("ranking %d assigns rank %d to item %d: %w", i, rank, item, domain.ErrCorruptState))
			}
			t.sums[item] += rank
			t.counts[item]++
			if keepRanks {
				t.ranks[item] = append(t.ranks[item], rank)
			}
		}
	}
	return t, nil
}

// stats converts a tally to one AggregateStat per item, in index order.
func (t tally) stats(catalog domain.Catalog, precision int) []domain.AggregateStat {
	out := make([]domain.AggregateStat, catalog.Len())
	for i := range out {
		out[i] = domain.AggregateStat{
			Item:       i,
			Name:       catalog.Name(i),
			SumOfRanks: t.sums[i],
			VoteCount:  t.counts[i],
		}
		if t.counts[i] > 0 {
			avg := round(float64(t.sums[i])/float64(t.counts[i]), precision)
			out[i].Average = &avg
		}
	}
	return out
}

// round rounds x to the given number of decimal places, ties to even.
func round(x float64, precision int) float64 {
	scale := math.Pow10(precision)
	return math.RoundToEven(x*scale) / scale
}
