package aggregators

import (
	"fmt"

	"github.com/ahrav/go-ballot/internal/domain"
)

var _ domain.Aggregator = (*MeanRank)(nil)

// MeanRank reports, for every item, the sum of its ranks, the number of
// rankings it appeared in, and their mean rounded to the configured
// precision. Items nobody ranked report no average.
//
// The aggregator is stateless and safe for concurrent use.
type MeanRank struct {
	config Config
}

// NewMeanRank creates a MeanRank aggregator.
// It returns an error if the configuration is invalid.
func NewMeanRank(config Config) (*MeanRank, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &MeanRank{config: config}, nil
}

// Method returns "mean".
func (m *MeanRank) Method() string { return MethodMean }

// Aggregate implements the domain.Aggregator interface.
func (m *MeanRank) Aggregate(catalog domain.Catalog, rankings []domain.RankAssignment) ([]domain.AggregateStat, error) {
	t, err := accumulate(catalog, rankings, false)
	if err != nil {
		return nil, err
	}
	return t.stats(catalog, m.config.Precision), nil
}
