package aggregators

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ballot/internal/domain"
)

func mustCatalog(t *testing.T, names ...string) domain.Catalog {
	t.Helper()
	c, err := domain.NewCatalog(names)
	require.NoError(t, err)
	return c
}

func ptr(f float64) *float64 { return &f }

func TestMeanRank_TwoRespondents(t *testing.T) {
	agg, err := NewMeanRank(DefaultConfig())
	require.NoError(t, err)

	stats, err := agg.Aggregate(mustCatalog(t, "a", "b"), []domain.RankAssignment{
		{0: 1, 1: 2},
		{0: 2, 1: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.AggregateStat{
		{Item: 0, Name: "a", SumOfRanks: 3, VoteCount: 2, Average: ptr(1.5)},
		{Item: 1, Name: "b", SumOfRanks: 3, VoteCount: 2, Average: ptr(1.5)},
	}, stats)
}

func TestMeanRank_NoData(t *testing.T) {
	agg, err := NewMeanRank(DefaultConfig())
	require.NoError(t, err)

	stats, err := agg.Aggregate(mustCatalog(t, "a", "b", "c"), nil)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	for _, s := range stats {
		assert.False(t, s.HasData())
		assert.Nil(t, s.Average)
		assert.Zero(t, s.SumOfRanks)
	}
}

func TestMeanRank_Rounding(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		rankings  []domain.RankAssignment
		want      float64
	}{
		{"thirds", 2, []domain.RankAssignment{{0: 1}, {0: 1}, {0: 2}}, 1.33},
		{"two thirds", 2, []domain.RankAssignment{{0: 2}, {0: 2}, {0: 1}}, 1.67},
		{"half to even rounds up at zero places", 0, []domain.RankAssignment{{0: 1}, {0: 2}}, 2},
		{"half to even rounds down at zero places", 0, []domain.RankAssignment{{0: 2}, {0: 3}}, 2},
		{"seventeen eighths", 2, []domain.RankAssignment{{0: 3}, {0: 2}, {0: 2}, {0: 2}, {0: 2}, {0: 2}, {0: 2}, {0: 2}}, 2.12},
		{"twenty-one eighths", 2, []domain.RankAssignment{{0: 3}, {0: 3}, {0: 3}, {0: 3}, {0: 3}, {0: 2}, {0: 2}, {0: 2}}, 2.62},
		{"exact", 2, []domain.RankAssignment{{0: 3}, {0: 1}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, err := NewMeanRank(Config{Precision: tt.precision})
			require.NoError(t, err)

			stats, err := agg.Aggregate(mustCatalog(t, "a"), tt.rankings)
			require.NoError(t, err)
			require.NotNil(t, stats[0].Average)
			assert.Equal(t, tt.want, *stats[0].Average)
		})
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	catalog := mustCatalog(t, "a", "b", "c")
	rankings := []domain.RankAssignment{
		{0: 1, 1: 1, 2: 2},
		{0: 3, 1: 2, 2: 1},
		{0: 2, 1: 1, 2: 3},
	}

	for _, method := range []string{MethodMean, MethodMedian} {
		t.Run(method, func(t *testing.T) {
			agg, err := New(method, DefaultConfig())
			require.NoError(t, err)
			assert.Equal(t, method, agg.Method())

			first, err := agg.Aggregate(catalog, rankings)
			require.NoError(t, err)
			second, err := agg.Aggregate(catalog, rankings)
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.Equal(t, domain.RankAssignment{0: 1, 1: 1, 2: 2}, rankings[0], "inputs are not mutated")
		})
	}
}

func TestAggregate_ItemOutsideCatalog(t *testing.T) {
	agg, err := NewMeanRank(DefaultConfig())
	require.NoError(t, err)

	_, err = agg.Aggregate(mustCatalog(t, "a"), []domain.RankAssignment{{0: 1, 4: 2}})

	var dce *domain.DataConsistencyError
	require.True(t, errors.As(err, &dce))
	assert.True(t, errors.Is(err, domain.ErrItemOutOfRange))
}

func TestAggregate_InvalidRank(t *testing.T) {
	agg, err := NewMedianRank(DefaultConfig())
	require.NoError(t, err)

	_, err = agg.Aggregate(mustCatalog(t, "a"), []domain.RankAssignment{{0: 0}})
	assert.True(t, errors.Is(err, domain.ErrCorruptState))
}

func TestMedianRank(t *testing.T) {
	agg, err := NewMedianRank(DefaultConfig())
	require.NoError(t, err)

	stats, err := agg.Aggregate(mustCatalog(t, "a", "b", "c"), []domain.RankAssignment{
		{0: 1, 1: 2},
		{0: 4, 1: 2},
		{0: 2, 1: 1},
		{0: 1},
	})
	require.NoError(t, err)

	require.NotNil(t, stats[0].Median)
	assert.Equal(t, 1.5, *stats[0].Median, "even count averages the middle pair")
	assert.Equal(t, 2.0, *stats[0].Average)

	require.NotNil(t, stats[1].Median)
	assert.Equal(t, 2.0, *stats[1].Median)
	assert.Equal(t, 1.67, *stats[1].Average)

	assert.Nil(t, stats[2].Median)
	assert.Nil(t, stats[2].Average)
}

func TestNew_Errors(t *testing.T) {
	_, err := New("mode", DefaultConfig())
	assert.True(t, errors.Is(err, ErrUnknownMethod))

	_, err = New(MethodMean, Config{Precision: 9})
	assert.Error(t, err)

	_, err = NewMedianRank(Config{Precision: -1})
	assert.Error(t, err)
}
