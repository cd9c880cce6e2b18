package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		c, err := NewCatalog([]string{"alpha", "beta", "gamma"})
		require.NoError(t, err)

		assert.Equal(t, 3, c.Len())
		assert.True(t, c.Contains(2))
		assert.False(t, c.Contains(3))
		assert.False(t, c.Contains(-1))
		assert.Equal(t, "beta", c.Name(1))
		assert.Equal(t, "", c.Name(9))

		i, ok := c.Index("gamma")
		assert.True(t, ok)
		assert.Equal(t, 2, i)

		assert.Equal(t, []Item{{0, "alpha"}, {1, "beta"}, {2, "gamma"}}, c.Items())
	})

	t.Run("names are copied", func(t *testing.T) {
		names := []string{"a", "b"}
		c, err := NewCatalog(names)
		require.NoError(t, err)

		names[0] = "z"
		assert.Equal(t, "a", c.Name(0))

		out := c.Names()
		out[1] = "z"
		assert.Equal(t, "b", c.Name(1))
	})

	t.Run("rejects empty and duplicate", func(t *testing.T) {
		_, err := NewCatalog(nil)
		assert.True(t, errors.Is(err, ErrEmptyValue))

		_, err = NewCatalog([]string{"a", ""})
		assert.True(t, errors.Is(err, ErrEmptyValue))

		_, err = NewCatalog([]string{"a", "b", "a"})
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	})
}

func TestParseOutcome(t *testing.T) {
	for _, valid := range []string{"tie", "a_before_b", "b_before_a"} {
		o, err := ParseOutcome(valid)
		require.NoError(t, err, valid)
		assert.Equal(t, valid, o.String())
	}

	for _, invalid := range []string{"", "equal", "a", "TIE"} {
		_, err := ParseOutcome(invalid)
		var inputErr *InputError
		require.True(t, errors.As(err, &inputErr), invalid)
		assert.Equal(t, "result", inputErr.Field)
		assert.True(t, errors.Is(err, ErrUnknownOutcome))
	}
}

func TestRankAssignment(t *testing.T) {
	r := RankAssignment{0: 1, 1: 1, 2: 2}

	assert.Equal(t, 2, r.Levels())
	assert.Equal(t, []int{0, 1, 2}, r.Items())

	c := r.Clone()
	c[0] = 3
	assert.Equal(t, 1, r[0])

	var empty RankAssignment
	assert.Nil(t, empty.Clone())
	assert.Zero(t, empty.Levels())
}

func TestRankAssignment_JSON(t *testing.T) {
	data, err := json.Marshal(RankAssignment{0: 1, 1: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"0":1,"1":2}`, string(data))

	var decoded RankAssignment
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, RankAssignment{0: 1, 1: 2}, decoded)
}

func TestRespondent_Finalized(t *testing.T) {
	r := Respondent{ID: "r-1", CreatedAt: time.Now()}
	assert.False(t, r.Finalized())

	r.Ranking = RankAssignment{0: 1}
	assert.True(t, r.Finalized())
}

func TestAggregateStat_JSON(t *testing.T) {
	avg := 1.5
	withData := AggregateStat{Item: 0, Name: "alpha", SumOfRanks: 3, VoteCount: 2, Average: &avg}
	noData := AggregateStat{Item: 1, Name: "beta"}

	assert.True(t, withData.HasData())
	assert.False(t, noData.HasData())

	data, err := json.Marshal(noData)
	require.NoError(t, err)
	assert.JSONEq(t, `{"item":1,"name":"beta","sum_of_ranks":0,"vote_count":0,"average":null}`, string(data))
}
