package ranking

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ballot/internal/domain"
)

func TestEquivalenceIndex_Union(t *testing.T) {
	e := NewEquivalenceIndex(4)

	require.NoError(t, e.Union(0, 1))
	require.NoError(t, e.Union(2, 1))

	root, err := e.Find(1)
	require.NoError(t, err)
	assert.Equal(t, 2, root, "find(a) becomes the parent of find(b)")
	assert.Equal(t, []int{2, 0, 2, 3}, e.Parent())
	assert.True(t, e.Same(0, 2))
	assert.False(t, e.Same(0, 3))
	assert.Equal(t, [][]int{{0, 1, 2}, {3}}, e.Partition())
}

func TestEquivalenceIndex_UnionIdempotent(t *testing.T) {
	e := NewEquivalenceIndex(3)
	require.NoError(t, e.Union(0, 1))
	before := e.Parent()

	require.NoError(t, e.Union(0, 1))
	require.NoError(t, e.Union(1, 0))

	assert.Equal(t, before, e.Parent())
}

func TestEquivalenceIndex_UnionCommutesOnPartition(t *testing.T) {
	const n = 6
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			ab := NewEquivalenceIndex(n)
			require.NoError(t, ab.Union(a, b))
			require.NoError(t, ab.Union(b, a))

			ba := NewEquivalenceIndex(n)
			require.NoError(t, ba.Union(b, a))
			require.NoError(t, ba.Union(a, b))

			assert.Equal(t, ab.Partition(), ba.Partition(), "a=%d b=%d", a, b)
		}
	}
}

func TestEquivalenceIndex_PartitionIndependentOfOrder(t *testing.T) {
	const n = 10
	ties := [][2]int{{0, 1}, {2, 3}, {1, 3}, {5, 6}, {9, 5}, {7, 8}, {4, 4}}

	reference := NewEquivalenceIndex(n)
	for _, tie := range ties {
		require.NoError(t, reference.Union(tie[0], tie[1]))
	}

	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 50; round++ {
		shuffled := append([][2]int(nil), ties...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		e := NewEquivalenceIndex(n)
		for _, tie := range shuffled {
			if rng.IntN(2) == 0 {
				require.NoError(t, e.Union(tie[0], tie[1]))
			} else {
				require.NoError(t, e.Union(tie[1], tie[0]))
			}
		}
		assert.Equal(t, reference.Partition(), e.Partition(), "round %d", round)
	}
}

func TestEquivalenceIndex_FindErrors(t *testing.T) {
	e := NewEquivalenceIndex(2)

	_, err := e.Find(2)
	var inputErr *domain.InputError
	assert.True(t, errors.As(err, &inputErr))

	_, err = e.Find(-1)
	assert.True(t, errors.Is(err, domain.ErrItemOutOfRange))

	corrupt := &EquivalenceIndex{parent: []int{1, 0}}
	_, err = corrupt.Find(0)
	assert.True(t, errors.Is(err, domain.ErrCorruptState))
}
