package domain

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	s := NewSnapshot(4)

	assert.Equal(t, 4, s.N())
	assert.False(t, s.IsZero())
	assert.Equal(t, []int{0, 1, 2, 3}, s.Parent())
	assert.Equal(t, [][]int{{}, {}, {}, {}}, s.Adjacency())
	assert.Zero(t, s.EdgeCount())
}

func TestSnapshot_ZeroValue(t *testing.T) {
	var s Snapshot
	assert.True(t, s.IsZero())
	assert.Equal(t, 0, s.N())
}

func TestRestoreSnapshot(t *testing.T) {
	tests := []struct {
		name      string
		parent    []int
		adjacency [][]int
		wantErr   bool
		verify    func(t *testing.T, s Snapshot)
	}{
		{
			name:      "valid forest",
			parent:    []int{0, 0, 2},
			adjacency: [][]int{{2}, {}, {}},
			verify: func(t *testing.T, s Snapshot) {
				assert.Equal(t, []int{0, 0, 2}, s.Parent())
				assert.Equal(t, 1, s.EdgeCount())
			},
		},
		{
			name:      "adjacency normalized",
			parent:    []int{0, 1, 2},
			adjacency: [][]int{{2, 1, 2}, nil, {}},
			verify: func(t *testing.T, s Snapshot) {
				assert.Equal(t, [][]int{{1, 2}, {}, {}}, s.Adjacency())
			},
		},
		{
			name:      "length mismatch",
			parent:    []int{0, 1},
			adjacency: [][]int{{}},
			wantErr:   true,
		},
		{
			name:      "parent out of range",
			parent:    []int{0, 5},
			adjacency: [][]int{{}, {}},
			wantErr:   true,
		},
		{
			name:      "parent cycle",
			parent:    []int{1, 0},
			adjacency: [][]int{{}, {}},
			wantErr:   true,
		},
		{
			name:      "edge out of range",
			parent:    []int{0, 1},
			adjacency: [][]int{{7}, {}},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := RestoreSnapshot(tt.parent, tt.adjacency)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrCorruptState))
				return
			}
			require.NoError(t, err)
			tt.verify(t, s)
		})
	}
}

func TestSnapshot_Immutability(t *testing.T) {
	parent := []int{0, 0, 2}
	adjacency := [][]int{{2}, {}, {}}
	s, err := RestoreSnapshot(parent, adjacency)
	require.NoError(t, err)

	// Mutating the inputs must not leak into the snapshot.
	parent[1] = 1
	adjacency[0][0] = 1

	// Mutating returned copies must not leak either.
	got := s.Parent()
	got[2] = 0
	adj := s.Adjacency()
	adj[0] = append(adj[0], 1)

	assert.Equal(t, []int{0, 0, 2}, s.Parent())
	assert.Equal(t, [][]int{{2}, {}, {}}, s.Adjacency())
}

func TestSnapshot_Equal(t *testing.T) {
	a, err := RestoreSnapshot([]int{0, 0}, [][]int{{}, {}})
	require.NoError(t, err)
	b, err := RestoreSnapshot([]int{0, 0}, [][]int{{}, {}})
	require.NoError(t, err)
	c, err := RestoreSnapshot([]int{0, 1}, [][]int{{1}, {}})
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestSnapshot_ConcurrentReads(t *testing.T) {
	s, err := RestoreSnapshot([]int{0, 0, 2, 2}, [][]int{{2}, {}, {}, {0}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, 4, len(s.Parent()))
				assert.Equal(t, 2, s.EdgeCount())
			}
		}()
	}
	wg.Wait()
}
