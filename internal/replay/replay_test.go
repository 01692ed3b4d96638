package replay

import (
	"testing"

	"github.com/gridmind/deepq/internal/state"
	"github.com/stretchr/testify/require"
)

// numberedTransition tags the transition's Action with a sequence number so
// tests can track identity through sampling and eviction.
func numberedTransition(n int) Transition {
	var g state.Grid
	g.Set(n%state.NumCells, 1)
	return Transition{State: g, Action: n, ValidActions: []int{0, 1}}
}

func TestInsertEvictionOffByOne(t *testing.T) {
	const maxSize = 10
	b := New(maxSize)
	for n := range maxSize + 5 {
		b.Insert(numberedTransition(n))
	}
	// Eviction triggers only strictly above the maximum, so the buffer
	// stabilizes at max+1 entries.
	require.Equal(t, maxSize+1, b.Len())

	// Oldest entries were evicted first: 0..3 are gone, 4..14 remain.
	remaining := b.Drain()
	require.Len(t, remaining, maxSize+1)
	for ii, tr := range remaining {
		require.Equal(t, 4+ii, tr.Action)
	}
}

func TestInsertClonesValidActions(t *testing.T) {
	b := New(10)
	valid := []int{1, 2, 3}
	b.Insert(Transition{ValidActions: valid})
	valid[0] = 99
	got := b.Drain()
	require.Equal(t, []int{1, 2, 3}, got[0].ValidActions)
}

func TestSampleAndConsumeInsufficientData(t *testing.T) {
	b := New(100)
	for n := range 7 {
		b.Insert(numberedTransition(n))
	}
	require.Nil(t, b.SampleAndConsume(8))
	// No mutation on the no-op path.
	require.Equal(t, 7, b.Len())
}

func TestSampleAndConsume(t *testing.T) {
	const total, batchSize = 50, 16
	b := New(100)
	for n := range total {
		b.Insert(numberedTransition(n))
	}

	batch := b.SampleAndConsume(batchSize)
	require.Len(t, batch, batchSize)
	require.Equal(t, total-batchSize, b.Len())

	// Sampled entries are distinct and they are really gone from the buffer.
	seen := make(map[int]bool)
	for _, tr := range batch {
		require.False(t, seen[tr.Action])
		seen[tr.Action] = true
	}
	for _, tr := range b.Drain() {
		require.False(t, seen[tr.Action])
	}
}

func TestSampleAndConsumeExactSize(t *testing.T) {
	b := New(100)
	for n := range 4 {
		b.Insert(numberedTransition(n))
	}
	batch := b.SampleAndConsume(4)
	require.Len(t, batch, 4)
	require.Equal(t, 0, b.Len())
}

func TestDrain(t *testing.T) {
	b := New(100)
	for n := range 5 {
		b.Insert(numberedTransition(n))
	}
	drained := b.Drain()
	require.Len(t, drained, 5)
	require.Equal(t, 0, b.Len())
	// Insertion order preserved.
	for ii, tr := range drained {
		require.Equal(t, ii, tr.Action)
	}

	require.Empty(t, b.Drain())
	// The buffer stays usable after draining.
	b.Insert(numberedTransition(42))
	require.Equal(t, 1, b.Len())
}
