package visits

import (
	"testing"

	"github.com/gridmind/deepq/internal/state"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	var g state.Grid
	g[3][3] = 1
	g[3][4] = 2
	first := Fingerprint(&g)
	require.Equal(t, first, Fingerprint(&g))

	sameContent := g
	require.Equal(t, first, Fingerprint(&sameContent))

	g[0][0] = 1
	require.NotEqual(t, first, Fingerprint(&g))
}

func TestFingerprintKnownDigests(t *testing.T) {
	// MD5 digests of the canonical serializations, computed externally.
	var zeros state.Grid
	require.Equal(t, "10eab6008d5642cf42abd2aa41f847cb", Fingerprint(&zeros))

	var corner state.Grid
	corner[0][0] = 1
	require.Equal(t, "e0fd0c91c80cdc69fcb5ade5d1f4e75e", Fingerprint(&corner))
}

func TestBucketOf(t *testing.T) {
	// First half of the digest mod 10 gives the row, second half the column.
	row, col := bucketOf("10eab6008d5642cf42abd2aa41f847cb")
	require.Equal(t, 7, row)
	require.Equal(t, 9, col)

	row, col = bucketOf("e0fd0c91c80cdc69fcb5ade5d1f4e75e")
	require.Equal(t, 1, row)
	require.Equal(t, 8, col)

	// An odd-length fingerprint gives the extra leading character to the
	// first half: "abc" splits as "ab"/"c".
	row, col = bucketOf("abc")
	require.Equal(t, int(0xab%10), row)
	require.Equal(t, int(0xc%10), col)
}

func TestBucketCoordinatesAddressableRange(t *testing.T) {
	// Whatever the state, buckets stay inside the addressable 10x10 region of
	// the allocated grid.
	var g state.Grid
	for ii := range 200 {
		g.Set(ii%state.NumCells, state.Cell(ii%3))
		row, col := bucketOf(Fingerprint(&g))
		require.GreaterOrEqual(t, row, 0)
		require.Less(t, row, BucketMod)
		require.GreaterOrEqual(t, col, 0)
		require.Less(t, col, BucketMod)
	}
}

func TestCounter(t *testing.T) {
	c := NewCounter()
	var g state.Grid
	g[1][1] = 1

	require.Equal(t, 0, c.Count(&g))

	for k := 1; k <= 5; k++ {
		c.Record(&g)
		require.Equal(t, k, c.Count(&g))
	}

	// Count never mutates.
	require.Equal(t, 5, c.Count(&g))
	require.Equal(t, 5, c.Count(&g))

	// An unrelated state is unaffected.
	var other state.Grid
	other[2][2] = 2
	require.Equal(t, 0, c.Count(&other))
	c.Record(&other)
	require.Equal(t, 1, c.Count(&other))
	require.Equal(t, 5, c.Count(&g))
}
