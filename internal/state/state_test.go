package state

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	var g Grid
	require.Equal(t, strings.Repeat("0", NumCells), g.Canonical())

	g[0][0] = 1
	g[7][7] = 2
	want := "1" + strings.Repeat("0", 62) + "2"
	require.Equal(t, want, g.Canonical())

	// Content-identical grids serialize identically.
	g2 := g
	require.Equal(t, g.Canonical(), g2.Canonical())

	// Negative cells render with their sign, so distinct contents can't
	// collide on the serialization.
	g[0][1] = -1
	require.Equal(t, "1-1", g.Canonical()[:3])
}

func TestFlatIndexing(t *testing.T) {
	var g Grid
	g.Set(8+3, 5) // row 1, col 3
	require.Equal(t, Cell(5), g[1][3])
	require.Equal(t, Cell(5), g.At(11))
	require.Equal(t, Cell(0), g.At(12))
}

func TestGridIsValueType(t *testing.T) {
	var g Grid
	g[2][2] = 1
	snapshot := g
	g[2][2] = 2
	require.Equal(t, Cell(1), snapshot[2][2])
}
