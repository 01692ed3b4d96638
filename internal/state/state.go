// Package state defines the board representation shared by the learner, the
// visit counter and the game environments.
//
// A Grid is a plain value type: assigning it copies the full board, which is
// what the replay buffer relies on to take ownership of inserted states.
package state

import (
	"strconv"
	"strings"
)

const (
	// Size of the board on each dimension.
	Size = 8

	// NumCells of the board.
	NumCells = Size * Size
)

// Cell holds the contents of one board position. The zero value is an empty
// cell; the remaining values are game specific (player marks).
type Cell = int8

// Grid is an 8x8 board configuration, indexed [row][col].
type Grid [Size][Size]Cell

// Canonical returns the canonical textual serialization of the grid: every
// cell rendered in row-major order, with no separators. Two grids with the
// same contents always serialize identically, so the string can be used as a
// content-derived identity.
func (g *Grid) Canonical() string {
	var sb strings.Builder
	sb.Grow(NumCells)
	for row := range Size {
		for col := range Size {
			sb.WriteString(strconv.Itoa(int(g[row][col])))
		}
	}
	return sb.String()
}

// At returns the cell at the given flat index (row-major).
func (g *Grid) At(idx int) Cell {
	return g[idx/Size][idx%Size]
}

// Set sets the cell at the given flat index (row-major).
func (g *Grid) Set(idx int, c Cell) {
	g[idx/Size][idx%Size] = c
}

// String implements fmt.Stringer, one board row per line.
func (g *Grid) String() string {
	var sb strings.Builder
	for row := range Size {
		for col := range Size {
			sb.WriteString(strconv.Itoa(int(g[row][col])))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
