// Package reversi implements a minimal 8x8 Reversi environment for the
// trainer: legal-move generation, disc flipping, terminal detection and
// rewards. Actions are flat board indices (row*8+col), giving the 64-action
// space the Q-network predicts over.
package reversi

import (
	"github.com/gomlx/exceptions"
	"github.com/gridmind/deepq/internal/state"
)

// Player marks: cell value 0 is empty.
const (
	NoPlayer state.Cell = 0
	PlayerA  state.Cell = 1
	PlayerB  state.Cell = 2
)

// ActionSize is the size of the flat action space.
const ActionSize = state.NumCells

// WinReward is the terminal reward of the winning player; the loser receives
// -WinReward and a draw rewards 0.
const WinReward = float32(100)

var directions = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Game is one Reversi match in progress.
type Game struct {
	// Board is the current position.
	Board state.Grid

	// Turn is the player to move, PlayerA or PlayerB.
	Turn state.Cell
}

// New returns a game at the standard starting position, PlayerA to move.
func New() *Game {
	g := &Game{Turn: PlayerA}
	g.Board[3][3] = PlayerA
	g.Board[3][4] = PlayerB
	g.Board[4][3] = PlayerB
	g.Board[4][4] = PlayerA
	return g
}

// Opponent of p.
func Opponent(p state.Cell) state.Cell {
	if p == PlayerA {
		return PlayerB
	}
	return PlayerA
}

// TurnValue returns the turn side-channel value fed to the network.
func (g *Game) TurnValue() float32 {
	return float32(g.Turn)
}

// flipsFrom returns the flat indices of the opponent discs flipped by p
// playing at (row, col), or nil if the placement flips nothing.
func flipsFrom(board *state.Grid, row, col int, p state.Cell) []int {
	if board[row][col] != NoPlayer {
		return nil
	}
	opp := Opponent(p)
	var flips []int
	for _, dir := range directions {
		r, c := row+dir[0], col+dir[1]
		runStart := len(flips)
		for r >= 0 && r < state.Size && c >= 0 && c < state.Size && board[r][c] == opp {
			flips = append(flips, r*state.Size+c)
			r, c = r+dir[0], c+dir[1]
		}
		// The run only counts when terminated by one of p's own discs.
		if r < 0 || r >= state.Size || c < 0 || c >= state.Size || board[r][c] != p {
			flips = flips[:runStart]
		}
	}
	return flips
}

// validMovesFor returns the flat indices p can play on the given board.
func validMovesFor(board *state.Grid, p state.Cell) []int {
	var moves []int
	for row := range state.Size {
		for col := range state.Size {
			if len(flipsFrom(board, row, col, p)) > 0 {
				moves = append(moves, row*state.Size+col)
			}
		}
	}
	return moves
}

// ValidMoves returns the legal actions of the player to move.
func (g *Game) ValidMoves() []int {
	return validMovesFor(&g.Board, g.Turn)
}

// apply places p's disc at action on board and flips the captured discs.
func apply(board *state.Grid, action int, p state.Cell) {
	flips := flipsFrom(board, action/state.Size, action%state.Size, p)
	if len(flips) == 0 {
		exceptions.Panicf("reversi: illegal action %d for player %d", action, p)
	}
	board.Set(action, p)
	for _, idx := range flips {
		board.Set(idx, p)
	}
}

// SimulateNextState returns the board after the player to move plays action,
// without mutating the game. It implements agent.Environment.
func (g *Game) SimulateNextState(action int) state.Grid {
	next := g.Board
	apply(&next, action, g.Turn)
	return next
}

// Apply plays action for the player to move and advances the turn. A player
// with no legal reply passes: the turn returns to the mover.
func (g *Game) Apply(action int) {
	apply(&g.Board, action, g.Turn)
	g.Turn = Opponent(g.Turn)
	if len(validMovesFor(&g.Board, g.Turn)) == 0 && len(validMovesFor(&g.Board, Opponent(g.Turn))) > 0 {
		g.Turn = Opponent(g.Turn)
	}
}

// IsOver reports whether neither player has a legal move left.
func (g *Game) IsOver() bool {
	return len(validMovesFor(&g.Board, PlayerA)) == 0 && len(validMovesFor(&g.Board, PlayerB)) == 0
}

// Winner returns the player with more discs, or NoPlayer on a draw.
func (g *Game) Winner() state.Cell {
	a, b := g.Discs()
	switch {
	case a > b:
		return PlayerA
	case b > a:
		return PlayerB
	}
	return NoPlayer
}

// Reward returns p's terminal reward: +-WinReward for a decided game, 0 for a
// draw or a game still in progress.
func (g *Game) Reward(p state.Cell) float32 {
	if !g.IsOver() {
		return 0
	}
	switch g.Winner() {
	case p:
		return WinReward
	case NoPlayer:
		return 0
	}
	return -WinReward
}

// Discs returns the number of discs each player has on the board.
func (g *Game) Discs() (a, b int) {
	for idx := range state.NumCells {
		switch g.Board.At(idx) {
		case PlayerA:
			a++
		case PlayerB:
			b++
		}
	}
	return
}
