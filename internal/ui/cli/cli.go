// Package cli implements the terminal board printer used by the trainer when
// step printing is enabled.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gridmind/deepq/internal/game/reversi"
	"github.com/gridmind/deepq/internal/state"
	"golang.org/x/term"
)

var (
	styleEmpty = lipgloss.NewStyle().
			Background(lipgloss.Color("22")).
			Foreground(lipgloss.Color("28"))
	stylePlayerA = lipgloss.NewStyle().
			Background(lipgloss.Color("22")).
			Foreground(lipgloss.Color("0")).
			Bold(true)
	stylePlayerB = lipgloss.NewStyle().
			Background(lipgloss.Color("22")).
			Foreground(lipgloss.Color("15")).
			Bold(true)
)

// UI prints boards to stdout.
type UI struct {
	// Centered indents output to the center of the terminal when possible.
	Centered bool
}

// New creates a UI.
func New(centered bool) *UI {
	return &UI{Centered: centered}
}

func cellString(c state.Cell) string {
	switch c {
	case reversi.PlayerA:
		return stylePlayerA.Render(" ● ")
	case reversi.PlayerB:
		return stylePlayerB.Render(" ● ")
	}
	return styleEmpty.Render(" · ")
}

// renderBoard returns the board as a multi-line string with a column header.
func renderBoard(g *state.Grid) string {
	var sb strings.Builder
	sb.WriteString("    a  b  c  d  e  f  g  h\n")
	for row := range state.Size {
		sb.WriteString(fmt.Sprintf(" %d ", row+1))
		for col := range state.Size {
			sb.WriteString(cellString(g[row][col]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// PrintBoard prints the current position and whose turn it is.
func (ui *UI) PrintBoard(game *reversi.Game) {
	block := renderBoard(&game.Board)
	a, b := game.Discs()
	block += fmt.Sprintf(" to move: player %d   discs: %d/%d\n", game.Turn, a, b)
	if !ui.Centered {
		fmt.Print(block)
		return
	}
	printCentered(block)
}

// printCentered indents every line so the widest line is centered on the
// terminal. Falls back to plain printing when the width is unknown.
func printCentered(block string) {
	terminalWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		fmt.Print(block)
		return
	}
	lines := strings.Split(block, "\n")
	blockWidth := 0
	for _, line := range lines {
		if w := lipgloss.Width(line); w > blockWidth {
			blockWidth = w
		}
	}
	indent := max((terminalWidth-blockWidth)/2, 0)
	pad := strings.Repeat(" ", indent)
	for _, line := range lines {
		if len(line) == 0 {
			fmt.Println()
			continue
		}
		fmt.Printf("%s%s\n", pad, line)
	}
}
