package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	cerr "github.com/saeidalz13/battleship-tcp/internal/error"
	mb "github.com/saeidalz13/battleship-tcp/models/battleship"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	shipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	hitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	missStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	waterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("24"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	turnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)

	playerColors = map[string]lipgloss.Color{
		"red":  lipgloss.Color("196"),
		"blue": lipgloss.Color("33"),
	}
)

// terminalRenderer draws both boards side by side.
type terminalRenderer struct {
	out   io.Writer
	color string
}

func (tr *terminalRenderer) RenderHello(playerID uint8, color string) {
	tr.color = color
	style := titleStyle.Foreground(playerColors[color])
	fmt.Fprintln(tr.out, style.Render(fmt.Sprintf("You are player %d (%s)", playerID, color)))
	fmt.Fprintln(tr.out, "place your fleet: place r:c,r:c,... (Carrier 4, Battleship 3, Submarine 2, Fishingboat 1)")
}

func (tr *terminalRenderer) RenderBoard(own, opponent mb.Grid) {
	left := boardStyle.Render(titleStyle.Render("Your fleet") + "\n" + renderCells(own))
	right := boardStyle.Render(titleStyle.Render("Opponent") + "\n" + renderCells(opponent))
	fmt.Fprintln(tr.out, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))
}

func (tr *terminalRenderer) RenderTurn(isMine bool) {
	if isMine {
		fmt.Fprintln(tr.out, turnStyle.Render("Your turn: fire r c"))
		return
	}
	fmt.Fprintln(tr.out, "Waiting for the opponent...")
}

func (tr *terminalRenderer) RenderResult(c mb.Coordinates, outcome mb.Outcome, sunkShip string, mine bool) {
	who := "Opponent"
	if mine {
		who = "You"
	}
	line := fmt.Sprintf("%s fired at (%d,%d): %s", who, c.Row, c.Col, outcome)
	if sunkShip != "" {
		line += " and sank the " + sunkShip
	}
	fmt.Fprintln(tr.out, line)
}

func (tr *terminalRenderer) RenderGameOver(winner uint8, isMe bool) {
	if isMe {
		fmt.Fprintln(tr.out, turnStyle.Render("You won!"))
		return
	}
	fmt.Fprintln(tr.out, errStyle.Render(fmt.Sprintf("Player %d won.", winner)))
}

func (tr *terminalRenderer) RenderError(code cerr.Code) {
	fmt.Fprintln(tr.out, errStyle.Render("server: "+string(code)))
}

func renderCells(grid mb.Grid) string {
	var sb strings.Builder
	sb.WriteString("  ")
	for col := range grid[0] {
		sb.WriteString(" " + strconv.Itoa(col))
	}
	sb.WriteString("\n")

	for row, cells := range grid {
		sb.WriteString(fmt.Sprintf("%2d", row))
		for _, cell := range cells {
			switch cell {
			case mb.CellOccupied:
				sb.WriteString(" " + shipStyle.Render("S"))
			case mb.CellHit:
				sb.WriteString(" " + hitStyle.Render("X"))
			case mb.CellMissed:
				sb.WriteString(" " + missStyle.Render("O"))
			default:
				sb.WriteString(" " + waterStyle.Render("~"))
			}
		}
		if row < len(grid)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
