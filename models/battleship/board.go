package battleship

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"text/tabwriter"

	cerr "github.com/saeidalz13/battleship-tcp/internal/error"
)

type Outcome uint8

const (
	OutcomeMiss Outcome = iota
	OutcomeHit
	OutcomeAlreadyGuessed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "HIT"
	case OutcomeAlreadyGuessed:
		return "ALREADY_GUESSED"
	default:
		return "MISS"
	}
}

type GuessOutcome struct {
	Coord   Coordinates
	Outcome Outcome
	// Set only on the hit that sinks the ship.
	SunkShip string
}

type ShipPlacement struct {
	Name   string
	Coords []Coordinates
}

type Placement []ShipPlacement

// PlacementFromCoordinates splits a flat coordinate list into ships
// following the fleet order.
func PlacementFromCoordinates(fleet Fleet, coords []Coordinates) (Placement, error) {
	if len(coords) != fleet.TotalCells() {
		return nil, cerr.ErrWrongShipCount(fmt.Sprintf("expected %d coordinates, got %d", fleet.TotalCells(), len(coords)))
	}

	placement := make(Placement, 0, len(fleet))
	var offset int
	for _, spec := range fleet {
		placement = append(placement, ShipPlacement{
			Name:   spec.Name,
			Coords: slices.Clone(coords[offset : offset+spec.Length]),
		})
		offset += spec.Length
	}
	return placement, nil
}

type Board struct {
	grid  Grid
	ships []*Ship
}

// NewBoardFromPlacement validates the placement against the fleet and
// returns a board with every ship cell Occupied. Nothing is built
// when validation fails.
func NewBoardFromPlacement(fleet Fleet, placement Placement) (*Board, error) {
	if len(placement) != len(fleet) {
		return nil, cerr.ErrWrongShipCount(fmt.Sprintf("expected %d ships, got %d", len(fleet), len(placement)))
	}

	seen := make(map[string]bool, len(fleet))
	for _, sp := range placement {
		spec, ok := fleet.Spec(sp.Name)
		if !ok {
			return nil, cerr.ErrWrongShipCount(fmt.Sprintf("unknown ship %q", sp.Name))
		}
		if seen[sp.Name] {
			return nil, cerr.ErrWrongShipCount(fmt.Sprintf("ship %s placed twice", sp.Name))
		}
		seen[sp.Name] = true

		if len(sp.Coords) != spec.Length {
			return nil, cerr.ErrWrongShipCount(fmt.Sprintf("ship %s needs %d cells, got %d", sp.Name, spec.Length, len(sp.Coords)))
		}
	}

	board := &Board{
		grid:  NewGrid(GridRows, GridCols),
		ships: make([]*Ship, 0, len(placement)),
	}

	for _, sp := range placement {
		for _, c := range sp.Coords {
			if !c.InBounds() {
				return nil, cerr.ErrShipOutOfGridBound(sp.Name, c.Row, c.Col)
			}
		}

		if !isStraightRun(sp.Coords) {
			return nil, cerr.ErrShipNotContiguous(sp.Name)
		}

		// Ships placed earlier block later ones
		for _, c := range sp.Coords {
			if board.grid.At(c) != CellEmpty {
				return nil, cerr.ErrShipsOverlap(sp.Name, c.Row, c.Col)
			}
		}

		for _, c := range sp.Coords {
			board.grid.set(c, CellOccupied)
		}
		board.ships = append(board.ships, NewShip(sp.Name, sp.Coords))
	}

	return board, nil
}

func isStraightRun(coords []Coordinates) bool {
	if len(coords) <= 1 {
		return true
	}

	sorted := slices.Clone(coords)
	slices.SortFunc(sorted, func(a, b Coordinates) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Col - b.Col
	})

	horizontal, vertical := true, true
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Row != prev.Row || cur.Col != prev.Col+1 {
			horizontal = false
		}
		if cur.Col != prev.Col || cur.Row != prev.Row+1 {
			vertical = false
		}
	}
	return horizontal || vertical
}

// ApplyGuess marks the target cell and reports the outcome. A cell
// that is already Hit or Missed is left untouched.
func (b *Board) ApplyGuess(c Coordinates) (GuessOutcome, error) {
	if !c.InBounds() {
		return GuessOutcome{}, cerr.ErrXorYOutOfGridBound(c.Row, c.Col)
	}

	result := GuessOutcome{Coord: c}

	switch b.grid.At(c) {
	case CellHit, CellMissed:
		result.Outcome = OutcomeAlreadyGuessed

	case CellEmpty:
		b.grid.set(c, CellMissed)
		result.Outcome = OutcomeMiss

	case CellOccupied:
		b.grid.set(c, CellHit)
		result.Outcome = OutcomeHit

		for _, ship := range b.ships {
			if ship.GotHit(c) {
				if ship.IsSunk() {
					result.SunkShip = ship.Name
				}
				break
			}
		}
	}

	return result, nil
}

func (b *Board) RemainingShipCells() int {
	return b.grid.Count(CellOccupied)
}

func (b *Board) Cell(c Coordinates) CellState {
	return b.grid.At(c)
}

func (b *Board) Ships() []*Ship {
	return b.ships
}

func (b *Board) Grid() Grid {
	return b.grid.clone()
}

func (b *Board) String() string {
	return RenderGrid(b.grid)
}

// RenderGrid writes the grid as a table: S ship, X hit, O miss, ~ water.
func RenderGrid(grid Grid) string {
	if len(grid) == 0 {
		return "BOARD HAS SIZE ZERO -- NOT PRINTING\n"
	}

	var buffer bytes.Buffer
	tabWriter := tabwriter.NewWriter(&buffer, 3, 0, 1, ' ', 0)

	fmt.Fprint(tabWriter, "\t")
	for col := range grid[0] {
		fmt.Fprint(tabWriter, strconv.Itoa(col)+"\t")
	}
	fmt.Fprint(tabWriter, "\n")

	for row, cells := range grid {
		fmt.Fprint(tabWriter, strconv.Itoa(row)+"\t")
		for _, cell := range cells {
			switch cell {
			case CellOccupied:
				fmt.Fprint(tabWriter, "S\t")
			case CellHit:
				fmt.Fprint(tabWriter, "X\t")
			case CellMissed:
				fmt.Fprint(tabWriter, "O\t")
			default:
				fmt.Fprint(tabWriter, "~\t")
			}
		}
		fmt.Fprint(tabWriter, "\n")
	}
	tabWriter.Flush()
	return buffer.String()
}
