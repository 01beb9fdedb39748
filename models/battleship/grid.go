package battleship

const (
	GridRows int = 10
	GridCols int = 10
)

type CellState uint8

const (
	CellEmpty CellState = iota
	CellOccupied
	CellHit
	CellMissed
)

func (c CellState) String() string {
	switch c {
	case CellOccupied:
		return "Occupied"
	case CellHit:
		return "Hit"
	case CellMissed:
		return "Missed"
	default:
		return "Empty"
	}
}

type Coordinates struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func NewCoordinates(row, col int) Coordinates {
	return Coordinates{Row: row, Col: col}
}

func (c Coordinates) InBounds() bool {
	return c.Row >= 0 && c.Row < GridRows && c.Col >= 0 && c.Col < GridCols
}

type Grid [][]CellState

// Creates a new default grid
// All indexes are zero/CellEmpty
func NewGrid(rows, cols int) Grid {
	grid := make(Grid, rows)
	for i := 0; i < rows; i++ {
		grid[i] = make([]CellState, cols)
	}
	return grid
}

func (g Grid) At(c Coordinates) CellState {
	return g[c.Row][c.Col]
}

func (g Grid) set(c Coordinates, state CellState) {
	g[c.Row][c.Col] = state
}

func (g Grid) Count(state CellState) int {
	var n int
	for _, row := range g {
		for _, cell := range row {
			if cell == state {
				n++
			}
		}
	}
	return n
}

func (g Grid) clone() Grid {
	cp := make(Grid, len(g))
	for i := range g {
		cp[i] = append([]CellState(nil), g[i]...)
	}
	return cp
}
