package battleship

import "slices"

const (
	ShipCarrier     = "Carrier"
	ShipBattleship  = "Battleship"
	ShipSubmarine   = "Submarine"
	ShipFishingboat = "Fishingboat"
)

type ShipSpec struct {
	Name   string
	Length int
}

// Fleet is ordered; wire placements list the cells of each ship in
// this order.
type Fleet []ShipSpec

func DefaultFleet() Fleet {
	return Fleet{
		{Name: ShipCarrier, Length: 4},
		{Name: ShipBattleship, Length: 3},
		{Name: ShipSubmarine, Length: 2},
		{Name: ShipFishingboat, Length: 1},
	}
}

func (f Fleet) TotalCells() int {
	var total int
	for _, spec := range f {
		total += spec.Length
	}
	return total
}

func (f Fleet) Spec(name string) (ShipSpec, bool) {
	for _, spec := range f {
		if spec.Name == name {
			return spec, true
		}
	}
	return ShipSpec{}, false
}

type Ship struct {
	Name        string
	length      int
	coordinates []Coordinates
	remaining   map[Coordinates]struct{}
}

func NewShip(name string, coords []Coordinates) *Ship {
	ship := &Ship{
		Name:        name,
		length:      len(coords),
		coordinates: slices.Clone(coords),
		remaining:   make(map[Coordinates]struct{}, len(coords)),
	}
	for _, c := range coords {
		ship.remaining[c] = struct{}{}
	}
	return ship
}

// GotHit removes c from the remaining set and reports whether
// the ship occupies c.
func (sh *Ship) GotHit(c Coordinates) bool {
	if _, prs := sh.remaining[c]; !prs {
		return false
	}
	delete(sh.remaining, c)
	return true
}

func (sh *Ship) IsSunk() bool {
	return len(sh.remaining) == 0
}

func (sh *Ship) Length() int {
	return sh.length
}

func (sh *Ship) Coordinates() []Coordinates {
	return slices.Clone(sh.coordinates)
}
