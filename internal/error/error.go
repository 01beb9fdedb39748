package error

import (
	"errors"
	"fmt"
)

// Code is the reason string carried by an ERROR frame.
type Code string

const (
	CodeMalformedMessage Code = "MalformedMessage"

	// Placement errors
	CodeOverlap        Code = "Overlap"
	CodeOutOfBounds    Code = "OutOfBounds"
	CodeWrongShipCount Code = "WrongShipCount"
	CodeNotContiguous  Code = "NotContiguous"
	CodeAlreadyPlaced  Code = "AlreadyPlaced"

	// Guess errors
	CodeOutOfTurn         Code = "OutOfTurn"
	CodeAlreadyGuessed    Code = "AlreadyGuessed"
	CodeInvalidCoordinate Code = "InvalidCoordinate"
	CodeGameNotStarted    Code = "GameNotStarted"

	// Session errors
	CodeOpponentDisconnected Code = "OpponentDisconnected"
	CodeGameOver             Code = "GameOver"
	CodeSessionFull          Code = "SessionFull"
)

var knownCodes = map[Code]bool{
	CodeMalformedMessage:     true,
	CodeOverlap:              true,
	CodeOutOfBounds:          true,
	CodeWrongShipCount:       true,
	CodeNotContiguous:        true,
	CodeAlreadyPlaced:        true,
	CodeOutOfTurn:            true,
	CodeAlreadyGuessed:       true,
	CodeInvalidCoordinate:    true,
	CodeGameNotStarted:       true,
	CodeOpponentDisconnected: true,
	CodeGameOver:             true,
	CodeSessionFull:          true,
}

func IsKnownCode(code Code) bool {
	return knownCodes[code]
}

// Placement errors are reported to the offending player only and
// leave the game waiting for a corrected fleet.
func (c Code) IsPlacementError() bool {
	switch c {
	case CodeOverlap, CodeOutOfBounds, CodeWrongShipCount, CodeNotContiguous:
		return true
	}
	return false
}

type GameErr struct {
	code Code
	desc string
}

func NewGameErr(code Code) GameErr {
	return GameErr{code: code}
}

func (g GameErr) AddDesc(desc string) GameErr {
	g.desc = desc
	return g
}

func (g GameErr) Error() string {
	if g.desc == "" {
		return string(g.code)
	}
	return fmt.Sprintf("%s: %s", g.code, g.desc)
}

func (g GameErr) Code() Code {
	return g.code
}

// Is matches on code only so callers can compare against NewGameErr(code).
func (g GameErr) Is(target error) bool {
	t, ok := target.(GameErr)
	return ok && t.code == g.code
}

// CodeOf returns the wire code wrapped in err, or CodeMalformedMessage
// when err does not carry one.
func CodeOf(err error) Code {
	var gameErr GameErr
	if errors.As(err, &gameErr) {
		return gameErr.code
	}
	return CodeMalformedMessage
}

func ErrMalformedMessage(frame string) error {
	return NewGameErr(CodeMalformedMessage).AddDesc(fmt.Sprintf("cannot decode frame %q", frame))
}

func ErrXorYOutOfGridBound(row, col int) error {
	return NewGameErr(CodeInvalidCoordinate).AddDesc(fmt.Sprintf("incoming row or col is out of game grid bound\trow: %d\tcol: %d", row, col))
}

func ErrShipOutOfGridBound(ship string, row, col int) error {
	return NewGameErr(CodeOutOfBounds).AddDesc(fmt.Sprintf("ship %s leaves the grid\trow: %d\tcol: %d", ship, row, col))
}

func ErrShipsOverlap(ship string, row, col int) error {
	return NewGameErr(CodeOverlap).AddDesc(fmt.Sprintf("ship %s overlaps a placed ship\trow: %d\tcol: %d", ship, row, col))
}

func ErrShipNotContiguous(ship string) error {
	return NewGameErr(CodeNotContiguous).AddDesc(fmt.Sprintf("ship %s is not a straight contiguous run", ship))
}

func ErrWrongShipCount(desc string) error {
	return NewGameErr(CodeWrongShipCount).AddDesc(desc)
}

func ErrFleetAlreadyPlaced(playerID uint8) error {
	return NewGameErr(CodeAlreadyPlaced).AddDesc(fmt.Sprintf("player %d already placed the fleet", playerID))
}

func ErrNotTurnForAttacker(playerID uint8) error {
	return NewGameErr(CodeOutOfTurn).AddDesc(fmt.Sprintf("not the turn of player %d", playerID))
}

func ErrAttackPositionAlreadyFilled(row, col int) error {
	return NewGameErr(CodeAlreadyGuessed).AddDesc(fmt.Sprintf("this position is already hit by the attacker in previous rounds\trow: %d\tcol: %d", row, col))
}

func ErrGameNotStarted() error {
	return NewGameErr(CodeGameNotStarted).AddDesc("both fleets must be placed before guessing")
}

func ErrGameIsOver() error {
	return NewGameErr(CodeGameOver).AddDesc("game is finished")
}

func ErrPlayerNotExist(playerID uint8) error {
	return fmt.Errorf("player with this id does not exist, id: %d", playerID)
}
