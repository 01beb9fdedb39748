package connection

import (
	cerr "github.com/saeidalz13/battleship-tcp/internal/error"
	mb "github.com/saeidalz13/battleship-tcp/models/battleship"
)

// Message is the in-memory form of every frame kind. Only the fields
// relevant to Code are meaningful.
type Message struct {
	Code uint8

	// Hello, TurnNotice (turn owner), GameOver (winner)
	PlayerID uint8
	Color    string

	Placement []mb.Coordinates
	Coord     mb.Coordinates
	Outcome   mb.Outcome
	SunkShip  string

	// PlacementRejected, Error
	Reason cerr.Code

	// GameStart; zero means the shape is not announced
	Rows int
	Cols int
}

func NewHello(playerID uint8, color string) Message {
	return Message{Code: CodeHello, PlayerID: playerID, Color: color}
}

func NewPlaceFleet(coords []mb.Coordinates) Message {
	return Message{Code: CodePlaceFleet, Placement: coords}
}

func NewPlacementAccepted() Message {
	return Message{Code: CodePlacementAccepted}
}

func NewPlacementRejected(reason cerr.Code) Message {
	return Message{Code: CodePlacementRejected, Reason: reason}
}

func NewGameStart(rows, cols int) Message {
	return Message{Code: CodeGameStart, Rows: rows, Cols: cols}
}

func NewTurnNotice(turnOwner uint8) Message {
	return Message{Code: CodeTurnNotice, PlayerID: turnOwner}
}

func NewGuess(c mb.Coordinates) Message {
	return Message{Code: CodeGuess, Coord: c}
}

func NewGuessResult(outcome mb.GuessOutcome) Message {
	return Message{
		Code:     CodeGuessResult,
		Coord:    outcome.Coord,
		Outcome:  outcome.Outcome,
		SunkShip: outcome.SunkShip,
	}
}

func NewGameOver(winner uint8) Message {
	return Message{Code: CodeGameOver, PlayerID: winner}
}

func NewError(code cerr.Code) Message {
	return Message{Code: CodeError, Reason: code}
}

// NewErrorFor picks PlacementRejected for placement failures and Error
// for everything else. Both share the ERROR frame on the wire.
func NewErrorFor(err error) Message {
	code := cerr.CodeOf(err)
	if code.IsPlacementError() {
		return NewPlacementRejected(code)
	}
	return NewError(code)
}
