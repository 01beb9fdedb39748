package connection

// Message codes. The first group travels client to server, the rest
// server to client.
const (
	CodePlaceFleet uint8 = iota
	CodeGuess

	CodeHello
	CodePlacementAccepted
	CodePlacementRejected
	CodeGameStart
	CodeTurnNotice
	CodeGuessResult
	CodeGameOver
	CodeError
)

// Frame tags as they appear before the first ':' of a line.
const (
	TagPlayerID          = "PLAYER_ID"
	TagColor             = "COLOR"
	TagShipPositions     = "SHIP_POSITIONS"
	TagPlacementAccepted = "PLACEMENT_ACCEPTED"
	TagOpponentReady     = "OPPONENT_READY"
	TagTurn              = "TURN"
	TagGuess             = "GUESS"
	TagResult            = "RESULT"
	TagWin               = "WIN"
	TagError             = "ERROR"
)

const (
	turnYes    = "YES"
	turnNo     = "NO"
	sunkPrefix = "SUNK:"
)

func IsClientIntent(code uint8) bool {
	return code == CodePlaceFleet || code == CodeGuess
}

func CodeName(code uint8) string {
	switch code {
	case CodePlaceFleet:
		return "PlaceFleet"
	case CodeGuess:
		return "Guess"
	case CodeHello:
		return "Hello"
	case CodePlacementAccepted:
		return "PlacementAccepted"
	case CodePlacementRejected:
		return "PlacementRejected"
	case CodeGameStart:
		return "GameStart"
	case CodeTurnNotice:
		return "TurnNotice"
	case CodeGuessResult:
		return "GuessResult"
	case CodeGameOver:
		return "GameOver"
	case CodeError:
		return "Error"
	}
	return "Unknown"
}
