package connection

import (
	"fmt"
	"strconv"
	"strings"

	cerr "github.com/saeidalz13/battleship-tcp/internal/error"
	mb "github.com/saeidalz13/battleship-tcp/models/battleship"
)

// Encode renders msg as the frames sent to recipient, without the line
// delimiter. TurnNotice depends on the recipient: YES for the turn
// owner and NO for the other player.
func Encode(msg Message, recipient uint8) ([]string, error) {
	switch msg.Code {
	case CodeHello:
		return []string{
			fmt.Sprintf("%s:%d", TagPlayerID, msg.PlayerID),
			TagColor + ":" + msg.Color,
		}, nil

	case CodePlaceFleet:
		cells := make([]string, 0, len(msg.Placement))
		for _, c := range msg.Placement {
			cells = append(cells, encodeCoord(c))
		}
		return []string{TagShipPositions + ":" + strings.Join(cells, ",")}, nil

	case CodePlacementAccepted:
		return []string{TagPlacementAccepted}, nil

	case CodePlacementRejected, CodeError:
		return []string{TagError + ":" + string(msg.Reason)}, nil

	case CodeGameStart:
		if msg.Rows > 0 && msg.Cols > 0 {
			return []string{fmt.Sprintf("%s:%dx%d", TagOpponentReady, msg.Rows, msg.Cols)}, nil
		}
		return []string{TagOpponentReady}, nil

	case CodeTurnNotice:
		if msg.PlayerID == recipient {
			return []string{TagTurn + ":" + turnYes}, nil
		}
		return []string{TagTurn + ":" + turnNo}, nil

	case CodeGuess:
		return []string{TagGuess + ":" + encodeCoord(msg.Coord)}, nil

	case CodeGuessResult:
		if msg.Outcome == mb.OutcomeAlreadyGuessed {
			return nil, NewConnErr(ConnInvalidMsgType).AddDesc("already guessed is not a wire outcome")
		}
		frame := fmt.Sprintf("%s:%d,%d,%s", TagResult, msg.Coord.Row, msg.Coord.Col, msg.Outcome)
		if msg.SunkShip != "" {
			frame += "," + sunkPrefix + msg.SunkShip
		}
		return []string{frame}, nil

	case CodeGameOver:
		return []string{fmt.Sprintf("%s:%d", TagWin, msg.PlayerID)}, nil
	}

	return nil, NewConnErr(ConnInvalidMsgType).AddDesc(fmt.Sprintf("cannot encode message code %d", msg.Code))
}

func encodeCoord(c mb.Coordinates) string {
	return strconv.Itoa(c.Row) + ":" + strconv.Itoa(c.Col)
}

// Decoder turns frames of one stream into messages. It is stateful:
// PLAYER_ID is held until COLOR completes the Hello, and TURN frames
// are resolved against the player id learned from it. A Decoder must
// not be shared between streams.
type Decoder struct {
	playerID  uint8
	hasHello  bool
	pendingID *uint8
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// PlayerID is valid once a Hello was decoded.
func (d *Decoder) PlayerID() (uint8, bool) {
	return d.playerID, d.hasHello
}

// Decode parses one frame. ok is false when the frame was consumed but
// does not complete a message yet. Any parse failure is a
// MalformedMessage error.
func (d *Decoder) Decode(frame string) (msg Message, ok bool, err error) {
	line := strings.TrimSpace(frame)
	tag, payload, hasPayload := strings.Cut(line, ":")

	// A Hello is two frames; anything between them drops the pending id
	if d.pendingID != nil && tag != TagColor {
		d.pendingID = nil
	}

	switch tag {
	case TagPlayerID:
		id, err := parsePlayerID(payload)
		if err != nil {
			return Message{}, false, cerr.ErrMalformedMessage(frame)
		}
		d.pendingID = &id
		return Message{}, false, nil

	case TagColor:
		if d.pendingID == nil || payload == "" {
			return Message{}, false, cerr.ErrMalformedMessage(frame)
		}
		id := *d.pendingID
		d.pendingID = nil
		d.playerID = id
		d.hasHello = true
		return NewHello(id, payload), true, nil

	case TagShipPositions:
		if payload == "" {
			return Message{}, false, cerr.ErrMalformedMessage(frame)
		}
		parts := strings.Split(payload, ",")
		coords := make([]mb.Coordinates, 0, len(parts))
		for _, part := range parts {
			c, err := parseCoord(part)
			if err != nil {
				return Message{}, false, cerr.ErrMalformedMessage(frame)
			}
			coords = append(coords, c)
		}
		return NewPlaceFleet(coords), true, nil

	case TagPlacementAccepted:
		if hasPayload {
			return Message{}, false, cerr.ErrMalformedMessage(frame)
		}
		return NewPlacementAccepted(), true, nil

	case TagOpponentReady:
		if !hasPayload {
			return NewGameStart(0, 0), true, nil
		}
		rowsStr, colsStr, found := strings.Cut(payload, "x")
		if !found {
			return Message{}, false, cerr.ErrMalformedMessage(frame)
		}
		rows, errRows := strconv.Atoi(rowsStr)
		cols, errCols := strconv.Atoi(colsStr)
		if errRows != nil || errCols != nil || rows <= 0 || cols <= 0 {
			return Message{}, false, cerr.ErrMalformedMessage(frame)
		}
		return NewGameStart(rows, cols), true, nil

	case TagTurn:
		if !d.hasHello {
			return Message{}, false, cerr.ErrMalformedMessage(frame)
		}
		switch payload {
		case turnYes:
			return NewTurnNotice(d.playerID), true, nil
		case turnNo:
			return NewTurnNotice(1 - d.playerID), true, nil
		}
		return Message{}, false, cerr.ErrMalformedMessage(frame)

	case TagGuess:
		c, err := parseCoord(payload)
		if err != nil {
			return Message{}, false, cerr.ErrMalformedMessage(frame)
		}
		return NewGuess(c), true, nil

	case TagResult:
		msg, err := parseResult(payload)
		if err != nil {
			return Message{}, false, cerr.ErrMalformedMessage(frame)
		}
		return msg, true, nil

	case TagWin:
		id, err := parsePlayerID(payload)
		if err != nil {
			return Message{}, false, cerr.ErrMalformedMessage(frame)
		}
		return NewGameOver(id), true, nil

	case TagError:
		code := cerr.Code(payload)
		if !cerr.IsKnownCode(code) {
			return Message{}, false, cerr.ErrMalformedMessage(frame)
		}
		if code.IsPlacementError() {
			return NewPlacementRejected(code), true, nil
		}
		return NewError(code), true, nil
	}

	return Message{}, false, cerr.ErrMalformedMessage(frame)
}

func parsePlayerID(s string) (uint8, error) {
	switch s {
	case "0":
		return 0, nil
	case "1":
		return 1, nil
	}
	return 0, fmt.Errorf("player id must be 0 or 1, got %q", s)
}

func parseCoord(s string) (mb.Coordinates, error) {
	rowStr, colStr, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return mb.Coordinates{}, fmt.Errorf("coordinate %q has no separator", s)
	}
	row, err := strconv.Atoi(rowStr)
	if err != nil {
		return mb.Coordinates{}, err
	}
	col, err := strconv.Atoi(colStr)
	if err != nil {
		return mb.Coordinates{}, err
	}
	return mb.NewCoordinates(row, col), nil
}

// parseResult reads "r,c,HIT|MISS[,SUNK:name]".
func parseResult(payload string) (Message, error) {
	parts := strings.Split(payload, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Message{}, fmt.Errorf("result needs 3 or 4 fields, got %d", len(parts))
	}

	c, err := parseCoord(parts[0] + ":" + parts[1])
	if err != nil {
		return Message{}, err
	}

	outcome := mb.GuessOutcome{Coord: c}
	switch parts[2] {
	case mb.OutcomeHit.String():
		outcome.Outcome = mb.OutcomeHit
	case mb.OutcomeMiss.String():
		outcome.Outcome = mb.OutcomeMiss
	default:
		return Message{}, fmt.Errorf("unknown outcome %q", parts[2])
	}

	if len(parts) == 4 {
		name, found := strings.CutPrefix(parts[3], sunkPrefix)
		if !found || name == "" || outcome.Outcome != mb.OutcomeHit {
			return Message{}, fmt.Errorf("invalid sunk field %q", parts[3])
		}
		outcome.SunkShip = name
	}

	return NewGuessResult(outcome), nil
}
