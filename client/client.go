package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	cerr "github.com/saeidalz13/battleship-tcp/internal/error"
	mb "github.com/saeidalz13/battleship-tcp/models/battleship"
	mc "github.com/saeidalz13/battleship-tcp/models/connection"
)

const dialTimeout = time.Second * 10

var ErrNoHello = errors.New("server has not assigned a player id yet")

// Renderer shows the game to a human. Calls come from the goroutine
// running Client.Run and must not call back into the Client.
type Renderer interface {
	RenderHello(playerID uint8, color string)
	RenderBoard(own, opponent mb.Grid)
	RenderTurn(isMine bool)
	RenderResult(c mb.Coordinates, outcome mb.Outcome, sunkShip string, mine bool)
	RenderGameOver(winner uint8, isMe bool)
	RenderError(code cerr.Code)
}

// Client mirrors the server state for one player. The server stays
// authoritative; local checks only spare a round trip.
type Client struct {
	conn     mc.FrameConn
	decoder  *mc.Decoder
	renderer Renderer

	writeMu sync.Mutex

	mu           sync.Mutex
	playerID     uint8
	hasHello     bool
	pendingFleet []mb.Coordinates
	ownBoard     *mb.Board
	ownGrid      mb.Grid
	opponent     mb.Grid
	myTurn       bool
	started      bool
	finished     bool
}

func New(conn mc.FrameConn, renderer Renderer) *Client {
	return &Client{
		conn:     conn,
		decoder:  mc.NewDecoder(),
		renderer: renderer,
		ownGrid:  mb.NewGrid(mb.GridRows, mb.GridCols),
		opponent: mb.NewGrid(mb.GridRows, mb.GridCols),
	}
}

func DialTCP(ctx context.Context, addr string, renderer Renderer) (*Client, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return New(mc.NewTCPFrameConn(conn, mc.DefaultMaxFrameSize), renderer), nil
}

func DialWs(ctx context.Context, url string, renderer Renderer) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return New(mc.NewWsFrameConn(conn, mc.DefaultMaxFrameSize), renderer), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) PlayerID() (uint8, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID, c.hasHello
}

func (c *Client) IsMyTurn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.myTurn && c.started && !c.finished
}

func (c *Client) IsFinished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// PlaceFleet sends the fleet once it passes the same checks the server
// runs. coords follow the fleet order.
func (c *Client) PlaceFleet(coords []mb.Coordinates) error {
	fleet := mb.DefaultFleet()
	placement, err := mb.PlacementFromCoordinates(fleet, coords)
	if err != nil {
		return err
	}
	if _, err := mb.NewBoardFromPlacement(fleet, placement); err != nil {
		return err
	}

	c.mu.Lock()
	if !c.hasHello {
		c.mu.Unlock()
		return ErrNoHello
	}
	if c.ownBoard != nil {
		c.mu.Unlock()
		return cerr.ErrFleetAlreadyPlaced(c.playerID)
	}
	c.pendingFleet = coords
	c.mu.Unlock()

	return c.send(mc.NewPlaceFleet(coords))
}

// Fire guesses a cell of the opponent board.
func (c *Client) Fire(row, col int) error {
	target := mb.NewCoordinates(row, col)

	c.mu.Lock()
	switch {
	case c.finished:
		c.mu.Unlock()
		return cerr.ErrGameIsOver()
	case !c.started:
		c.mu.Unlock()
		return cerr.ErrGameNotStarted()
	case !c.myTurn:
		c.mu.Unlock()
		return cerr.ErrNotTurnForAttacker(c.playerID)
	case !target.InBounds():
		c.mu.Unlock()
		return cerr.ErrXorYOutOfGridBound(row, col)
	case c.opponent.At(target) != mb.CellEmpty:
		c.mu.Unlock()
		return cerr.ErrAttackPositionAlreadyFilled(row, col)
	}
	c.mu.Unlock()

	return c.send(mc.NewGuess(target))
}

func (c *Client) send(msg mc.Message) error {
	frames, err := mc.Encode(msg, 0)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteFrames(frames...)
}

// Run reads server frames until the connection ends. A clean close
// after the game finished returns nil.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = c.conn.Close()
	}()

	for {
		frame, err := c.conn.ReadFrame()
		if err != nil {
			if mc.IsDroppableFrameErr(err) {
				continue
			}
			if c.IsFinished() || ctx.Err() != nil {
				return nil
			}
			return err
		}

		msg, ok, err := c.decoder.Decode(frame)
		if err != nil {
			log.Printf("dropped frame from server: %s", err)
			continue
		}
		if ok {
			c.handle(msg)
		}
	}
}

func (c *Client) handle(msg mc.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Code {
	case mc.CodeHello:
		c.playerID = msg.PlayerID
		c.hasHello = true
		c.renderer.RenderHello(msg.PlayerID, msg.Color)

	case mc.CodePlacementAccepted:
		fleet := mb.DefaultFleet()
		placement, err := mb.PlacementFromCoordinates(fleet, c.pendingFleet)
		if err != nil {
			log.Printf("accepted fleet does not match local fleet: %s", err)
			return
		}
		board, err := mb.NewBoardFromPlacement(fleet, placement)
		if err != nil {
			log.Printf("accepted fleet does not match local fleet: %s", err)
			return
		}
		c.ownBoard = board
		c.ownGrid = board.Grid()
		c.renderer.RenderBoard(c.ownGrid, c.opponent)

	case mc.CodePlacementRejected:
		c.pendingFleet = nil
		c.renderer.RenderError(msg.Reason)

	case mc.CodeError:
		if msg.Reason == cerr.CodeOpponentDisconnected || msg.Reason == cerr.CodeSessionFull {
			c.finished = true
		}
		c.renderer.RenderError(msg.Reason)

	case mc.CodeGameStart:
		c.started = true
		c.renderer.RenderBoard(c.ownGrid, c.opponent)

	case mc.CodeTurnNotice:
		c.myTurn = c.hasHello && msg.PlayerID == c.playerID
		c.renderer.RenderTurn(c.myTurn)

	case mc.CodeGuessResult:
		// A result always precedes the turn update, so myTurn still
		// names the shooter.
		if !msg.Coord.InBounds() {
			log.Printf("server result outside the board: %+v", msg.Coord)
			return
		}
		mine := c.myTurn
		if mine {
			if msg.Outcome == mb.OutcomeHit {
				c.opponent[msg.Coord.Row][msg.Coord.Col] = mb.CellHit
			} else {
				c.opponent[msg.Coord.Row][msg.Coord.Col] = mb.CellMissed
			}
		} else if c.ownBoard != nil {
			_, _ = c.ownBoard.ApplyGuess(msg.Coord)
			c.ownGrid = c.ownBoard.Grid()
		}
		c.renderer.RenderResult(msg.Coord, msg.Outcome, msg.SunkShip, mine)
		c.renderer.RenderBoard(c.ownGrid, c.opponent)

	case mc.CodeGameOver:
		c.finished = true
		c.myTurn = false
		c.renderer.RenderGameOver(msg.PlayerID, c.hasHello && msg.PlayerID == c.playerID)
	}
}

// OpponentGrid returns what this player knows about the opponent.
func (c *Client) OpponentGrid() mb.Grid {
	c.mu.Lock()
	defer c.mu.Unlock()

	grid := mb.NewGrid(mb.GridRows, mb.GridCols)
	for r := range c.opponent {
		copy(grid[r], c.opponent[r])
	}
	return grid
}
