package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/saeidalz13/battleship-tcp/api"
	cerr "github.com/saeidalz13/battleship-tcp/internal/error"
	mb "github.com/saeidalz13/battleship-tcp/models/battleship"
)

func testFleet() []mb.Coordinates {
	return []mb.Coordinates{
		{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 2, Col: 0}, {Row: 3, Col: 0},
		{Row: 0, Col: 2}, {Row: 0, Col: 3}, {Row: 0, Col: 4},
		{Row: 7, Col: 5}, {Row: 7, Col: 6},
		{Row: 5, Col: 0},
	}
}

type recordingRenderer struct {
	events chan string
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{events: make(chan string, 64)}
}

func (r *recordingRenderer) RenderHello(playerID uint8, color string) {
	r.events <- fmt.Sprintf("hello %d %s", playerID, color)
}

func (r *recordingRenderer) RenderBoard(own, opponent mb.Grid) {
	r.events <- "board"
}

func (r *recordingRenderer) RenderTurn(isMine bool) {
	r.events <- fmt.Sprintf("turn %v", isMine)
}

func (r *recordingRenderer) RenderResult(c mb.Coordinates, outcome mb.Outcome, sunkShip string, mine bool) {
	r.events <- fmt.Sprintf("result %d,%d %s %s %v", c.Row, c.Col, outcome, sunkShip, mine)
}

func (r *recordingRenderer) RenderGameOver(winner uint8, isMe bool) {
	r.events <- fmt.Sprintf("over %d %v", winner, isMe)
}

func (r *recordingRenderer) RenderError(code cerr.Code) {
	r.events <- "error " + string(code)
}

// expect skips board redraws and fails on any other unexpected event.
func (r *recordingRenderer) expect(t *testing.T, events ...string) {
	t.Helper()
	for _, expected := range events {
		for {
			select {
			case got := <-r.events:
				if got == "board" && expected != "board" {
					continue
				}
				if got != expected {
					t.Fatalf("expected event: %s\tgot: %s", expected, got)
				}
			case <-time.After(3 * time.Second):
				t.Fatalf("timed out waiting for event: %s", expected)
			}
			break
		}
	}
}

// waitFor skips events until target shows up.
func (r *recordingRenderer) waitFor(t *testing.T, target string) {
	t.Helper()
	for {
		select {
		case got := <-r.events:
			if got == target {
				return
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for event: %s", target)
		}
	}
}

func startClients(t *testing.T) (*Client, *recordingRenderer, *Client, *recordingRenderer) {
	t.Helper()

	server := api.NewServer(api.WithPort(0))
	if err := server.Listen(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = server.ServeTCP(ctx) }()

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(server.Addr().(*net.TCPAddr).Port))

	r0 := newRecordingRenderer()
	c0, err := DialTCP(ctx, addr, r0)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = c0.Run(ctx) }()
	r0.expect(t, "hello 0 red")

	r1 := newRecordingRenderer()
	c1, err := DialTCP(ctx, addr, r1)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = c1.Run(ctx) }()
	r1.expect(t, "hello 1 blue")

	return c0, r0, c1, r1
}

func TestClientPlaysAgainstServer(t *testing.T) {
	c0, r0, c1, r1 := startClients(t)

	if err := c0.Fire(0, 0); cerr.CodeOf(err) != cerr.CodeGameNotStarted {
		t.Fatalf("expected code: %s\tgot: %v", cerr.CodeGameNotStarted, err)
	}

	bad := testFleet()
	bad[9] = mb.Coordinates{Row: 0, Col: 0}
	if err := c0.PlaceFleet(bad); cerr.CodeOf(err) != cerr.CodeOverlap {
		t.Fatalf("expected code: %s\tgot: %v", cerr.CodeOverlap, err)
	}

	if err := c0.PlaceFleet(testFleet()); err != nil {
		t.Fatal(err)
	}
	r0.expect(t, "board")
	if err := c1.PlaceFleet(testFleet()); err != nil {
		t.Fatal(err)
	}
	r1.expect(t, "turn false")
	r0.expect(t, "turn true")

	if err := c1.Fire(0, 0); cerr.CodeOf(err) != cerr.CodeOutOfTurn {
		t.Fatalf("expected code: %s\tgot: %v", cerr.CodeOutOfTurn, err)
	}

	if err := c0.Fire(0, 0); err != nil {
		t.Fatal(err)
	}
	r0.expect(t, "result 0,0 HIT  true", "turn true")
	r1.expect(t, "result 0,0 HIT  false", "turn false")

	if err := c0.Fire(0, 0); cerr.CodeOf(err) != cerr.CodeAlreadyGuessed {
		t.Fatalf("expected code: %s\tgot: %v", cerr.CodeAlreadyGuessed, err)
	}
	if c0.OpponentGrid().At(mb.NewCoordinates(0, 0)) != mb.CellHit {
		t.Fatal("client must track hits on the opponent grid")
	}

	if err := c0.Fire(9, 9); err != nil {
		t.Fatal(err)
	}
	r0.expect(t, "result 9,9 MISS  true", "turn false")
	r1.expect(t, "result 9,9 MISS  false", "turn true")

	if !c1.IsMyTurn() || c0.IsMyTurn() {
		t.Fatal("turn must have passed to player 1")
	}
}

func TestClientWins(t *testing.T) {
	c0, r0, c1, r1 := startClients(t)

	if err := c0.PlaceFleet(testFleet()); err != nil {
		t.Fatal(err)
	}
	r0.expect(t, "board")
	if err := c1.PlaceFleet(testFleet()); err != nil {
		t.Fatal(err)
	}
	r0.expect(t, "turn true")
	r1.expect(t, "turn false")

	for i, c := range testFleet() {
		if err := c0.Fire(c.Row, c.Col); err != nil {
			t.Fatal(err)
		}
		if i < len(testFleet())-1 {
			r0.waitFor(t, "turn true")
		}
	}

	r0.waitFor(t, "over 0 true")
	r1.waitFor(t, "over 0 false")
	if !c0.IsFinished() || !c1.IsFinished() {
		t.Fatal("both clients must see the game as finished")
	}
	if err := c0.Fire(9, 9); cerr.CodeOf(err) != cerr.CodeGameOver {
		t.Fatalf("expected code: %s\tgot: %v", cerr.CodeGameOver, err)
	}
}
