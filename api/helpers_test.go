package api

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	mb "github.com/saeidalz13/battleship-tcp/models/battleship"
	mc "github.com/saeidalz13/battleship-tcp/models/connection"
)

const (
	testFleetLine = "SHIP_POSITIONS:0:0,1:0,2:0,3:0,0:2,0:3,0:4,7:5,7:6,5:0"
	readTimeout   = time.Second * 3
)

// Cells of testFleetLine with the frame each hit produces.
var testFleetHits = []struct {
	guess  string
	result string
}{
	{"GUESS:0:0", "RESULT:0,0,HIT"},
	{"GUESS:1:0", "RESULT:1,0,HIT"},
	{"GUESS:2:0", "RESULT:2,0,HIT"},
	{"GUESS:3:0", "RESULT:3,0,HIT,SUNK:Carrier"},
	{"GUESS:0:2", "RESULT:0,2,HIT"},
	{"GUESS:0:3", "RESULT:0,3,HIT"},
	{"GUESS:0:4", "RESULT:0,4,HIT,SUNK:Battleship"},
	{"GUESS:7:5", "RESULT:7,5,HIT"},
	{"GUESS:7:6", "RESULT:7,6,HIT,SUNK:Submarine"},
	{"GUESS:5:0", "RESULT:5,0,HIT,SUNK:Fishingboat"},
}

func startTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	server := NewServer(append([]Option{WithPort(0)}, opts...)...)
	if err := server.Listen(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = server.ServeTCP(ctx)
	}()
	t.Cleanup(cancel)

	return server
}

type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dialTestClient(t *testing.T, server *Server) *testClient {
	t.Helper()

	port := server.Addr().(*net.TCPAddr).Port
	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

// joinTestClient dials and consumes the two Hello frames.
func joinTestClient(t *testing.T, server *Server, playerID string, color string) *testClient {
	t.Helper()
	client := dialTestClient(t, server)
	client.expect("PLAYER_ID:"+playerID, "COLOR:"+color)
	return client
}

func (c *testClient) send(lines ...string) {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(strings.Join(lines, "\n") + "\n")); err != nil {
		c.t.Fatal(err)
	}
}

func (c *testClient) readLine() (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *testClient) expect(lines ...string) {
	c.t.Helper()
	for _, expected := range lines {
		got, err := c.readLine()
		if err != nil {
			c.t.Fatalf("expected frame: %s\tgot error: %v", expected, err)
		}
		if got != expected {
			c.t.Fatalf("expected frame: %s\tgot: %s", expected, got)
		}
	}
}

func (c *testClient) expectClosed() {
	c.t.Helper()
	line, err := c.readLine()
	if err == nil {
		c.t.Fatalf("expected closed connection, got frame: %s", line)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.t.Fatal("expected closed connection, read timed out")
	}
	if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !strings.Contains(err.Error(), "reset") {
		c.t.Fatalf("unexpected read error: %v", err)
	}
}

// startedGame seats two players and places both fleets.
func startedGame(t *testing.T, server *Server) (*testClient, *testClient) {
	t.Helper()

	p0 := joinTestClient(t, server, "0", "red")
	p1 := joinTestClient(t, server, "1", "blue")

	p0.send(testFleetLine)
	p0.expect("PLACEMENT_ACCEPTED")

	p1.send(testFleetLine)
	p1.expect("PLACEMENT_ACCEPTED", "OPPONENT_READY", "TURN:NO")
	p0.expect("OPPONENT_READY", "TURN:YES")

	return p0, p1
}

// testFleetBoard builds the board testFleetLine describes.
func testFleetBoard(t *testing.T) *mb.Board {
	t.Helper()
	msg, ok, err := mc.NewDecoder().Decode(testFleetLine)
	if err != nil || !ok {
		t.Fatalf("cannot decode test fleet: %v", err)
	}
	placement, err := mb.PlacementFromCoordinates(mb.DefaultFleet(), msg.Placement)
	if err != nil {
		t.Fatal(err)
	}
	board, err := mb.NewBoardFromPlacement(mb.DefaultFleet(), placement)
	if err != nil {
		t.Fatal(err)
	}
	return board
}

// playToWin lets player 0 sink the whole fleet of player 1.
func playToWin(p0, p1 *testClient) {
	for i, hit := range testFleetHits {
		p0.send(hit.guess)
		p0.expect(hit.result)
		p1.expect(hit.result)
		if i < len(testFleetHits)-1 {
			p0.expect("TURN:YES")
			p1.expect("TURN:NO")
		}
	}
	p0.expect("WIN:0")
	p1.expect("WIN:0")
}

// waitForFinished blocks until the manager has seen n won games.
func waitForFinished(t *testing.T, server *Server, n int) {
	t.Helper()
	sm := server.SessionManager
	waitFor(t, "win to be recorded", func() bool {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		return len(sm.finishedAt) == n
	})
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLog redirects the standard logger for the rest of the test.
func captureLog(t *testing.T) *lockedBuffer {
	t.Helper()
	buf := &lockedBuffer{}
	log.SetOutput(buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return buf
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(readTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond * 10)
	}
	t.Fatalf("timed out waiting for %s", what)
}
