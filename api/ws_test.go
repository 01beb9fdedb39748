package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsTestClient struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []string
}

func dialWsTestClient(t *testing.T, url string) *wsTestClient {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: readTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &wsTestClient{t: t, conn: conn}
}

func (c *wsTestClient) send(lines ...string) {
	c.t.Helper()
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(strings.Join(lines, "\n"))); err != nil {
		c.t.Fatal(err)
	}
}

func (c *wsTestClient) expect(lines ...string) {
	c.t.Helper()
	for _, expected := range lines {
		for len(c.pending) == 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, payload, err := c.conn.ReadMessage()
			if err != nil {
				c.t.Fatalf("expected frame: %s\tgot error: %v", expected, err)
			}
			for _, line := range strings.Split(string(payload), "\n") {
				if line != "" {
					c.pending = append(c.pending, line)
				}
			}
		}

		got := c.pending[0]
		c.pending = c.pending[1:]
		if got != expected {
			c.t.Fatalf("expected frame: %s\tgot: %s", expected, got)
		}
	}
}

func TestWebsocketGame(t *testing.T) {
	server := NewServer()
	httpServer := httptest.NewServer(server.WsHandler())
	t.Cleanup(httpServer.Close)

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + WsPath

	p0 := dialWsTestClient(t, url)
	p0.expect("PLAYER_ID:0", "COLOR:red")
	p1 := dialWsTestClient(t, url)
	p1.expect("PLAYER_ID:1", "COLOR:blue")

	// several lines in one websocket message
	p0.send(testFleetLine, "GUESS:0:0")
	p0.expect("PLACEMENT_ACCEPTED", "ERROR:GameNotStarted")

	p1.send(testFleetLine)
	p1.expect("PLACEMENT_ACCEPTED", "OPPONENT_READY", "TURN:NO")
	p0.expect("OPPONENT_READY", "TURN:YES")

	p0.send("GUESS:9:9")
	p0.expect("RESULT:9,9,MISS", "TURN:NO")
	p1.expect("RESULT:9,9,MISS", "TURN:YES")

	_ = p0.conn.Close()
	p1.expect("ERROR:OpponentDisconnected")
}

func TestWebsocketAndTCPShareSeats(t *testing.T) {
	server := startTestServer(t)
	httpServer := httptest.NewServer(server.WsHandler())
	t.Cleanup(httpServer.Close)

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + WsPath

	p0 := joinTestClient(t, server, "0", "red")
	p1 := dialWsTestClient(t, url)
	p1.expect("PLAYER_ID:1", "COLOR:blue")

	p0.send(testFleetLine)
	p0.expect("PLACEMENT_ACCEPTED")
	p1.send(testFleetLine)
	p1.expect("PLACEMENT_ACCEPTED", "OPPONENT_READY", "TURN:NO")
	p0.expect("OPPONENT_READY", "TURN:YES")
}
