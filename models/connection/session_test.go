package connection

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	cerr "github.com/saeidalz13/battleship-tcp/internal/error"
	mb "github.com/saeidalz13/battleship-tcp/models/battleship"
)

type recordingHandler struct {
	intents     chan Message
	disconnects chan error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		intents:     make(chan Message, 16),
		disconnects: make(chan error, 1),
	}
}

func (h *recordingHandler) HandleIntent(_ uint8, msg Message) {
	h.intents <- msg
}

func (h *recordingHandler) HandleDisconnect(_ uint8, err error) {
	h.disconnects <- err
}

func startSession(t *testing.T, maxFrameSize int) (*Session, *recordingHandler, net.Conn, *bufio.Reader) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })

	session := NewSession("test", NewTCPFrameConn(server, maxFrameSize), WithFrameRate(1000, 10))
	handler := newRecordingHandler()
	session.Bind(1, handler)
	go session.Run(context.Background())

	return session, handler, client, bufio.NewReader(client)
}

func writeLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	if _, err := conn.Write([]byte(line)); err != nil {
		t.Fatal(err)
	}
}

func readLine(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimRight(line, "\n")
}

func expectIntent(t *testing.T, h *recordingHandler) Message {
	t.Helper()
	select {
	case msg := <-h.intents:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for intent")
	}
	return Message{}
}

func TestSessionForwardsIntentsAndDropsMalformed(t *testing.T) {
	_, handler, client, _ := startSession(t, 0)

	writeLine(t, client, "BOGUS\n")
	writeLine(t, client, "WIN:0\n")
	writeLine(t, client, "GUE")
	writeLine(t, client, "SS:1:2\nGUESS:3:4\n")

	msg := expectIntent(t, handler)
	if msg.Code != CodeGuess || msg.Coord != mb.NewCoordinates(1, 2) {
		t.Fatalf("expected guess (1,2), got %+v", msg)
	}
	msg = expectIntent(t, handler)
	if msg.Coord != mb.NewCoordinates(3, 4) {
		t.Fatalf("expected guess (3,4), got %+v", msg)
	}

	select {
	case extra := <-handler.intents:
		t.Fatalf("malformed frames must be dropped, got %+v", extra)
	default:
	}
}

func TestSessionDropsOversizedFrame(t *testing.T) {
	_, handler, client, _ := startSession(t, 32)

	writeLine(t, client, "SHIP_POSITIONS:"+strings.Repeat("0:0,", 20)+"0:0\n")
	writeLine(t, client, "GUESS:0:0\n")

	msg := expectIntent(t, handler)
	if msg.Code != CodeGuess {
		t.Fatalf("expected the guess after the oversized frame, got %+v", msg)
	}
}

func TestSessionSendOrderAndRecipient(t *testing.T) {
	session, _, _, reader := startSession(t, 0)

	session.Send(NewHello(1, "blue"))
	session.Send(NewTurnNotice(0))
	session.Send(NewTurnNotice(1))

	expected := []string{"PLAYER_ID:1", "COLOR:blue", "TURN:NO", "TURN:YES"}
	for _, line := range expected {
		if got := readLine(t, reader); got != line {
			t.Fatalf("expected frame: %s\tgot: %s", line, got)
		}
	}
}

func TestSessionCloseAfterFlush(t *testing.T) {
	session, handler, _, reader := startSession(t, 0)

	session.Send(NewError(cerr.CodeOpponentDisconnected))
	session.CloseAfterFlush()
	session.Send(NewGameOver(0))

	if got := readLine(t, reader); got != "ERROR:OpponentDisconnected" {
		t.Fatalf("expected frame: %s\tgot: %s", "ERROR:OpponentDisconnected", got)
	}
	if _, err := reader.ReadString('\n'); err == nil {
		t.Fatal("expected the connection to be closed after the flush")
	}

	select {
	case <-handler.disconnects:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not told about the disconnect")
	}
}

func TestSessionPeerDisconnect(t *testing.T) {
	session, handler, client, _ := startSession(t, 0)
	_ = client.Close()

	select {
	case err := <-handler.disconnects:
		if err == nil {
			t.Fatal("expected a read error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not told about the disconnect")
	}

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session must be closed after the read loop stops")
	}
}
