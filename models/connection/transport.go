package connection

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultMaxFrameSize int = 4096

	writeWait time.Duration = time.Second * 10

	// A websocket text message may batch several lines
	maxFramesPerWsMessage int64 = 32
)

// FrameConn carries newline delimited frames. ReadFrame may be called
// from one goroutine while WriteFrames is called from another.
type FrameConn interface {
	ReadFrame() (string, error)
	WriteFrames(frames ...string) error
	Close() error
	RemoteAddr() net.Addr
	LocalAddr() net.Addr
}

type TCPFrameConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

var _ FrameConn = (*TCPFrameConn)(nil)

func NewTCPFrameConn(conn net.Conn, maxFrameSize int) *TCPFrameConn {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &TCPFrameConn{
		conn: conn,
		// room for the "\r\n" delimiter
		reader: bufio.NewReaderSize(conn, maxFrameSize+2),
	}
}

// ReadFrame returns the next line without its delimiter. Bytes split
// across several socket reads are reassembled by the buffered reader.
// A line longer than the buffer is discarded and reported as
// ErrFrameTooLarge so the caller can keep reading.
func (t *TCPFrameConn) ReadFrame() (string, error) {
	line, err := t.reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = t.reader.ReadSlice('\n')
		}
		if err != nil {
			return "", err
		}
		return "", ErrFrameTooLarge
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

func (t *TCPFrameConn) WriteFrames(frames ...string) error {
	if len(frames) == 0 {
		return nil
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_, err := t.conn.Write([]byte(strings.Join(frames, "\n") + "\n"))
	return err
}

func (t *TCPFrameConn) Close() error {
	return t.conn.Close()
}

func (t *TCPFrameConn) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

func (t *TCPFrameConn) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// WsFrameConn carries the same lines inside websocket text messages.
type WsFrameConn struct {
	conn         *websocket.Conn
	maxFrameSize int
	pending      []string
	closeOnce    sync.Once
}

var _ FrameConn = (*WsFrameConn)(nil)

func NewWsFrameConn(conn *websocket.Conn, maxFrameSize int) *WsFrameConn {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	conn.SetReadLimit(int64(maxFrameSize) * maxFramesPerWsMessage)
	return &WsFrameConn{
		conn:         conn,
		maxFrameSize: maxFrameSize,
	}
}

func (w *WsFrameConn) ReadFrame() (string, error) {
	for len(w.pending) == 0 {
		messageType, payload, err := w.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if messageType != websocket.TextMessage {
			return "", ErrFrameNotText
		}

		for _, line := range strings.Split(string(payload), "\n") {
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			w.pending = append(w.pending, line)
		}
	}

	frame := w.pending[0]
	w.pending = w.pending[1:]
	if len(frame) > w.maxFrameSize {
		return "", ErrFrameTooLarge
	}
	return frame, nil
}

func (w *WsFrameConn) WriteFrames(frames ...string) error {
	if len(frames) == 0 {
		return nil
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, []byte(strings.Join(frames, "\n")+"\n"))
}

// Close sends a normal closure before dropping the socket.
func (w *WsFrameConn) Close() error {
	var err error
	w.closeOnce.Do(func() {
		_ = w.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = w.conn.Close()
	})
	return err
}

func (w *WsFrameConn) RemoteAddr() net.Addr {
	return w.conn.RemoteAddr()
}

func (w *WsFrameConn) LocalAddr() net.Addr {
	return w.conn.LocalAddr()
}
