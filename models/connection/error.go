package connection

import (
	"errors"
	"fmt"
	"net"

	"github.com/gorilla/websocket"
)

const (
	ConnInvalidMsgType uint8 = iota
	ConnFrameTooLarge
	ConnFrameNotText
)

type ConnErr struct {
	code uint8
	desc string
}

func NewConnErr(code uint8) ConnErr {
	return ConnErr{code: code}
}

func (c ConnErr) AddDesc(desc string) ConnErr {
	c.desc = desc
	return c
}

func (c ConnErr) Error() string {
	return fmt.Sprintf("Connection error - Code: %d\tdesc: %s", c.code, c.desc)
}

func (c ConnErr) Code() uint8 {
	return c.code
}

// Is matches on code only.
func (c ConnErr) Is(target error) bool {
	t, ok := target.(ConnErr)
	return ok && t.code == c.code
}

var (
	ErrFrameTooLarge = NewConnErr(ConnFrameTooLarge).AddDesc("frame exceeds the maximum size")
	ErrFrameNotText  = NewConnErr(ConnFrameNotText).AddDesc("websocket message is not text")
)

// IsDroppableFrameErr reports whether a read error only spoils the
// current frame and the stream can keep going.
func IsDroppableFrameErr(err error) bool {
	return errors.Is(err, ErrFrameTooLarge) || errors.Is(err, ErrFrameNotText)
}

// describeConnErr labels a read failure for the log line that ends a
// connection worker.
func describeConnErr(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout error: " + err.Error()
	}

	if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		return "close error: " + err.Error()
	}

	// Happens if the client goes to background
	if websocket.IsCloseError(err, websocket.CloseAbnormalClosure) {
		return "abnormal closure error: " + err.Error()
	}

	if websocket.IsCloseError(err, websocket.CloseProtocolError, websocket.CloseInternalServerErr, websocket.CloseTLSHandshake, websocket.CloseMandatoryExtension) {
		return "critical error: " + err.Error()
	}

	if websocket.IsCloseError(err, websocket.CloseInvalidFramePayloadData, websocket.CloseUnsupportedData, websocket.CloseMessageTooBig, websocket.ClosePolicyViolation) {
		return "non-critical error: " + err.Error()
	}

	if errors.Is(err, net.ErrClosed) {
		return "connection closed locally"
	}

	return "disconnected: " + err.Error()
}
