package connection

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IntentHandler receives what a Session reads from its connection.
// Implementations must not block indefinitely.
type IntentHandler interface {
	HandleIntent(playerID uint8, msg Message)
	HandleDisconnect(playerID uint8, err error)
}

// Session is the connection worker of one player. Run blocks on
// socket reads; a separate writer goroutine drains the outbound queue
// in FIFO order.
type Session struct {
	id        string
	playerID  uint8
	conn      FrameConn
	decoder   *Decoder
	limiter   *rate.Limiter
	handler   IntentHandler
	createdAt time.Time

	mu      sync.Mutex
	queue   []string
	closing bool
	wake    chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

type SessionOption func(*Session)

// WithFrameRate paces inbound frames. Frames over the budget wait for
// a token instead of being dropped. A non-positive rate disables it.
func WithFrameRate(perSecond float64, burst int) SessionOption {
	return func(s *Session) {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func NewSession(id string, conn FrameConn, opts ...SessionOption) *Session {
	s := &Session{
		id:        id,
		conn:      conn,
		decoder:   NewDecoder(),
		limiter:   rate.NewLimiter(rate.Inf, 0),
		createdAt: time.Now(),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Id() string {
	return s.id
}

func (s *Session) PlayerID() uint8 {
	return s.playerID
}

func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *Session) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Bind attaches the session to a seat. It must be called before Run.
func (s *Session) Bind(playerID uint8, handler IntentHandler) {
	s.playerID = playerID
	s.handler = handler
}

// Send encodes msg for this player and queues it. It never blocks on
// the socket. Messages sent after CloseAfterFlush or Close are dropped.
func (s *Session) Send(msg Message) {
	frames, err := Encode(msg, s.playerID)
	if err != nil {
		log.Printf("[conn %s] failed to encode %s: %s", s.id, CodeName(msg.Code), err)
		return
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, frames...)
	s.mu.Unlock()

	s.notify()
}

// CloseAfterFlush closes the connection once every queued frame has
// been written.
func (s *Session) CloseAfterFlush() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.notify()
}

// Close drops the connection without flushing.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Session) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) takeQueued() ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := s.queue
	s.queue = nil
	return frames, s.closing
}

// Run serves the connection until it fails or is closed. The handler
// is told about the disconnect exactly once.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.Close()

	go s.writeLoop()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
			cancel()
		}
	}()

	err := s.readLoop(ctx)
	log.Printf("[conn %s] player %d read loop stopped after %s: %s", s.id, s.playerID, time.Since(s.createdAt).Round(time.Millisecond), describeConnErr(err))

	if s.handler != nil {
		s.handler.HandleDisconnect(s.playerID, err)
	}
}

func (s *Session) readLoop(ctx context.Context) error {
readLoop:
	for {
		frame, err := s.conn.ReadFrame()
		if err != nil {
			if IsDroppableFrameErr(err) {
				log.Printf("[conn %s] dropped frame: %s", s.id, err)
				continue readLoop
			}
			return err
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		msg, ok, err := s.decoder.Decode(frame)
		if err != nil {
			log.Printf("[conn %s] dropped frame: %s", s.id, err)
			continue readLoop
		}
		if !ok {
			continue readLoop
		}

		if !IsClientIntent(msg.Code) {
			log.Printf("[conn %s] dropped server-only message %s", s.id, CodeName(msg.Code))
			continue readLoop
		}

		if s.handler != nil {
			s.handler.HandleIntent(s.playerID, msg)
		}
	}
}

func (s *Session) writeLoop() {
	for {
		frames, closing := s.takeQueued()
		if len(frames) > 0 {
			if err := s.conn.WriteFrames(frames...); err != nil {
				log.Printf("[conn %s] write failed: %s", s.id, err)
				s.Close()
				return
			}
		}
		if closing {
			s.Close()
			return
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}
