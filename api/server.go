package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/saeidalz13/battleship-tcp/db/sqlc"
	"github.com/saeidalz13/battleship-tcp/internal/config"
	mb "github.com/saeidalz13/battleship-tcp/models/battleship"
	mc "github.com/saeidalz13/battleship-tcp/models/connection"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPort       int = 5555
	readHeaderTimeout     = time.Second * 5
	shutdownTimeout       = time.Second * 5

	WsPath = "/battleship"
)

var upgrader = websocket.Upgrader{
	// good average time since this is not a high-latency operation such as video streaming
	HandshakeTimeout: time.Second * 5,

	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Server struct {
	port           int
	wsPort         int
	stage          string
	maxFrameSize   int
	frameRate      float64
	frameBurst     int
	maxSessions    int
	finishedLinger time.Duration
	turnPolicy     mb.TurnPolicy

	DbManager      *sqlc.DbManager
	GameManager    *mb.BattleshipGameManager
	SessionManager *SessionManager

	listener net.Listener
}

type Option func(*Server) error

func NewServer(optFuncs ...Option) *Server {
	server := Server{
		port:         defaultPort,
		stage:        config.StageDev,
		maxFrameSize: mc.DefaultMaxFrameSize,
		maxSessions:  defaultMaxSessions,
	}
	for _, opt := range optFuncs {
		if err := opt(&server); err != nil {
			panic(err)
		}
	}

	server.GameManager = mb.NewBattleshipGameManager()
	server.SessionManager = NewSessionManager(server.GameManager, server.DbManager, SessionManagerConfig{
		MaxSessions:    server.maxSessions,
		FinishedLinger: server.finishedLinger,
		GameOptions:    []mb.GameOption{mb.WithTurnPolicy(server.turnPolicy)},
		SessionOptions: []mc.SessionOption{mc.WithFrameRate(server.frameRate, server.frameBurst)},
		DebugBoards:    server.stage == config.StageDev,
	})

	return &server
}

// NewServerFromConfig maps the loaded configuration onto options.
func NewServerFromConfig(cfg config.Config, dbManager *sqlc.DbManager) (*Server, error) {
	turnPolicy, err := mb.ParseTurnPolicy(cfg.TurnPolicy)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithStage(cfg.Stage),
		WithPort(cfg.Port),
		WithWsPort(cfg.WsPort),
		WithMaxSessions(cfg.MaxSessions),
		WithTurnPolicy(turnPolicy),
		WithFrameRate(cfg.FrameRate, cfg.FrameBurst),
		WithMaxFrameSize(cfg.MaxFrameSize),
		WithFinishedLinger(cfg.FinishedLinger),
	}
	if dbManager != nil {
		opts = append(opts, WithDbManager(dbManager))
	}
	return NewServer(opts...), nil
}

// Port 0 picks a free port.
func WithPort(port int) Option {
	return func(s *Server) error {
		if port < 0 {
			return fmt.Errorf("invalid port: %d", port)
		}
		s.port = port
		return nil
	}
}

// WithWsPort enables the websocket listener; 0 keeps it off.
func WithWsPort(port int) Option {
	return func(s *Server) error {
		if port < 0 {
			return fmt.Errorf("invalid websocket port: %d", port)
		}
		s.wsPort = port
		return nil
	}
}

func WithStage(stage string) Option {
	return func(s *Server) error {
		if stage != config.StageProd && stage != config.StageDev {
			return fmt.Errorf("invalid type of development stage: %s", stage)
		}
		s.stage = stage
		return nil
	}
}

func WithDbManager(dbManager *sqlc.DbManager) Option {
	return func(s *Server) error {
		s.DbManager = dbManager
		return nil
	}
}

func WithMaxSessions(maxSessions int) Option {
	return func(s *Server) error {
		if maxSessions < 1 {
			return fmt.Errorf("max sessions must be at least 1, got %d", maxSessions)
		}
		s.maxSessions = maxSessions
		return nil
	}
}

func WithTurnPolicy(policy mb.TurnPolicy) Option {
	return func(s *Server) error {
		s.turnPolicy = policy
		return nil
	}
}

func WithFrameRate(perSecond float64, burst int) Option {
	return func(s *Server) error {
		s.frameRate = perSecond
		s.frameBurst = burst
		return nil
	}
}

func WithMaxFrameSize(size int) Option {
	return func(s *Server) error {
		if size < 16 {
			return fmt.Errorf("max frame size too small: %d", size)
		}
		s.maxFrameSize = size
		return nil
	}
}

func WithFinishedLinger(linger time.Duration) Option {
	return func(s *Server) error {
		s.finishedLinger = linger
		return nil
	}
}

func getServerIpNet(localAddr string) (net.IPNet, error) {
	host, _, err := net.SplitHostPort(localAddr)
	if err != nil {
		return net.IPNet{}, err
	}

	parsedIP := net.ParseIP(host)
	if parsedIP == nil {
		return net.IPNet{}, fmt.Errorf("invalid server ip: %s", host)
	}

	if ip4 := parsedIP.To4(); ip4 != nil {
		return net.IPNet{IP: ip4, Mask: net.CIDRMask(32, 32)}, nil
	}
	return net.IPNet{IP: parsedIP, Mask: net.CIDRMask(128, 128)}, nil
}

// Listen binds the TCP listener. It is separate from Serve so callers
// can learn the bound address first.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", net.JoinHostPort("0.0.0.0", strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	s.listener = listener
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ServeTCP accepts line protocol connections until ctx is done.
func (s *Server) ServeTCP(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	log.Printf("Listening to TCP %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Println("TCP listener closed, exiting accept loop")
				return nil
			}
			log.Println("error accepting connection:", err)
			continue
		}

		log.Println("a new connection established\tRemote Addr:", conn.RemoteAddr().String())
		go s.SessionManager.Admit(ctx, mc.NewTCPFrameConn(conn, s.maxFrameSize))
	}
}

func (s *Server) HandleWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		log.Println(err)
		return
	}

	log.Println("a new websocket connection established\tRemote Addr:", conn.RemoteAddr().String())
	s.SessionManager.Admit(r.Context(), mc.NewWsFrameConn(conn, s.maxFrameSize))
}

func (s *Server) WsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+WsPath, s.HandleWs)
	return mux
}

// ServeWs runs the websocket endpoint until ctx is done. It returns
// immediately when the websocket port is disabled.
func (s *Server) ServeWs(ctx context.Context) error {
	if s.wsPort == 0 {
		return nil
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort("0.0.0.0", strconv.Itoa(s.wsPort)),
		Handler:           s.WsHandler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("Listening to websocket port %d", s.wsPort)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves both transports and the cleanup loop until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.ServeTCP(ctx) })
	g.Go(func() error { return s.ServeWs(ctx) })
	g.Go(func() error {
		s.SessionManager.CleanupPeriodically(ctx)
		return nil
	})

	err := g.Wait()
	s.SessionManager.Shutdown()
	log.Printf("server stopped (stage: %s)", s.stage)
	return err
}
