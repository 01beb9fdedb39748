package api

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saeidalz13/battleship-tcp/db/sqlc"
	cerr "github.com/saeidalz13/battleship-tcp/internal/error"
	mb "github.com/saeidalz13/battleship-tcp/models/battleship"
	mc "github.com/saeidalz13/battleship-tcp/models/connection"
	"github.com/sqlc-dev/pqtype"
)

const (
	defaultFinishedLinger      = time.Minute * 2
	minCleanupInterval         = time.Second
	defaultMaxSessions     int = 1
)

type SessionManagerConfig struct {
	MaxSessions    int
	FinishedLinger time.Duration
	GameOptions    []mb.GameOption
	SessionOptions []mc.SessionOption
	// Log both boards when a game starts
	DebugBoards bool
}

// SessionManager seats incoming connections into games. The first
// arrival opens a game as player 0 and the second one completes it as
// player 1. At most MaxSessions games exist at once.
type SessionManager struct {
	gameManager mb.GameManager
	dbManager   *sqlc.DbManager
	cfg         SessionManagerConfig

	mu         sync.Mutex
	pending    *GameSession
	games      map[string]*GameSession
	finishedAt map[string]time.Time

	// analytics writes in flight
	wg sync.WaitGroup
}

var _ gameObserver = (*SessionManager)(nil)

func NewSessionManager(gameManager mb.GameManager, dbManager *sqlc.DbManager, cfg SessionManagerConfig) *SessionManager {
	if cfg.MaxSessions < 1 {
		cfg.MaxSessions = defaultMaxSessions
	}
	if cfg.FinishedLinger <= 0 {
		cfg.FinishedLinger = defaultFinishedLinger
	}

	return &SessionManager{
		gameManager: gameManager,
		dbManager:   dbManager,
		cfg:         cfg,
		games:       make(map[string]*GameSession, cfg.MaxSessions),
		finishedAt:  make(map[string]time.Time, cfg.MaxSessions),
	}
}

// Admit serves conn until it disconnects. A connection that finds
// every game full gets ERROR:SessionFull and is closed.
func (sm *SessionManager) Admit(ctx context.Context, conn mc.FrameConn) {
	session := mc.NewSession(uuid.NewString(), conn, sm.cfg.SessionOptions...)

	for {
		gs, playerID, ok := sm.seat(conn.LocalAddr())
		if !ok {
			sm.reject(conn)
			return
		}

		session.Bind(playerID, gs)
		if gs.Attach(playerID, session) {
			break
		}
		// the game ended between seating and attaching
	}

	session.Run(ctx)
}

func (sm *SessionManager) seat(localAddr net.Addr) (*GameSession, uint8, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.pending != nil {
		gs := sm.pending
		sm.pending = nil
		return gs, 1, true
	}

	if sm.unfinishedLocked() >= sm.cfg.MaxSessions {
		return nil, 0, false
	}

	serverIp := serverInet(localAddr)
	game := sm.gameManager.CreateGame(sm.cfg.GameOptions...)
	gs := NewGameSession(game, sm, serverIp, sm.cfg.DebugBoards)
	sm.games[game.Uuid()] = gs
	sm.pending = gs
	go gs.Run()

	sm.record(sqlc.AnalyticsGameCreated, serverIp)
	return gs, 0, true
}

func (sm *SessionManager) reject(conn mc.FrameConn) {
	log.Printf("all sessions are full, rejecting %s", conn.RemoteAddr())

	frames, err := mc.Encode(mc.NewError(cerr.CodeSessionFull), 0)
	if err == nil {
		_ = conn.WriteFrames(frames...)
	}
	_ = conn.Close()
}

func (sm *SessionManager) gameWon(gs *GameSession) {
	sm.mu.Lock()
	sm.finishedAt[gs.Uuid()] = time.Now()
	sm.mu.Unlock()

	sm.record(sqlc.AnalyticsGameFinished, gs.serverIp)
}

func (sm *SessionManager) release(gs *GameSession, abandoned bool) {
	sm.mu.Lock()
	delete(sm.games, gs.Uuid())
	delete(sm.finishedAt, gs.Uuid())
	if sm.pending == gs {
		sm.pending = nil
	}
	sm.mu.Unlock()

	sm.gameManager.TerminateGame(gs.Uuid())
	log.Printf("[game %s] resources released", gs.Uuid())

	if abandoned {
		sm.record(sqlc.AnalyticsGameAbandoned, gs.serverIp)
	}
}

// ActiveGames counts games that still hold resources, waiting and
// lingering finished ones included.
func (sm *SessionManager) ActiveGames() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.games)
}

// A finished game keeps its sockets until the sweep but no longer
// counts against MaxSessions. sm.mu must be held.
func (sm *SessionManager) unfinishedLocked() int {
	return len(sm.games) - len(sm.finishedAt)
}

// CleanupPeriodically terminates games that stayed finished for longer
// than the configured linger so their sockets and seats are freed.
func (sm *SessionManager) CleanupPeriodically(ctx context.Context) {
	interval := sm.cfg.FinishedLinger / 2
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.sweepFinished(time.Now())
		}
	}
}

func (sm *SessionManager) sweepFinished(now time.Time) {
	sm.mu.Lock()
	toTerminate := make([]*GameSession, 0, len(sm.finishedAt))
	for gameUuid, finishedAt := range sm.finishedAt {
		if now.Sub(finishedAt) >= sm.cfg.FinishedLinger {
			if gs, prs := sm.games[gameUuid]; prs {
				toTerminate = append(toTerminate, gs)
			}
		}
	}
	sm.mu.Unlock()

	for _, gs := range toTerminate {
		log.Printf("[game %s] removing finished game", gs.Uuid())
		gs.Terminate()
	}
}

// Shutdown terminates every game and waits for pending analytics.
func (sm *SessionManager) Shutdown() {
	sm.mu.Lock()
	games := make([]*GameSession, 0, len(sm.games))
	for _, gs := range sm.games {
		games = append(games, gs)
	}
	sm.mu.Unlock()

	for _, gs := range games {
		gs.Terminate()
		<-gs.Done()
	}
	sm.wg.Wait()
}

// record writes the analytics event in the background. Failures are
// logged; analytics never affect a game.
func (sm *SessionManager) record(event sqlc.AnalyticsEvent, serverIp pqtype.Inet) {
	if sm.dbManager == nil || !serverIp.Valid {
		return
	}

	sm.wg.Add(1)
	go func() {
		defer sm.wg.Done()

		if err := sm.dbManager.Analytics.RecordDetached(event, serverIp); err != nil {
			log.Printf("failed to record analytics (%s): %s", event, err)
		}
	}()
}

func serverInet(localAddr net.Addr) pqtype.Inet {
	if localAddr == nil {
		return pqtype.Inet{}
	}
	ipNet, err := getServerIpNet(localAddr.String())
	if err != nil {
		log.Println("failed to resolve server ip:", err)
		return pqtype.Inet{}
	}
	return pqtype.Inet{IPNet: ipNet, Valid: true}
}
