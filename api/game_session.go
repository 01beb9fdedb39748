package api

import (
	"log"

	cerr "github.com/saeidalz13/battleship-tcp/internal/error"
	mb "github.com/saeidalz13/battleship-tcp/models/battleship"
	mc "github.com/saeidalz13/battleship-tcp/models/connection"
	"github.com/sqlc-dev/pqtype"
)

const intentsBufferSize = 16

type intentKind uint8

const (
	intentAttach intentKind = iota
	intentMessage
	intentDisconnect
	intentTerminate
)

type intent struct {
	kind     intentKind
	playerID uint8
	session  *mc.Session
	msg      mc.Message
	err      error
	ack      chan struct{}
}

// gameObserver is told about lifecycle changes of a game. Calls come
// from the game's own goroutine.
type gameObserver interface {
	gameWon(gs *GameSession)
	release(gs *GameSession, abandoned bool)
}

// GameSession owns one Game. Its goroutine is the only one that reads
// or writes the game; both connection workers talk to it through the
// intents channel.
type GameSession struct {
	game        *mb.Game
	serverIp    pqtype.Inet
	observer    gameObserver
	debugBoards bool
	sessions    [mb.PlayersPerGame]*mc.Session
	intents     chan intent
	done        chan struct{}
}

var _ mc.IntentHandler = (*GameSession)(nil)

func NewGameSession(game *mb.Game, observer gameObserver, serverIp pqtype.Inet, debugBoards bool) *GameSession {
	return &GameSession{
		game:        game,
		serverIp:    serverIp,
		observer:    observer,
		debugBoards: debugBoards,
		intents:  make(chan intent, intentsBufferSize),
		done:     make(chan struct{}),
	}
}

func (gs *GameSession) Uuid() string {
	return gs.game.Uuid()
}

func (gs *GameSession) Done() <-chan struct{} {
	return gs.done
}

func (gs *GameSession) submit(in intent) bool {
	select {
	case gs.intents <- in:
		return true
	case <-gs.done:
		return false
	}
}

// Attach seats session as playerID. It returns false when the game
// already ended and the caller has to look for another seat.
func (gs *GameSession) Attach(playerID uint8, session *mc.Session) bool {
	ack := make(chan struct{}, 1)
	if !gs.submit(intent{kind: intentAttach, playerID: playerID, session: session, ack: ack}) {
		return false
	}

	select {
	case <-ack:
		return true
	case <-gs.done:
		// the attach may have been served right before the loop ended
		select {
		case <-ack:
			return true
		default:
			return false
		}
	}
}

func (gs *GameSession) HandleIntent(playerID uint8, msg mc.Message) {
	gs.submit(intent{kind: intentMessage, playerID: playerID, msg: msg})
}

func (gs *GameSession) HandleDisconnect(playerID uint8, err error) {
	gs.submit(intent{kind: intentDisconnect, playerID: playerID, err: err})
}

// Terminate ends the game and closes both connections.
func (gs *GameSession) Terminate() {
	gs.submit(intent{kind: intentTerminate})
}

func (gs *GameSession) Run() {
	defer close(gs.done)
	log.Printf("[game %s] session started", gs.Uuid())

sessionLoop:
	for {
		in := <-gs.intents

		switch in.kind {
		case intentAttach:
			gs.attach(in.playerID, in.session)
			in.ack <- struct{}{}

		case intentMessage:
			gs.handleMessage(in.playerID, in.msg)

		case intentDisconnect:
			gs.handleDisconnect(in.playerID, in.err)
			break sessionLoop

		case intentTerminate:
			gs.terminate()
			break sessionLoop
		}
	}

	log.Printf("[game %s] session ended", gs.Uuid())
}

func (gs *GameSession) attach(playerID uint8, session *mc.Session) {
	player, err := gs.game.FetchPlayer(playerID)
	if err != nil {
		log.Printf("[game %s] %s", gs.Uuid(), err)
		session.CloseAfterFlush()
		return
	}

	gs.sessions[playerID] = session
	session.Send(mc.NewHello(playerID, player.Color()))
	log.Printf("[game %s] player %d joined from %s", gs.Uuid(), playerID, session.RemoteAddr())
}

func (gs *GameSession) handleMessage(playerID uint8, msg mc.Message) {
	switch msg.Code {
	case mc.CodePlaceFleet:
		started, err := gs.game.PlaceFleet(playerID, msg.Placement)
		if err != nil {
			gs.reject(playerID, err)
			return
		}

		gs.sendTo(playerID, mc.NewPlacementAccepted())
		log.Printf("[game %s] player %d placed the fleet", gs.Uuid(), playerID)

		if started {
			gs.broadcast(mc.NewGameStart(0, 0))
			gs.broadcast(mc.NewTurnNotice(gs.game.Turn()))
			log.Printf("[game %s] game started", gs.Uuid())
			if gs.debugBoards {
				gs.logBoards()
			}
		}

	case mc.CodeGuess:
		result, err := gs.game.Guess(playerID, msg.Coord)
		if err != nil {
			gs.reject(playerID, err)
			return
		}

		// Both players see the result before the turn update
		gs.broadcast(mc.NewGuessResult(result.GuessOutcome))

		if result.Finished {
			gs.broadcast(mc.NewGameOver(result.Winner))
			log.Printf("[game %s] player %d won", gs.Uuid(), result.Winner)
			gs.observer.gameWon(gs)
			return
		}
		gs.broadcast(mc.NewTurnNotice(result.NextTurn))

	default:
		log.Printf("[game %s] ignored %s from player %d", gs.Uuid(), mc.CodeName(msg.Code), playerID)
	}
}

func (gs *GameSession) logBoards() {
	for id := uint8(0); id < mb.PlayersPerGame; id++ {
		player, err := gs.game.FetchPlayer(id)
		if err != nil || player.Board() == nil {
			continue
		}
		log.Printf("[game %s] board of player %d:\n%s", gs.Uuid(), id, player.Board())
	}
}

func (gs *GameSession) reject(playerID uint8, err error) {
	log.Printf("[game %s] rejected intent of player %d: %s", gs.Uuid(), playerID, err)
	gs.sendTo(playerID, mc.NewErrorFor(err))
}

func (gs *GameSession) handleDisconnect(playerID uint8, err error) {
	gs.sessions[playerID] = nil
	other := gs.sessions[1-playerID]

	if gs.game.Phase() == mb.PhaseFinished {
		if other != nil {
			other.CloseAfterFlush()
		}
		gs.observer.release(gs, false)
		return
	}

	gs.game.Abort()
	if other != nil {
		other.Send(mc.NewError(cerr.CodeOpponentDisconnected))
		other.CloseAfterFlush()
		log.Printf("[game %s] player %d disconnected (%v); notified player %d", gs.Uuid(), playerID, err, other.PlayerID())
	} else {
		log.Printf("[game %s] player %d left before an opponent arrived", gs.Uuid(), playerID)
	}
	gs.observer.release(gs, true)
}

func (gs *GameSession) terminate() {
	for _, session := range gs.sessions {
		if session != nil {
			session.CloseAfterFlush()
		}
	}
	_, won := gs.game.Winner()
	gs.observer.release(gs, !won)
}

func (gs *GameSession) sendTo(playerID uint8, msg mc.Message) {
	if session := gs.sessions[playerID]; session != nil {
		session.Send(msg)
	}
}

func (gs *GameSession) broadcast(msg mc.Message) {
	for _, session := range gs.sessions {
		if session != nil {
			session.Send(msg)
		}
	}
}
