package battleship

import (
	"sync"

	"github.com/google/uuid"
)

type GameManager interface {
	CreateGame(opts ...GameOption) *Game
	TerminateGame(gameUuid string)
	Count() int
}

// BattleshipGameManager is the registry of live games. It never reads
// game state; each game is owned by its session goroutine.
type BattleshipGameManager struct {
	games map[string]*Game
	mu    sync.RWMutex
}

var _ GameManager = (*BattleshipGameManager)(nil)

func NewBattleshipGameManager() *BattleshipGameManager {
	return &BattleshipGameManager{
		games: make(map[string]*Game, 10),
	}
}

func (bgm *BattleshipGameManager) CreateGame(opts ...GameOption) *Game {
	gameUuid := uuid.NewString()[:6]
	game := NewGame(gameUuid, opts...)

	bgm.mu.Lock()
	bgm.games[gameUuid] = game
	bgm.mu.Unlock()

	return game
}

func (bgm *BattleshipGameManager) TerminateGame(gameUuid string) {
	bgm.mu.Lock()
	delete(bgm.games, gameUuid)
	bgm.mu.Unlock()
}

func (bgm *BattleshipGameManager) Count() int {
	bgm.mu.RLock()
	defer bgm.mu.RUnlock()
	return len(bgm.games)
}
