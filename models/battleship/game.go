package battleship

import (
	"fmt"
	"time"

	cerr "github.com/saeidalz13/battleship-tcp/internal/error"
)

const PlayersPerGame = 2

type Phase uint8

const (
	PhaseAwaitingPlacement Phase = iota
	PhaseInProgress
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseInProgress:
		return "InProgress"
	case PhaseFinished:
		return "Finished"
	default:
		return "AwaitingPlacement"
	}
}

// TurnPolicy decides who fires next after a valid guess.
type TurnPolicy uint8

const (
	// A hit keeps the turn, a miss passes it.
	TurnPolicyChainOnHit TurnPolicy = iota
	// Every valid guess passes the turn.
	TurnPolicyAlternate
)

func ParseTurnPolicy(s string) (TurnPolicy, error) {
	switch s {
	case "", "chain":
		return TurnPolicyChainOnHit, nil
	case "alternate":
		return TurnPolicyAlternate, nil
	}
	return 0, fmt.Errorf("turn policy must be chain or alternate, got %q", s)
}

func (tp TurnPolicy) String() string {
	if tp == TurnPolicyAlternate {
		return "alternate"
	}
	return "chain"
}

type GuessResult struct {
	GuessOutcome
	Attacker uint8
	NextTurn uint8
	Finished bool
	Winner   uint8
}

// Game holds the rules and state of one match. It is not safe for
// concurrent use; a single goroutine must own it.
type Game struct {
	uuid       string
	phase      Phase
	fleet      Fleet
	policy     TurnPolicy
	players    [PlayersPerGame]*Player
	turn       uint8
	winner     uint8
	createdAt  time.Time
	finishedAt time.Time
}

type GameOption func(*Game)

func WithTurnPolicy(policy TurnPolicy) GameOption {
	return func(g *Game) {
		g.policy = policy
	}
}

func WithFleet(fleet Fleet) GameOption {
	return func(g *Game) {
		g.fleet = fleet
	}
}

func NewGame(uuid string, opts ...GameOption) *Game {
	game := &Game{
		uuid:      uuid,
		phase:     PhaseAwaitingPlacement,
		fleet:     DefaultFleet(),
		policy:    TurnPolicyChainOnHit,
		createdAt: time.Now(),
	}
	for i := range game.players {
		game.players[i] = NewPlayer(uint8(i))
	}
	for _, opt := range opts {
		opt(game)
	}
	return game
}

func (g *Game) Uuid() string {
	return g.uuid
}

func (g *Game) Phase() Phase {
	return g.phase
}

func (g *Game) Turn() uint8 {
	return g.turn
}

func (g *Game) Policy() TurnPolicy {
	return g.policy
}

func (g *Game) Fleet() Fleet {
	return g.fleet
}

// Winner is valid only when ok is true.
func (g *Game) Winner() (uint8, bool) {
	if g.phase != PhaseFinished {
		return 0, false
	}
	return g.winner, g.players[g.winner].MatchStatus() == PlayerMatchStatusWon
}

func (g *Game) FinishedAt() time.Time {
	return g.finishedAt
}

func (g *Game) FetchPlayer(playerID uint8) (*Player, error) {
	if int(playerID) >= PlayersPerGame {
		return nil, cerr.ErrPlayerNotExist(playerID)
	}
	return g.players[playerID], nil
}

func (g *Game) GetOtherPlayer(playerID uint8) *Player {
	return g.players[1-playerID]
}

func (g *Game) IsReadyToStart() bool {
	return g.players[0].IsReady() && g.players[1].IsReady()
}

// PlaceFleet validates coords as the player's fleet. started is true
// when this placement completed both boards and the game moved to
// InProgress.
func (g *Game) PlaceFleet(playerID uint8, coords []Coordinates) (started bool, err error) {
	player, err := g.FetchPlayer(playerID)
	if err != nil {
		return false, err
	}

	switch g.phase {
	case PhaseFinished:
		return false, cerr.ErrGameIsOver()
	case PhaseInProgress:
		return false, cerr.ErrFleetAlreadyPlaced(playerID)
	}

	if player.IsReady() {
		return false, cerr.ErrFleetAlreadyPlaced(playerID)
	}

	placement, err := PlacementFromCoordinates(g.fleet, coords)
	if err != nil {
		return false, err
	}
	board, err := NewBoardFromPlacement(g.fleet, placement)
	if err != nil {
		return false, err
	}
	player.setReady(board)

	if !g.IsReadyToStart() {
		return false, nil
	}

	g.phase = PhaseInProgress
	g.turn = 0
	return true, nil
}

// Guess fires the attacker's shot at the opponent's board. Rejected
// guesses leave the game untouched and do not consume the turn.
func (g *Game) Guess(playerID uint8, c Coordinates) (GuessResult, error) {
	if _, err := g.FetchPlayer(playerID); err != nil {
		return GuessResult{}, err
	}

	switch g.phase {
	case PhaseAwaitingPlacement:
		return GuessResult{}, cerr.ErrGameNotStarted()
	case PhaseFinished:
		return GuessResult{}, cerr.ErrGameIsOver()
	}

	if playerID != g.turn {
		return GuessResult{}, cerr.ErrNotTurnForAttacker(playerID)
	}
	if !c.InBounds() {
		return GuessResult{}, cerr.ErrXorYOutOfGridBound(c.Row, c.Col)
	}

	defender := g.GetOtherPlayer(playerID)
	outcome, err := defender.Board().ApplyGuess(c)
	if err != nil {
		return GuessResult{}, err
	}
	if outcome.Outcome == OutcomeAlreadyGuessed {
		return GuessResult{}, cerr.ErrAttackPositionAlreadyFilled(c.Row, c.Col)
	}

	result := GuessResult{
		GuessOutcome: outcome,
		Attacker:     playerID,
		NextTurn:     g.turn,
	}

	if defender.Board().RemainingShipCells() == 0 {
		g.finish(playerID)
		result.Finished = true
		result.Winner = playerID
		return result, nil
	}

	if outcome.Outcome == OutcomeMiss || g.policy == TurnPolicyAlternate {
		g.turn = defender.ID()
	}
	result.NextTurn = g.turn
	return result, nil
}

// Abort ends the game without a winner.
func (g *Game) Abort() {
	if g.phase == PhaseFinished {
		return
	}
	g.phase = PhaseFinished
	g.finishedAt = time.Now()
}

func (g *Game) finish(winner uint8) {
	g.phase = PhaseFinished
	g.winner = winner
	g.finishedAt = time.Now()
	g.players[winner].setMatchStatus(PlayerMatchStatusWon)
	g.players[1-winner].setMatchStatus(PlayerMatchStatusLost)
}
