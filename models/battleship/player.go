package battleship

const (
	PlayerMatchStatusLost      = -1
	PlayerMatchStatusUndefined = 0
	PlayerMatchStatusWon       = 1
)

var PlayerColors = [2]string{"red", "blue"}

type Player struct {
	id          uint8
	color       string
	isReady     bool
	matchStatus int
	board       *Board
}

func NewPlayer(id uint8) *Player {
	return &Player{
		id:          id,
		color:       PlayerColors[id],
		matchStatus: PlayerMatchStatusUndefined,
	}
}

func (p *Player) ID() uint8 {
	return p.id
}

func (p *Player) Color() string {
	return p.color
}

func (p *Player) IsReady() bool {
	return p.isReady
}

func (p *Player) Board() *Board {
	return p.board
}

func (p *Player) MatchStatus() int {
	return p.matchStatus
}

func (p *Player) setReady(board *Board) {
	p.board = board
	p.isReady = true
}

func (p *Player) setMatchStatus(status int) {
	p.matchStatus = status
}
