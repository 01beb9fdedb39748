package battleship

import (
	"sync"
	"testing"
)

func TestGameManager(t *testing.T) {
	gm := NewBattleshipGameManager()

	game := gm.CreateGame(WithTurnPolicy(TurnPolicyAlternate))
	if game.Policy() != TurnPolicyAlternate {
		t.Fatal("options must reach the created game")
	}

	if gm.Count() != 1 {
		t.Fatalf("expected count: %d\tgot: %d", 1, gm.Count())
	}

	gm.TerminateGame(game.Uuid())
	if gm.Count() != 0 {
		t.Fatalf("expected count: %d\tgot: %d", 0, gm.Count())
	}
}

func TestGameManagerConcurrentCreate(t *testing.T) {
	gm := NewBattleshipGameManager()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			game := gm.CreateGame()
			gm.TerminateGame(game.Uuid())
		}()
	}
	wg.Wait()

	if gm.Count() != 0 {
		t.Fatalf("expected count: %d\tgot: %d", 0, gm.Count())
	}
}
