// Package minigame is the reward for the Konami code: move the player square
// onto the goal square.
package minigame

import "sync"

const (
	GameWidth  = 400
	GameHeight = 300
	SquareSize = 20
	Step       = 10

	StartX = 50
	StartY = 140
	GoalX  = 330
	GoalY  = 140

	WinMessage = "YOU WIN!"
)

type Game struct {
	mu     sync.Mutex
	player Square
	goal   Square
	won    bool
}

func New() *Game {
	g := &Game{}
	g.Reset()
	return g
}

// Reset puts the player back at the start.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.player = Square{X: StartX, Y: StartY, Size: SquareSize}
	g.goal = Square{X: GoalX, Y: GoalY, Size: SquareSize}
	g.won = false
}

// Move shifts the player one step, clamped to the arena. It reports whether
// this move won the game. Moves after a win are ignored.
func (g *Game) Move(d Direction) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.won {
		return false
	}
	switch d {
	case Up:
		g.player.Y = max(0, g.player.Y-Step)
	case Down:
		g.player.Y = min(GameHeight-SquareSize, g.player.Y+Step)
	case Left:
		g.player.X = max(0, g.player.X-Step)
	case Right:
		g.player.X = min(GameWidth-SquareSize, g.player.X+Step)
	default:
		return false
	}
	if g.player.overlaps(g.goal) {
		g.won = true
		return true
	}
	return false
}

func (g *Game) Won() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.won
}

func (g *Game) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{
		Width:  GameWidth,
		Height: GameHeight,
		Player: g.player,
		Goal:   g.goal,
		Won:    g.won,
	}
}
