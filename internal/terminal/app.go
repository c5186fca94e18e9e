// Package terminal runs the easter eggs in a terminal: arrow keys and letters
// feed the key sequences, function keys simulate landmark clicks, and the
// mini-game and toasts are drawn with tcell.
package terminal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"edgeroute/internal/eggs"
	"edgeroute/internal/events"
	"edgeroute/internal/minigame"
)

const (
	// One cell is 10x20 pixels of the arena.
	cellWidth  = 10
	cellHeight = 20

	helpLine = "arrows/letters: keys  F1 logo  F2 profile  F3 page  F5 console  F6 roadmap  Esc close/quit"
)

type App struct {
	screen tcell.Screen
	engine *eggs.Engine
	bus    *events.Bus
	log    *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	status   string
	roadmaps int
}

func New(screen tcell.Screen, engine *eggs.Engine, bus *events.Bus, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		screen: screen,
		engine: engine,
		bus:    bus,
		log:    log.With(zap.String("component", "terminal")),
		now:    time.Now,
	}
}

// Run draws until the user quits or ctx is cancelled. The screen must
// already be initialised; Run does not finalise it.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.pumpNotifications(ctx)
	go func() {
		<-ctx.Done()
		a.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	a.Draw()
	for {
		if ctx.Err() != nil {
			return nil
		}
		ev := a.screen.PollEvent()
		if ev == nil {
			return nil
		}
		switch e := ev.(type) {
		case *tcell.EventKey:
			if !a.HandleKey(e) {
				return nil
			}
		case *tcell.EventResize:
			a.screen.Sync()
		}
		a.Draw()
	}
}

// HandleKey applies one key press. It reports false when the app should quit.
func (a *App) HandleKey(ev *tcell.EventKey) bool {
	now := a.now()
	switch ev.Key() {
	case tcell.KeyCtrlC:
		return false
	case tcell.KeyEscape:
		if !a.engine.GameView().Active {
			return false
		}
		a.engine.CloseGame()
		return true
	case tcell.KeyF5:
		a.setStatus(a.engine.ConsoleSecret())
		return true
	case tcell.KeyF6:
		a.mu.Lock()
		a.roadmaps++
		n := a.roadmaps
		a.mu.Unlock()
		a.engine.ViewPath(fmt.Sprintf("/roadmap/%d", n))
		a.setStatus(fmt.Sprintf("viewed roadmap %d", n))
		return true
	}
	if path, ok := ClickPath(ev); ok {
		a.engine.HandleClick(path, now)
		return true
	}
	if key, ok := KeyName(ev); ok {
		a.engine.HandleKey(key, now)
	}
	return true
}

func (a *App) pumpNotifications(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-a.bus.Notifications:
			if !ok {
				return
			}
			if n.Title != "" {
				a.setStatus(n.Title)
			}
			a.log.Debug("notification", zap.String("kind", n.Kind))
			a.screen.PostEvent(tcell.NewEventInterrupt(n))
		}
	}
}

func (a *App) setStatus(s string) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
}

func (a *App) Status() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Draw renders the current engine state.
func (a *App) Draw() {
	base := tcell.StyleDefault
	accent := base.Bold(true)
	if a.engine.RetroTheme() {
		base = base.Background(tcell.ColorBlack).Foreground(tcell.ColorGreen)
		accent = base.Bold(true)
	}
	a.screen.SetStyle(base)
	a.screen.Clear()

	drawText(a.screen, 0, 0, accent, "EdgeRoute")
	drawText(a.screen, 0, 1, base, helpLine)

	row := 3
	if view := a.engine.GameView(); view.Active {
		row = drawGame(a.screen, 0, row, base, accent, view) + 1
	}

	for _, ach := range a.engine.Achievements() {
		mark := "[ ]"
		if ach.Unlocked {
			mark = "[x]"
		}
		drawText(a.screen, 0, row, base, fmt.Sprintf("%s %s %s", mark, ach.Icon, ach.Name))
		row++
	}
	row++

	for _, t := range a.engine.Toasts() {
		line := t.Title
		if t.Message != "" {
			line += " " + t.Message
		}
		drawText(a.screen, 0, row, accent, line)
		row++
	}

	_, h := a.screen.Size()
	drawText(a.screen, 0, h-1, base, a.Status())
	a.screen.Show()
}

// drawGame draws the arena with its top-left corner at (x, y) and returns
// the last row used.
func drawGame(s tcell.Screen, x, y int, base, accent tcell.Style, view eggs.GameView) int {
	cols := view.Width / cellWidth
	rows := view.Height / cellHeight
	border := "+" + strings.Repeat("-", cols) + "+"
	drawText(s, x, y, base, border)
	for r := 0; r < rows; r++ {
		drawText(s, x, y+1+r, base, "|"+strings.Repeat(" ", cols)+"|")
	}
	drawText(s, x, y+rows+1, base, border)

	put := func(sq minigame.Square, ch rune) {
		cx := x + 1 + sq.X/cellWidth
		cy := y + 1 + sq.Y/cellHeight
		for dx := 0; dx < max(1, sq.Size/cellWidth); dx++ {
			s.SetContent(cx+dx, cy, ch, nil, accent)
		}
	}
	put(view.Goal, 'G')
	put(view.Player, 'P')

	last := y + rows + 1
	if view.Won {
		last++
		drawText(s, x, last, accent, minigame.WinMessage)
	}
	return last
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
