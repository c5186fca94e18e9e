package terminal

import (
	"github.com/gdamore/tcell/v2"

	"edgeroute/internal/sequence"
)

// KeyName maps a terminal key press to the browser KeyboardEvent.key value
// the sequences are written in.
func KeyName(ev *tcell.EventKey) (string, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return "ArrowUp", true
	case tcell.KeyDown:
		return "ArrowDown", true
	case tcell.KeyLeft:
		return "ArrowLeft", true
	case tcell.KeyRight:
		return "ArrowRight", true
	case tcell.KeyEnter:
		return "Enter", true
	case tcell.KeyRune:
		if ev.Rune() == ' ' {
			return " ", true
		}
		return string(ev.Rune()), true
	}
	return "", false
}

// Function keys stand in for clicks on page landmarks.
var clickKeys = map[tcell.Key][]sequence.Element{
	tcell.KeyF1: {{Classes: []string{"navbar-brand"}}},
	tcell.KeyF2: {{Classes: []string{"nav-link"}, Href: "/auth/profile"}},
	tcell.KeyF3: {{Classes: []string{"content"}}},
}

// ClickPath returns the simulated click path for a function key.
func ClickPath(ev *tcell.EventKey) ([]sequence.Element, bool) {
	p, ok := clickKeys[ev.Key()]
	return p, ok
}
