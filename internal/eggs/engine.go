// Package eggs wires the sequence matchers, the achievement tracker, the toast
// centre and the Konami mini-game into one engine per browser session.
package eggs

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"edgeroute/internal/achievements"
	"edgeroute/internal/clock"
	"edgeroute/internal/events"
	"edgeroute/internal/minigame"
	"edgeroute/internal/notify"
	"edgeroute/internal/sequence"
	"edgeroute/internal/storage"
)

const (
	AchievementToastTitle = "Achievement Unlocked!"
	ThemeOnTitle          = "Secret Retro Theme Activated!"
	ThemeOffTitle         = "Retro Theme Deactivated!"
	KonamiTitle           = "Konami Code!"
	RetroThemeName        = "retro"
)

// GameView is the mini-game as sent to clients.
type GameView struct {
	Active bool `json:"active"`
	minigame.State
}

// ThemeView reports the secret theme state.
type ThemeView struct {
	Theme  string `json:"theme"`
	Active bool   `json:"active"`
}

type Options struct {
	Config    *Config
	Durable   storage.Store
	Session   storage.Store
	Scheduler clock.Scheduler
	// Bus receives presentation events. Nil discards them.
	Bus    *events.Bus
	Logger *zap.Logger
	// OnUnlock and OnMatch are called after the engine has handled the event.
	OnUnlock func(achievements.Unlocked)
	OnMatch  func(sequenceID string)
}

type Engine struct {
	keys       *sequence.Matcher
	clicks     *sequence.Matcher
	classifier *sequence.Classifier
	actions    map[string]Action

	tracker *achievements.Tracker
	toasts  *notify.Center
	game    *minigame.Game

	mu         sync.Mutex
	gameActive bool
	retro      bool

	bus      *events.Bus
	sched    clock.Scheduler
	log      *zap.Logger
	onUnlock func(achievements.Unlocked)
	onMatch  func(string)
}

// New builds an engine. Time-of-day achievements are checked here, so
// OnUnlock may run before New returns.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = Default(); err != nil {
			return nil, err
		}
	}
	e := &Engine{
		classifier: sequence.NewClassifier(cfg.Landmarks),
		actions:    make(map[string]Action, len(cfg.Sequences)),
		game:       minigame.New(),
		bus:        opts.Bus,
		sched:      opts.Scheduler,
		log:        opts.Logger,
		onUnlock:   opts.OnUnlock,
		onMatch:    opts.OnMatch,
	}
	if e.sched == nil {
		e.sched = clock.NewReal()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	e.log = e.log.With(zap.String("component", "eggs"))

	e.keys = sequence.NewMatcher(e.handleMatch)
	e.clicks = sequence.NewMatcher(e.handleMatch)
	for _, s := range cfg.Sequences {
		m := e.keys
		if s.Input == InputClick {
			m = e.clicks
		}
		if err := m.Register(s.ID, s.tokens(), s.Timeout); err != nil {
			return nil, fmt.Errorf("registering sequence %s: %w", s.ID, err)
		}
		e.actions[s.ID] = s.Action
	}

	e.log.Debug("sequences registered",
		zap.Strings("keys", e.keys.IDs()), zap.Strings("clicks", e.clicks.IDs()))

	e.toasts = notify.NewCenter(e.sched)
	e.toasts.SetOnChange(func(active []notify.Toast) {
		e.publish(events.Notification{Kind: events.KindToasts, Data: active})
	})

	defs := cfg.Achievements
	if defs == nil {
		defs = []achievements.Definition{}
	}
	e.tracker = achievements.New(achievements.Options{
		Definitions: defs,
		Durable:     opts.Durable,
		Session:     opts.Session,
		Scheduler:   e.sched,
		Logger:      e.log,
		OnUnlock:    e.handleUnlock,
	})
	return e, nil
}

// HandleKey feeds one keyboard key. While the mini-game is open, arrow keys
// also move the player.
func (e *Engine) HandleKey(key string, at time.Time) {
	if key == "" {
		return
	}
	e.mu.Lock()
	active := e.gameActive
	e.mu.Unlock()

	if active {
		if d, ok := minigame.DirectionForKey(key); ok {
			e.move(d)
		}
	}
	e.keys.OnInput(sequence.Token(key), at)
}

// HandleClick classifies a click path, feeds the click sequences and counts
// the click towards burst achievements.
func (e *Engine) HandleClick(path []sequence.Element, at time.Time) sequence.Token {
	token := e.classifier.Classify(path)
	e.clicks.OnInput(token, at)
	e.tracker.RecordEvent(achievements.EventClick, achievements.Payload{})
	return token
}

// ViewPath records a roadmap page view. It reports whether the path counted.
func (e *Engine) ViewPath(path string) bool {
	id, ok := RoadmapID(path)
	if !ok {
		return false
	}
	e.tracker.RecordEvent(achievements.EventResourceView, achievements.Payload{ResourceID: id})
	return true
}

// RoadmapID extracts the roadmap id from /roadmap/{id}[/...] paths. The
// creation page does not count.
func RoadmapID(path string) (string, bool) {
	if !strings.HasPrefix(path, "/roadmap/") || strings.Contains(path, "/create") {
		return "", false
	}
	parts := strings.Split(path, "/")
	if len(parts) < 3 || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

// ConsoleSecret is the reward for calling the console function.
func (e *Engine) ConsoleSecret() string {
	e.publish(events.Notification{
		Kind:    events.KindConsole,
		Message: ConsoleReward,
		Data:    SecretMessageLines,
	})
	e.tracker.RecordEvent(achievements.EventConsoleSecret, achievements.Payload{})
	return ConsoleReward
}

// CloseGame closes the mini-game overlay.
func (e *Engine) CloseGame() {
	e.mu.Lock()
	if !e.gameActive {
		e.mu.Unlock()
		return
	}
	e.gameActive = false
	e.mu.Unlock()
	// Arrows pressed while playing must not count towards the next code.
	e.keys.Reset()
	e.publish(events.Notification{Kind: events.KindMinigame, Data: e.GameView()})
}

// DismissToast removes a toast before it expires.
func (e *Engine) DismissToast(id string) {
	e.toasts.Dismiss(id)
}

func (e *Engine) GameView() GameView {
	e.mu.Lock()
	active := e.gameActive
	e.mu.Unlock()
	return GameView{Active: active, State: e.game.Snapshot()}
}

func (e *Engine) RetroTheme() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.retro
}

func (e *Engine) Achievements() []achievements.Achievement {
	return e.tracker.Snapshot()
}

func (e *Engine) Toasts() []notify.Toast {
	return e.toasts.Active()
}

// Persistent reports whether achievements still reach durable storage.
func (e *Engine) Persistent() bool {
	return e.tracker.Persistent()
}

// Close stops pending timers and drops toasts.
func (e *Engine) Close() {
	e.tracker.Close()
	e.toasts.Clear()
}

func (e *Engine) move(d minigame.Direction) {
	won := e.game.Move(d)
	n := events.Notification{Kind: events.KindMinigame, Data: e.GameView()}
	if won {
		n.Title = minigame.WinMessage
		e.log.Info("mini-game won")
	}
	e.publish(n)
}

func (e *Engine) handleMatch(m sequence.Match) {
	e.log.Info("sequence matched", zap.String("sequence", m.SequenceID))
	switch e.actions[m.SequenceID] {
	case ActionMinigame:
		e.game.Reset()
		e.mu.Lock()
		e.gameActive = true
		e.mu.Unlock()
		e.publish(events.Notification{Kind: events.KindKonami, Title: KonamiTitle, Data: e.GameView()})
	case ActionTheme:
		e.mu.Lock()
		e.retro = !e.retro
		on := e.retro
		e.mu.Unlock()
		title := ThemeOffTitle
		if on {
			title = ThemeOnTitle
		}
		e.toasts.Show(notify.LevelSecret, title, "", "", 0)
		e.publish(events.Notification{Kind: events.KindTheme, Title: title, Data: ThemeView{Theme: RetroThemeName, Active: on}})
	}
	if e.onMatch != nil {
		e.onMatch(m.SequenceID)
	}
}

func (e *Engine) handleUnlock(u achievements.Unlocked) {
	e.toasts.Show(notify.LevelAchievement, AchievementToastTitle, u.Name, u.Description, 0)
	e.publish(events.Notification{
		Kind:    events.KindAchievement,
		Title:   AchievementToastTitle,
		Message: u.Name,
		Data:    u,
	})
	if e.onUnlock != nil {
		e.onUnlock(u)
	}
}

func (e *Engine) publish(n events.Notification) {
	if e.bus == nil {
		return
	}
	if !e.bus.Publish(n) {
		e.log.Debug("notification dropped", zap.String("kind", n.Kind))
	}
}
