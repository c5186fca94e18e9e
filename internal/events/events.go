package events

import "sync"

const (
	KindAchievement = "achievement"
	KindKonami      = "konami"
	KindMinigame    = "minigame"
	KindTheme       = "theme"
	KindToasts      = "toasts"
	KindConsole     = "console"
)

// Notification is a presentation event for the clients of one session.
type Notification struct {
	Kind    string `json:"kind"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type Bus struct {
	Notifications chan Notification

	mu     sync.RWMutex
	closed bool
}

func NewBus() *Bus {
	return &Bus{
		Notifications: make(chan Notification, 32),
	}
}

// Publish queues n without blocking. It reports false when the bus is closed
// or its buffer is full.
func (b *Bus) Publish(n Notification) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.Notifications <- n:
		return true
	default:
		return false
	}
}

// Close ends the stream. Safe to call more than once.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.Notifications)
}
