// Package notify keeps the short-lived toasts shown for achievements and
// easter eggs. Toasts dismiss themselves after their duration.
package notify

import (
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"edgeroute/internal/clock"
)

type Level string

const (
	LevelInfo        Level = "info"
	LevelAchievement Level = "achievement"
	LevelSecret      Level = "secret"
)

const (
	// DefaultDuration matches the fade-in/fade-out animation of the page toasts.
	DefaultDuration = 5 * time.Second
	DefaultMax      = 5
)

type Toast struct {
	ID        string        `json:"id"`
	Level     Level         `json:"level"`
	Title     string        `json:"title"`
	Message   string        `json:"message,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Center holds the active toasts of one session.
type Center struct {
	mu       sync.Mutex
	toasts   []*Toast
	cancels  map[string]clock.Cancel
	maxCount int
	sched    clock.Scheduler
	onChange func([]Toast)
}

func NewCenter(sched clock.Scheduler) *Center {
	if sched == nil {
		sched = clock.NewReal()
	}
	return &Center{
		cancels:  make(map[string]clock.Cancel),
		maxCount: DefaultMax,
		sched:    sched,
	}
}

// SetOnChange registers fn to receive the active toasts after every change.
func (c *Center) SetOnChange(fn func([]Toast)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Show adds a toast and returns its id. A duration <= 0 uses DefaultDuration.
func (c *Center) Show(level Level, title, message, detail string, duration time.Duration) string {
	if duration <= 0 {
		duration = DefaultDuration
	}
	now := c.sched.Now()
	toast := &Toast{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Level:     level,
		Title:     strings.TrimSpace(title),
		Message:   strings.TrimSpace(message),
		Detail:    strings.TrimSpace(detail),
		Duration:  duration,
		CreatedAt: now,
	}

	c.mu.Lock()
	c.toasts = append(c.toasts, toast)
	c.cancels[toast.ID] = c.sched.Schedule(duration, func() {
		c.Dismiss(toast.ID)
	})
	if overflow := len(c.toasts) - c.maxCount; overflow > 0 {
		for _, removed := range c.toasts[:overflow] {
			c.stopLocked(removed.ID)
		}
		c.toasts = c.toasts[overflow:]
	}
	snapshot := c.snapshotLocked()
	cb := c.onChange
	c.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
	return toast.ID
}

// Dismiss removes a toast. Unknown ids are ignored.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	idx := -1
	for i, t := range c.toasts {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	c.stopLocked(id)
	c.toasts = append(c.toasts[:idx], c.toasts[idx+1:]...)
	snapshot := c.snapshotLocked()
	cb := c.onChange
	c.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Active returns copies of the toasts currently shown, oldest first.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Clear drops every toast and its timer without notifying.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.cancels {
		c.stopLocked(id)
	}
	c.toasts = nil
}

func (c *Center) stopLocked(id string) {
	if cancel, ok := c.cancels[id]; ok {
		cancel()
		delete(c.cancels, id)
	}
}

func (c *Center) snapshotLocked() []Toast {
	out := make([]Toast, len(c.toasts))
	for i, t := range c.toasts {
		out[i] = *t
	}
	return out
}
