package sessions

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"edgeroute/internal/broadcast"
	"edgeroute/internal/eggs"
	"edgeroute/internal/events"
	"edgeroute/internal/storage"
	"edgeroute/internal/wshub"
)

// Session is one browser session of a visitor. Session-scoped state (the
// viewed roadmaps) lives and dies with it; unlocked achievements go to the
// visitor's durable store.
type Session struct {
	ID          string
	VisitorID   string
	Engine      *eggs.Engine
	Bus         *events.Bus
	Broadcaster *broadcast.Broadcaster
	Hub         *wshub.Hub
	Storage     *storage.Memory
	CreatedAt   time.Time

	limiter *rate.Limiter

	mu       sync.Mutex
	lastSeen time.Time
}

// Touch marks the session as active at now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// AllowInput reports whether the session may send another input event at now.
func (s *Session) AllowInput(now time.Time) bool {
	return s.limiter.AllowN(now, 1)
}

func (s *Session) close() {
	s.Engine.Close()
	s.Hub.CloseAll()
	s.Bus.Close()
}
