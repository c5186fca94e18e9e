package clock

import (
	"sort"
	"sync"
	"time"
)

type pending struct {
	id       uint64
	deadline time.Time
	fn       func()
}

// Manual is a virtual clock. Time only moves when Advance or Set is called,
// and callbacks fire synchronously on the calling goroutine.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	nextID  uint64
	pending map[uint64]pending
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:     start,
		pending: make(map[uint64]pending),
	}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Schedule(delay time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.pending[id] = pending{id: id, deadline: m.now.Add(delay), fn: fn}
	return func() {
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
	}
}

// Pending reports how many callbacks are still scheduled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Advance moves the clock forward by d, firing every callback whose deadline
// is reached in deadline order. Callbacks may schedule or cancel others.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	m.runUntil(target)
}

// Set jumps the clock to t. Moving backwards fires nothing.
func (m *Manual) Set(t time.Time) {
	m.runUntil(t)
}

func (m *Manual) runUntil(target time.Time) {
	for {
		m.mu.Lock()
		next, ok := m.nextDueLocked(target)
		if !ok {
			m.now = target
			m.mu.Unlock()
			return
		}
		delete(m.pending, next.id)
		if next.deadline.After(m.now) {
			m.now = next.deadline
		}
		m.mu.Unlock()

		next.fn()
	}
}

func (m *Manual) nextDueLocked(target time.Time) (pending, bool) {
	due := make([]pending, 0, len(m.pending))
	for _, p := range m.pending {
		if !p.deadline.After(target) {
			due = append(due, p)
		}
	}
	if len(due) == 0 {
		return pending{}, false
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline.Equal(due[j].deadline) {
			return due[i].id < due[j].id
		}
		return due[i].deadline.Before(due[j].deadline)
	})
	return due[0], true
}
