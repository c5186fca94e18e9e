// Package sequence detects ordered input sequences (key codes, classified
// clicks) in a stream of tokens.
//
// Each registered sequence keeps its own cursor. A token equal to the next
// expected one advances the cursor; anything else resets it, with an
// immediate restart when the token is the sequence's first. A per-sequence
// inactivity timeout resets progress before the comparison.
package sequence

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Token is one classified unit of input.
type Token string

// NoMatch is the token for input outside the tracked vocabulary. It never
// equals a registered token, so feeding it always resets progress.
const NoMatch Token = "\x00no-match"

// ErrEmptySequence is returned when registering a sequence without tokens.
var ErrEmptySequence = errors.New("sequence has no tokens")

// DuplicateIDError is returned by Register when the id is already taken.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("sequence %q already registered", e.ID)
}

// Match is delivered when a sequence completes.
type Match struct {
	SequenceID string
	At         time.Time
}

type state struct {
	id        string
	tokens    []Token
	cursor    int
	lastInput time.Time
	timeout   time.Duration
}

// Matcher tracks any number of sequences against one input stream.
type Matcher struct {
	mu        sync.Mutex
	sequences []*state
	byID      map[string]*state
	onMatch   func(Match)
}

// NewMatcher creates a matcher that reports completed sequences to onMatch.
// onMatch may be nil.
func NewMatcher(onMatch func(Match)) *Matcher {
	return &Matcher{
		byID:    make(map[string]*state),
		onMatch: onMatch,
	}
}

// Register adds a sequence with cursor 0. A timeout <= 0 disables the
// inactivity reset.
func (m *Matcher) Register(id string, tokens []Token, timeout time.Duration) error {
	if len(tokens) == 0 {
		return fmt.Errorf("registering %q: %w", id, ErrEmptySequence)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[id]; exists {
		return &DuplicateIDError{ID: id}
	}
	st := &state{
		id:      id,
		tokens:  append([]Token(nil), tokens...),
		timeout: timeout,
	}
	m.sequences = append(m.sequences, st)
	m.byID[id] = st
	return nil
}

// OnInput feeds one token observed at the given time to every sequence.
// Matches are reported after internal state is updated, in registration
// order, on the calling goroutine.
func (m *Matcher) OnInput(token Token, at time.Time) {
	m.mu.Lock()
	var matched []Match
	for _, st := range m.sequences {
		if st.advance(token, at) {
			matched = append(matched, Match{SequenceID: st.id, At: at})
		}
	}
	cb := m.onMatch
	m.mu.Unlock()

	if cb == nil {
		return
	}
	for _, match := range matched {
		cb(match)
	}
}

// Cursor returns the progress of a sequence, or -1 when the id is unknown.
func (m *Matcher) Cursor(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.byID[id]
	if !ok {
		return -1
	}
	return st.cursor
}

// Reset clears the progress of every sequence.
func (m *Matcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.sequences {
		st.cursor = 0
	}
}

// IDs lists registered sequences in registration order.
func (m *Matcher) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sequences))
	for _, st := range m.sequences {
		ids = append(ids, st.id)
	}
	return ids
}

func (st *state) advance(token Token, at time.Time) bool {
	if st.timeout > 0 && st.cursor > 0 && at.Sub(st.lastInput) > st.timeout {
		st.cursor = 0
	}
	st.lastInput = at

	switch {
	case token == st.tokens[st.cursor]:
		st.cursor++
	case token == st.tokens[0]:
		st.cursor = 1
	default:
		st.cursor = 0
	}

	if st.cursor == len(st.tokens) {
		st.cursor = 0
		return true
	}
	return false
}
