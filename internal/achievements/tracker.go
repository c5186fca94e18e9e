// Package achievements tracks hidden achievements: distinct roadmap views,
// click bursts, time-of-day checks and one-shot secrets. Each achievement
// unlocks at most once per visitor; unlocked ids are persisted in the
// visitor's durable store and restored when a tracker starts.
package achievements

import (
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"edgeroute/internal/clock"
	"edgeroute/internal/storage"
)

type Options struct {
	Definitions []Definition
	// Durable survives sessions (unlocked ids). Nil keeps state in memory.
	Durable storage.Store
	// Session lives as long as the browser session (viewed roadmaps).
	Session   storage.Store
	Scheduler clock.Scheduler
	Logger    *zap.Logger
	OnUnlock  func(Unlocked)
}

type entry struct {
	def      Definition
	unlocked bool
	counter  int
	gen      uint64
	cancel   clock.Cancel
}

type Tracker struct {
	mu      sync.Mutex
	entries []*entry
	byID    map[string]*entry

	durable   storage.Store
	session   storage.Store
	durableOK bool
	sessionOK bool
	unlocked  []string
	viewed    []string

	sched    clock.Scheduler
	log      *zap.Logger
	onUnlock func(Unlocked)
}

// New restores persisted state and evaluates time-of-day predicates. Any
// predicate that holds unlocks immediately, so OnUnlock may be called before
// New returns.
func New(opts Options) *Tracker {
	defs := opts.Definitions
	if defs == nil {
		defs = Builtin
	}
	t := &Tracker{
		byID:      make(map[string]*entry, len(defs)),
		durable:   opts.Durable,
		session:   opts.Session,
		durableOK: opts.Durable != nil,
		sessionOK: opts.Session != nil,
		sched:     opts.Scheduler,
		log:       opts.Logger,
		onUnlock:  opts.OnUnlock,
	}
	if t.sched == nil {
		t.sched = clock.NewReal()
	}
	if t.log == nil {
		t.log = zap.NewNop()
	}
	for _, d := range defs {
		e := &entry{def: d}
		t.entries = append(t.entries, e)
		t.byID[d.ID] = e
	}

	t.restore()

	var fired []Unlocked
	t.mu.Lock()
	hour := t.sched.Now().Hour()
	for _, e := range t.entries {
		if e.def.Trigger != TriggerPredicate || e.def.Hours == nil {
			continue
		}
		if e.def.Hours.Contains(hour) {
			if n, ok := t.unlockLocked(e); ok {
				fired = append(fired, n)
			}
		}
	}
	t.mu.Unlock()
	t.notify(fired)
	return t
}

func (t *Tracker) restore() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.durableOK {
		list, err := storage.LoadList(t.durable, UnlockedKey)
		switch {
		case errors.Is(err, storage.ErrCorrupt):
			t.log.Warn("discarding unreadable unlocked list", zap.Error(err))
		case err != nil:
			t.log.Warn("durable store unavailable, achievements will not persist", zap.Error(err))
			t.durableOK = false
		}
		t.unlocked = list
		for _, id := range list {
			if e, ok := t.byID[id]; ok {
				e.unlocked = true
			}
		}
	}

	if t.sessionOK {
		list, err := storage.LoadList(t.session, ViewedKey)
		switch {
		case errors.Is(err, storage.ErrCorrupt):
			t.log.Warn("discarding unreadable viewed list", zap.Error(err))
		case err != nil:
			t.log.Warn("session store unavailable", zap.Error(err))
			t.sessionOK = false
		}
		t.viewed = list
		for _, e := range t.entries {
			if e.def.Trigger == TriggerDistinct {
				e.counter = len(list)
			}
		}
	}
}

// RecordEvent feeds one event to every achievement listening for kind.
// Unknown kinds are ignored.
func (t *Tracker) RecordEvent(kind EventKind, p Payload) {
	var fired []Unlocked
	t.mu.Lock()
	for _, e := range t.entries {
		if e.def.Event != kind {
			continue
		}
		var n Unlocked
		var ok bool
		switch e.def.Trigger {
		case TriggerDistinct:
			n, ok = t.recordDistinctLocked(e, p.ResourceID)
		case TriggerBurst:
			n, ok = t.recordBurstLocked(e)
		case TriggerOnce:
			n, ok = t.unlockLocked(e)
		}
		if ok {
			fired = append(fired, n)
		}
	}
	t.mu.Unlock()
	t.notify(fired)
}

func (t *Tracker) recordDistinctLocked(e *entry, id string) (Unlocked, bool) {
	if id == "" {
		return Unlocked{}, false
	}
	if !slices.Contains(t.viewed, id) {
		t.viewed = append(t.viewed, id)
		if t.sessionOK {
			if err := storage.SaveList(t.session, ViewedKey, t.viewed); err != nil {
				t.log.Warn("session store write failed, viewed roadmaps kept in memory", zap.Error(err))
				t.sessionOK = false
			}
		}
	}
	if e.counter == len(t.viewed) {
		// Duplicate view: nothing crossed.
		return Unlocked{}, false
	}
	e.counter = len(t.viewed)
	if e.counter >= e.def.Threshold {
		return t.unlockLocked(e)
	}
	return Unlocked{}, false
}

func (t *Tracker) recordBurstLocked(e *entry) (Unlocked, bool) {
	if e.unlocked {
		return Unlocked{}, false
	}
	e.counter++
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen := e.gen
	e.cancel = t.sched.Schedule(e.def.Window, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		// A newer event replaced this timer; its cancel may have lost the race.
		if e.gen != gen {
			return
		}
		e.counter = 0
		e.cancel = nil
	})
	if e.counter >= e.def.Threshold {
		e.cancel()
		e.cancel = nil
		return t.unlockLocked(e)
	}
	return Unlocked{}, false
}

// Unlock marks id unlocked and notifies once. It reports whether this call
// performed the unlock; unknown or already-unlocked ids return false.
func (t *Tracker) Unlock(id string) bool {
	t.mu.Lock()
	e, ok := t.byID[id]
	if !ok {
		t.mu.Unlock()
		return false
	}
	n, ok := t.unlockLocked(e)
	t.mu.Unlock()
	if ok {
		t.notify([]Unlocked{n})
	}
	return ok
}

func (t *Tracker) unlockLocked(e *entry) (Unlocked, bool) {
	if e.unlocked {
		return Unlocked{}, false
	}

	if !t.durableOK {
		e.unlocked = true
		if !slices.Contains(t.unlocked, e.def.ID) {
			t.unlocked = append(t.unlocked, e.def.ID)
		}
	} else if !t.persistUnlockLocked(e) {
		return Unlocked{}, false
	}

	t.log.Info("achievement unlocked", zap.String("achievement", e.def.ID))
	return Unlocked{
		ID:          e.def.ID,
		Name:        e.def.Name,
		Description: e.def.Description,
		Icon:        e.def.Icon,
		At:          t.sched.Now(),
	}, true
}

// durableMu serialises read-merge-write of durable lists. Several sessions
// of one visitor share a list, each through its own tracker.
var durableMu sync.Mutex

// persistUnlockLocked re-reads the durable list, merges it with what this
// tracker knows and appends e. It reports false when another tracker had
// already unlocked e; that entry is marked without firing.
func (t *Tracker) persistUnlockLocked(e *entry) bool {
	durableMu.Lock()
	defer durableMu.Unlock()

	id := e.def.ID
	stored, err := storage.LoadList(t.durable, UnlockedKey)
	switch {
	case errors.Is(err, storage.ErrCorrupt):
		t.log.Warn("rewriting unreadable unlocked list", zap.Error(err))
	case err != nil:
		t.log.Warn("durable store read failed, achievements kept in memory",
			zap.String("achievement", id), zap.Error(err))
		t.durableOK = false
	}

	for _, other := range stored {
		if o, ok := t.byID[other]; ok {
			o.unlocked = true
		}
	}
	merged := stored
	for _, known := range t.unlocked {
		if !slices.Contains(merged, known) {
			merged = append(merged, known)
		}
	}
	t.unlocked = merged
	if e.unlocked {
		return false
	}

	e.unlocked = true
	t.unlocked = append(t.unlocked, id)
	if !t.durableOK {
		return true
	}
	if err := storage.SaveList(t.durable, UnlockedKey, t.unlocked); err != nil {
		t.log.Warn("durable store write failed, achievements kept in memory",
			zap.String("achievement", id), zap.Error(err))
		t.durableOK = false
	}
	return true
}

func (t *Tracker) notify(fired []Unlocked) {
	if t.onUnlock == nil {
		return
	}
	for _, n := range fired {
		t.onUnlock(n)
	}
}

// IsUnlocked reports whether id is unlocked. Unknown ids are locked.
func (t *Tracker) IsUnlocked(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byID[id]
	return ok && e.unlocked
}

// Snapshot lists every achievement in definition order.
func (t *Tracker) Snapshot() []Achievement {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Achievement, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, Achievement{Definition: e.def, Unlocked: e.unlocked, Counter: e.counter})
	}
	return out
}

// Viewed returns the distinct resource ids seen this session, in order.
func (t *Tracker) Viewed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.viewed)
}

// Persistent reports whether unlocks are still reaching the durable store.
func (t *Tracker) Persistent() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.durableOK
}

// Close cancels pending burst timers.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
		e.gen++
	}
}
