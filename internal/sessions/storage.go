package sessions

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"edgeroute/internal/achievements"
	"edgeroute/internal/broadcast"
	"edgeroute/internal/clock"
	"edgeroute/internal/eggs"
	"edgeroute/internal/events"
	"edgeroute/internal/metrics"
	"edgeroute/internal/storage"
	"edgeroute/internal/wshub"
)

const (
	defaultTTL           = 1 * time.Hour
	defaultSweepInterval = 5 * time.Minute
	defaultMaxSessions   = 10000
)

type Options struct {
	Eggs *eggs.Config
	// Durable holds unlocked achievements per visitor. Nil keeps them in
	// memory for the life of the process.
	Durable       storage.Backend
	Scheduler     clock.Scheduler
	Logger        *zap.Logger
	TTL           time.Duration
	SweepInterval time.Duration
	InputRate     float64
	InputBurst    int
	// MaxSessions caps live sessions; the least recently seen is evicted
	// to make room.
	MaxSessions int
	OnUnlock    func(visitorID string, u achievements.Unlocked)
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     Options
	log      *zap.Logger

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewStore(opts Options) *Store {
	if opts.Durable == nil {
		opts.Durable = storage.NewMemory()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = clock.NewReal()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	if opts.InputRate <= 0 {
		opts.InputRate = float64(rate.Inf)
	}
	if opts.InputBurst <= 0 {
		opts.InputBurst = 1
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = defaultMaxSessions
	}
	s := &Store{
		sessions: make(map[string]*Session),
		opts:     opts,
		log:      opts.Logger.With(zap.String("component", "sessions")),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.sweepStale()
	return s
}

func (s *Store) Create(visitorID string) (*Session, error) {
	if visitorID == "" {
		return nil, fmt.Errorf("creating session: empty visitor id")
	}
	now := s.opts.Scheduler.Now()
	id := uuid.NewString()
	log := s.log.With(zap.String("session", id), zap.String("visitor", visitorID))

	bus := events.NewBus()
	mem := storage.NewMemory()
	engine, err := eggs.New(eggs.Options{
		Config:    s.opts.Eggs,
		Durable:   storage.Scoped(s.opts.Durable, visitorID),
		Session:   mem,
		Scheduler: s.opts.Scheduler,
		Bus:       bus,
		Logger:    log,
		OnUnlock: func(u achievements.Unlocked) {
			metrics.AchievementUnlocked(u.ID)
			if s.opts.OnUnlock != nil {
				s.opts.OnUnlock(visitorID, u)
			}
		},
		OnMatch: metrics.SequenceMatched,
	})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("creating session engine: %w", err)
	}

	hub := wshub.NewHub(log)
	b := broadcast.NewBroadcaster(bus)
	b.AddRelay(hub.Notify)

	sess := &Session{
		ID:          id,
		VisitorID:   visitorID,
		Engine:      engine,
		Bus:         bus,
		Broadcaster: b,
		Hub:         hub,
		Storage:     mem,
		CreatedAt:   now,
		limiter:     rate.NewLimiter(rate.Limit(s.opts.InputRate), s.opts.InputBurst),
		lastSeen:    now,
	}

	s.mu.Lock()
	var evicted *Session
	if len(s.sessions) >= s.opts.MaxSessions {
		evicted = s.oldestLocked()
		delete(s.sessions, evicted.ID)
	}
	s.sessions[id] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	if evicted != nil {
		evicted.close()
		log.Info("session limit reached, evicted least recently seen", zap.String("evicted", evicted.ID))
	}
	metrics.SetActiveSessions(n)
	log.Debug("session created")
	return sess, nil
}

func (s *Store) oldestLocked() *Session {
	var oldest *Session
	for _, sess := range s.sessions {
		if oldest == nil || sess.LastSeen().Before(oldest.LastSeen()) {
			oldest = sess
		}
	}
	return oldest
}

// ForVisitor returns the visitor's most recently seen live session, or nil.
func (s *Store) ForVisitor(visitorID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *Session
	for _, sess := range s.sessions {
		if sess.VisitorID != visitorID {
			continue
		}
		if latest == nil || sess.LastSeen().After(latest.LastSeen()) {
			latest = sess
		}
	}
	return latest
}

func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	if ok {
		sess.close()
		metrics.SetActiveSessions(n)
	}
}

func (s *Store) List() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	return list
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// it removed.
func (s *Store) Sweep(now time.Time) int {
	var stale []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastSeen()) > s.opts.TTL {
			delete(s.sessions, id)
			stale = append(stale, sess)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range stale {
		sess.close()
	}
	if len(stale) > 0 {
		metrics.SetActiveSessions(n)
		s.log.Debug("swept idle sessions", zap.Int("removed", len(stale)))
	}
	return len(stale)
}

// Close stops the sweeper and closes every session.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done

		s.mu.Lock()
		all := s.sessions
		s.sessions = make(map[string]*Session)
		s.mu.Unlock()

		for _, sess := range all {
			sess.close()
		}
		metrics.SetActiveSessions(0)
	})
}

func (s *Store) sweepStale() {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep(s.opts.Scheduler.Now())
		}
	}
}
