package sessions

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"edgeroute/internal/achievements"
	"edgeroute/internal/clock"
	"edgeroute/internal/events"
	"edgeroute/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var noon = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts Options) (*Store, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(noon)
	if opts.Scheduler == nil {
		opts.Scheduler = clk
	}
	s := NewStore(opts)
	t.Cleanup(s.Close)
	return s, clk
}

func TestNewStore(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	assert.Zero(t, s.Count())
	assert.Empty(t, s.List())
}

func TestStore_Create(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	sess, err := s.Create("visitor-1")
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "visitor-1", sess.VisitorID)
	assert.NotNil(t, sess.Engine)
	assert.NotNil(t, sess.Broadcaster)
	assert.NotNil(t, sess.Hub)
	assert.Equal(t, noon, sess.CreatedAt)
	assert.Same(t, sess, s.Get(sess.ID))
	assert.Nil(t, s.Get("missing"))

	_, err = s.Create("")
	assert.Error(t, err)
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	sess, err := s.Create("visitor-1")
	require.NoError(t, err)

	s.Delete(sess.ID)
	s.Delete(sess.ID)

	assert.Nil(t, s.Get(sess.ID))
	select {
	case <-sess.Broadcaster.Done():
	case <-time.After(time.Second):
		t.Fatal("broadcaster still running after delete")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Create("visitor")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Count())
	assert.Len(t, s.List(), 50)
}

func TestStore_SweepRemovesIdleSessions(t *testing.T) {
	s, clk := newTestStore(t, Options{TTL: time.Minute})
	idle, err := s.Create("visitor-1")
	require.NoError(t, err)
	active, err := s.Create("visitor-2")
	require.NoError(t, err)

	clk.Advance(50 * time.Second)
	active.Touch(clk.Now())
	clk.Advance(20 * time.Second)

	assert.Equal(t, 1, s.Sweep(clk.Now()))
	assert.Nil(t, s.Get(idle.ID))
	assert.NotNil(t, s.Get(active.ID))
}

func TestStore_SessionIsolation(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	a, err := s.Create("visitor-1")
	require.NoError(t, err)
	b, err := s.Create("visitor-2")
	require.NoError(t, err)

	a.Engine.ViewPath("/roadmap/1")
	assert.Equal(t, 1, a.Storage.Len())
	assert.Zero(t, b.Storage.Len())
}

func TestStore_DurableSharedAcrossSessionsOfVisitor(t *testing.T) {
	durable := storage.NewMemory()
	var mu sync.Mutex
	var unlocks []string
	s, _ := newTestStore(t, Options{
		Durable: durable,
		OnUnlock: func(visitorID string, u achievements.Unlocked) {
			mu.Lock()
			unlocks = append(unlocks, visitorID+":"+u.ID)
			mu.Unlock()
		},
	})

	first, err := s.Create("visitor-1")
	require.NoError(t, err)
	first.Engine.ConsoleSecret()

	second, err := s.Create("visitor-1")
	require.NoError(t, err)
	assert.Equal(t, first.VisitorID, second.VisitorID)
	second.Engine.ConsoleSecret()

	other, err := s.Create("visitor-2")
	require.NoError(t, err)
	other.Engine.ConsoleSecret()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"visitor-1:console-explorer", "visitor-2:console-explorer"}, unlocks)
}

func TestSession_NotificationsReachSubscribers(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	sess, err := s.Create("visitor-1")
	require.NoError(t, err)

	ch := sess.Broadcaster.Subscribe()
	defer sess.Broadcaster.Unsubscribe(ch)

	sess.Engine.ConsoleSecret()

	select {
	case msg := <-ch:
		assert.Equal(t, events.KindConsole, msg.Event)
	case <-time.After(time.Second):
		t.Fatal("no notification received")
	}
}

func TestSession_AllowInput(t *testing.T) {
	s, clk := newTestStore(t, Options{InputRate: 1, InputBurst: 2})
	sess, err := s.Create("visitor-1")
	require.NoError(t, err)

	now := clk.Now()
	assert.True(t, sess.AllowInput(now))
	assert.True(t, sess.AllowInput(now))
	assert.False(t, sess.AllowInput(now))
	assert.True(t, sess.AllowInput(now.Add(time.Second)))
}

func TestStore_Close(t *testing.T) {
	s := NewStore(Options{Scheduler: clock.NewManual(noon)})
	sess, err := s.Create("visitor-1")
	require.NoError(t, err)

	s.Close()
	s.Close()

	assert.Zero(t, s.Count())
	select {
	case <-sess.Broadcaster.Done():
	case <-time.After(time.Second):
		t.Fatal("broadcaster still running after close")
	}
}

func TestStore_ForVisitor(t *testing.T) {
	s, clk := newTestStore(t, Options{})
	assert.Nil(t, s.ForVisitor("visitor-1"))

	first, err := s.Create("visitor-1")
	require.NoError(t, err)
	second, err := s.Create("visitor-1")
	require.NoError(t, err)
	_, err = s.Create("visitor-2")
	require.NoError(t, err)

	second.Touch(clk.Now().Add(time.Minute))
	assert.Same(t, second, s.ForVisitor("visitor-1"))
	first.Touch(clk.Now().Add(2 * time.Minute))
	assert.Same(t, first, s.ForVisitor("visitor-1"))
	assert.Nil(t, s.ForVisitor("visitor-3"))
}

func TestStore_MaxSessionsEvictsLeastRecentlySeen(t *testing.T) {
	s, clk := newTestStore(t, Options{MaxSessions: 2})

	oldest, err := s.Create("visitor-1")
	require.NoError(t, err)
	clk.Advance(time.Second)
	kept, err := s.Create("visitor-2")
	require.NoError(t, err)
	clk.Advance(time.Second)
	oldest.Touch(clk.Now())
	clk.Advance(time.Second)

	newest, err := s.Create("visitor-3")
	require.NoError(t, err)

	assert.Equal(t, 2, s.Count())
	assert.Nil(t, s.Get(kept.ID))
	assert.Same(t, oldest, s.Get(oldest.ID))
	assert.Same(t, newest, s.Get(newest.ID))
	select {
	case <-kept.Broadcaster.Done():
	case <-time.After(time.Second):
		t.Fatal("evicted session still running")
	}
}

func TestStore_DeleteEndsEventStreams(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	sess, err := s.Create("visitor-1")
	require.NoError(t, err)
	ch := sess.Broadcaster.Subscribe()

	s.Delete(sess.ID)

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscriber still attached to deleted session")
	}
}
