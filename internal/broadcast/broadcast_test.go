package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/goleak"

	"edgeroute/internal/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newBroadcaster(t *testing.T) (*events.Bus, *Broadcaster) {
	t.Helper()
	bus := events.NewBus()
	b := NewBroadcaster(bus)
	t.Cleanup(func() {
		bus.Close()
		<-b.Done()
	})
	return bus, b
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	_, b := newBroadcaster(t)

	ch := b.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() returned nil")
	}

	b.Mu.Lock()
	if len(b.Clients) != 1 {
		t.Errorf("clients count = %d, want 1", len(b.Clients))
	}
	b.Mu.Unlock()

	b.Unsubscribe(ch)
	b.Unsubscribe(ch)

	b.Mu.Lock()
	if len(b.Clients) != 0 {
		t.Errorf("clients count after unsubscribe = %d, want 0", len(b.Clients))
	}
	b.Mu.Unlock()
}

func TestBroadcaster_BroadcastOOB(t *testing.T) {
	_, b := newBroadcaster(t)

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	b.BroadcastOOB("test-event", "hello")

	for i, ch := range []chan Message{ch1, ch2} {
		select {
		case msg := <-ch:
			if msg.Event != "test-event" || msg.Data != "hello" {
				t.Errorf("ch%d got %+v, want event=test-event, data=hello", i+1, msg)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("ch%d timed out", i+1)
		}
	}

	b.Unsubscribe(ch1)
	b.Unsubscribe(ch2)
}

func TestBroadcaster_SkipsFullChannels(t *testing.T) {
	_, b := newBroadcaster(t)

	ch := b.Subscribe()

	// Fill the channel buffer (capacity 10)
	for i := 0; i < 10; i++ {
		b.BroadcastOOB("fill", "data")
	}

	done := make(chan bool)
	go func() {
		b.BroadcastOOB("overflow", "data")
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("BroadcastOOB blocked on full channel")
	}

	b.Unsubscribe(ch)
}

func TestBroadcaster_ForwardsBusNotifications(t *testing.T) {
	bus, b := newBroadcaster(t)

	ch := b.Subscribe()
	relayed := make(chan events.Notification, 1)
	b.AddRelay(func(n events.Notification) { relayed <- n })

	bus.Publish(events.Notification{Kind: events.KindTheme, Title: "Secret Retro Theme Activated!"})

	select {
	case msg := <-ch:
		if msg.Event != events.KindTheme {
			t.Errorf("event = %q, want %q", msg.Event, events.KindTheme)
		}
		var n events.Notification
		if err := json.Unmarshal([]byte(msg.Data), &n); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		if n.Title != "Secret Retro Theme Activated!" {
			t.Errorf("title = %q", n.Title)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}

	select {
	case n := <-relayed:
		if n.Kind != events.KindTheme {
			t.Errorf("relayed kind = %q", n.Kind)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for relay")
	}

	b.Unsubscribe(ch)
}

func TestBroadcaster_DoneAfterBusClose(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)
	bus.Close()

	select {
	case <-b.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("broadcaster did not stop after bus close")
	}
}

func TestBroadcaster_ClosesSubscribersAfterBusClose(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)
	ch := b.Subscribe()

	bus.Close()
	<-b.Done()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel, got a message")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("subscriber channel still open after bus close")
	}

	// Unsubscribe after the drain must not close the channel twice.
	b.Unsubscribe(ch)

	late := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("Subscribe() after bus close should return a closed channel")
	}
}
