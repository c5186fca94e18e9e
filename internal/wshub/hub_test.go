package wshub

import (
	"encoding/json"
	"testing"
	"time"

	"edgeroute/internal/events"
)

func newClient(id string, size int) *Client {
	return &Client{ID: id, Send: make(chan []byte, size)}
}

func receive(t *testing.T, c *Client) ServerMessage {
	t.Helper()
	select {
	case data := <-c.Send:
		var got ServerMessage
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("%s did not receive message", c.ID)
	}
	return ServerMessage{}
}

func TestRegisterAnnouncesJoin(t *testing.T) {
	h := NewHub(nil)
	c1 := newClient("c1", 16)
	c2 := newClient("c2", 16)

	h.Register(c1)
	h.Register(c2)

	got := receive(t, c1)
	if got.Type != TypeJoin || got.ClientID != "c2" || got.Peers != 2 {
		t.Fatalf("unexpected join: %+v", got)
	}
	select {
	case <-c2.Send:
		t.Fatal("c2 should not receive its own join")
	default:
	}
	if h.Count() != 2 {
		t.Errorf("Count() = %d, want 2", h.Count())
	}
}

func TestNotifyReachesAllClients(t *testing.T) {
	h := NewHub(nil)
	c1 := newClient("c1", 16)
	c2 := newClient("c2", 16)
	h.Register(c1)
	h.Register(c2)
	<-c1.Send // join of c2

	h.Notify(events.Notification{Kind: events.KindKonami, Title: "Konami Code"})

	for _, c := range []*Client{c1, c2} {
		got := receive(t, c)
		if got.Type != TypeNotification || got.Notification == nil || got.Notification.Kind != events.KindKonami {
			t.Fatalf("%s got %+v", c.ID, got)
		}
	}
}

func TestUnregisterBroadcastsLeave(t *testing.T) {
	h := NewHub(nil)
	c1 := newClient("c1", 16)
	c2 := newClient("c2", 16)
	h.Register(c1)
	h.Register(c2)
	<-c1.Send

	h.Unregister("c1")

	got := receive(t, c2)
	if got.Type != TypeLeave || got.ClientID != "c1" || got.Peers != 1 {
		t.Fatalf("expected leave for c1, got: %+v", got)
	}

	// Drain anything buffered, then the channel must be closed.
	for range c1.Send {
	}
	if h.Count() != 1 {
		t.Errorf("Count() = %d, want 1", h.Count())
	}
}

func TestUnregisterNonexistent(t *testing.T) {
	h := NewHub(nil)
	// Should not panic
	h.Unregister("nonexistent")
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := NewHub(nil)

	c := newClient("c1", 1)
	h.Register(c)

	c.Send <- []byte("filler")

	h.Broadcast(ServerMessage{Type: TypeError, Error: "x"})

	data := <-c.Send
	if string(data) != "filler" {
		t.Fatalf("expected filler, got: %s", data)
	}

	select {
	case <-c.Send:
		t.Fatal("should be empty after draining filler")
	default:
	}
}

func TestCloseAll(t *testing.T) {
	h := NewHub(nil)
	c1 := newClient("c1", 16)
	c2 := newClient("c2", 16)
	h.Register(c1)
	h.Register(c2)

	h.CloseAll()

	if h.Count() != 0 {
		t.Errorf("Count() = %d, want 0", h.Count())
	}
	for _, c := range []*Client{c1, c2} {
		for range c.Send {
		}
	}
}

func TestClientMessageDecoding(t *testing.T) {
	raw := `{"t":"click","path":[{"classes":["navbar-brand"]},{"classes":["navbar"]}]}`
	var msg ClientMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != TypeClick || len(msg.Path) != 2 || msg.Path[0].Classes[0] != "navbar-brand" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestSendTo(t *testing.T) {
	h := NewHub(nil)
	c1 := newClient("c1", 16)
	c2 := newClient("c2", 16)
	h.Register(c1)
	h.Register(c2)
	<-c1.Send // join of c2

	h.SendTo("c2", ServerMessage{Type: TypeError, Error: "too many inputs"})
	h.SendTo("gone", ServerMessage{Type: TypeError})

	got := receive(t, c2)
	if got.Type != TypeError || got.Error != "too many inputs" {
		t.Fatalf("unexpected message: %+v", got)
	}
	select {
	case <-c1.Send:
		t.Fatal("c1 should not receive c2's error")
	default:
	}
}
