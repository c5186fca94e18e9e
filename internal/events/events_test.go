package events

import (
	"testing"
	"time"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()
	if bus == nil {
		t.Fatal("NewBus() returned nil")
	}
	if bus.Notifications == nil {
		t.Fatal("Notifications channel is nil")
	}
}

func TestBus_PublishReceive(t *testing.T) {
	bus := NewBus()

	go func() {
		bus.Publish(Notification{Kind: KindKonami, Title: "Konami"})
	}()

	select {
	case received := <-bus.Notifications:
		if received.Kind != KindKonami {
			t.Errorf("received Kind = %q, want %q", received.Kind, KindKonami)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_PublishDropsWhenFull(t *testing.T) {
	bus := NewBus()

	for i := 0; i < cap(bus.Notifications); i++ {
		if !bus.Publish(Notification{Kind: KindToasts}) {
			t.Fatalf("publish %d failed before buffer was full", i)
		}
	}
	if bus.Publish(Notification{Kind: KindToasts}) {
		t.Error("publish on full bus should report false")
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()
	bus.Close()
	bus.Close()

	if bus.Publish(Notification{Kind: KindTheme}) {
		t.Error("publish after close should report false")
	}
	if _, ok := <-bus.Notifications; ok {
		t.Error("channel should be closed")
	}
}
