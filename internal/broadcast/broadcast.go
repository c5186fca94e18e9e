package broadcast

import (
	"encoding/json"
	"sync"

	"edgeroute/internal/events"
)

// Message is one SSE frame: the event name and its JSON payload.
type Message struct {
	Event string
	Data  string
}

type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan Message]bool
	relays  []func(events.Notification)
	done    chan struct{}
	closed  bool
}

// NewBroadcaster fans bus notifications out to subscribers until the bus is
// closed. Subscriber channels are closed once the bus is drained.
func NewBroadcaster(bus *events.Bus) *Broadcaster {
	b := &Broadcaster{
		Clients: make(map[chan Message]bool),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(b.done)
		for n := range bus.Notifications {
			b.Publish(n)
		}
		b.closeClients()
	}()
	return b
}

// AddRelay registers fn to receive every notification, e.g. a websocket hub.
func (b *Broadcaster) AddRelay(fn func(events.Notification)) {
	b.Mu.Lock()
	b.relays = append(b.relays, fn)
	b.Mu.Unlock()
}

// Done is closed once the bus has been drained.
func (b *Broadcaster) Done() <-chan struct{} {
	return b.done
}

// Subscribe returns a channel of messages. After the bus has closed it
// returns an already closed channel.
func (b *Broadcaster) Subscribe() chan Message {
	ch := make(chan Message, 10)
	b.Mu.Lock()
	defer b.Mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.Clients[ch] = true
	return ch
}

func (b *Broadcaster) closeClients() {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	b.closed = true
	for ch := range b.Clients {
		delete(b.Clients, ch)
		close(ch)
	}
}

func (b *Broadcaster) Unsubscribe(ch chan Message) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	if _, ok := b.Clients[ch]; !ok {
		return
	}
	delete(b.Clients, ch)
	close(ch)
}

// Publish encodes n and sends it to subscribers and relays.
func (b *Broadcaster) Publish(n events.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		return
	}
	b.Mu.Lock()
	relays := append([]func(events.Notification){}, b.relays...)
	b.Mu.Unlock()

	b.BroadcastOOB(n.Kind, string(data))
	for _, fn := range relays {
		fn(n)
	}
}

func (b *Broadcaster) BroadcastOOB(event string, data string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- Message{Event: event, Data: data}:
		default:
			// skip clients with full data channels
		}
	}
}
