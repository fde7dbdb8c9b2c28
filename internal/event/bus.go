// Package event provides the bridge event bus, built on watermill.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Name identifies a host event, e.g. "popup_closed".
type Name string

// Event is a single broadcast occurrence received from the host.
// The JSON shape matches the bridge wire message.
type Event struct {
	Name    Name            `json:"eventType"`
	Payload json.RawMessage `json:"eventData,omitempty"`
}

// New builds an event, marshalling payload when it is not already raw JSON.
func New(name Name, payload any) (Event, error) {
	switch p := payload.(type) {
	case nil:
		return Event{Name: name}, nil
	case json.RawMessage:
		return Event{Name: name, Payload: p}, nil
	case []byte:
		return Event{Name: name, Payload: json.RawMessage(p)}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}
	return Event{Name: name, Payload: data}, nil
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Name, err)
	}
	return nil
}

// Subscriber is a function that receives events.
type Subscriber func(event Event)

// subscriberEntry wraps a subscriber with an ID.
type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus fans host events out to subscribers keyed by event name.
//
// Delivery is synchronous: Publish calls every subscriber of the event, in
// subscription order, in the publisher's goroutine before returning. Every event
// is additionally mirrored onto a watermill gochannel so that consumers can read
// events as a stream (see Stream) without sitting in the dispatch path.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[Name][]subscriberEntry
	global      []subscriberEntry

	nextID uint64
	closed bool
}

// NewBus creates a new event bus instance.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		subscribers: make(map[Name][]subscriberEntry),
	}
}

// newID generates a unique subscriber ID.
func (b *Bus) newID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

// Subscribe registers a subscriber for a specific event.
// Returns an unsubscribe function which is safe to call more than once.
func (b *Bus) Subscribe(name Name, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.subscribers[name] = append(b.subscribers[name], subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribe(name, id)
	}
}

// SubscribeAll registers a subscriber for all events.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribeGlobal(id)
	}
}

// SubscriberCount returns the number of subscribers registered for name,
// not counting SubscribeAll subscribers.
func (b *Bus) SubscriberCount(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[name])
}

func (b *Bus) unsubscribe(name Name, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[name]
	for i, entry := range subs {
		if entry.id == id {
			// Copy instead of shifting in place: Publish may be iterating a
			// snapshot that shares the backing array.
			next := make([]subscriberEntry, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.subscribers, name)
			} else {
				b.subscribers[name] = next
			}
			return
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.global {
		if entry.id == id {
			next := make([]subscriberEntry, 0, len(b.global)-1)
			next = append(next, b.global[:i]...)
			b.global = append(next, b.global[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to all subscribers synchronously.
// Subscribers of the event run first, in subscription order, followed by
// SubscribeAll subscribers. A subscriber removed by an earlier subscriber during
// the same dispatch is skipped.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]subscriberEntry, 0, len(b.subscribers[event.Name])+len(b.global))
	subs = append(subs, b.subscribers[event.Name]...)
	subs = append(subs, b.global...)
	b.mu.RUnlock()

	for _, entry := range subs {
		if !b.active(event.Name, entry.id) {
			continue
		}
		entry.fn(event)
	}

	msg := message.NewMessage(watermill.NewUUID(), message.Payload(event.Payload))
	_ = b.pubsub.Publish(string(event.Name), msg)
}

// active reports whether the subscriber is still registered.
func (b *Bus) active(name Name, id uint64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, entry := range b.subscribers[name] {
		if entry.id == id {
			return true
		}
	}
	for _, entry := range b.global {
		if entry.id == id {
			return true
		}
	}
	return false
}

// Stream returns a channel receiving every subsequent occurrence of name.
// The channel is closed when ctx is done or the bus is closed.
func (b *Bus) Stream(ctx context.Context, name Name) (<-chan Event, error) {
	msgs, err := b.pubsub.Subscribe(ctx, string(name))
	if err != nil {
		return nil, fmt.Errorf("failed to stream %s: %w", name, err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for msg := range msgs {
			select {
			case out <- Event{Name: name, Payload: json.RawMessage(msg.Payload)}:
				msg.Ack()
			case <-ctx.Done():
				msg.Ack()
				return
			}
		}
	}()
	return out, nil
}

// Close closes the bus and drops all subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[Name][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}

// PubSub returns the underlying watermill GoChannel for advanced use cases.
func (b *Bus) PubSub() *gochannel.GoChannel {
	return b.pubsub
}
