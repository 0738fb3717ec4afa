package bus

import "sync"

// DefaultBuffer is the per-subscriber event buffer size.
const DefaultBuffer = 64

// Bus fans out events to subscribers without ever blocking the publisher.
// Each subscriber gets its own bounded buffer; when a buffer is full the
// oldest event is dropped to make room for the newest.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	buffer int
}

// New creates a Bus with the given per-subscriber buffer size.
// A non-positive size falls back to DefaultBuffer.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a new observer and returns its id and event channel.
// The channel is closed on Unsubscribe.
func (b *Bus) Subscribe() (int, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe removes an observer and closes its channel.
// Unknown ids are ignored.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers ev to every subscriber. Never blocks: a subscriber that
// has fallen behind loses its oldest buffered event.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Buffer full: drop the oldest, then retry once.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
