package events

import (
	"sync"

	"github.com/campusshare/server/internal/logger"
)

var log = logger.New("events")

type subscriber struct {
	id     int64
	filter Filter
	ch     chan Change
}

// Broker fans committed changes out to in-process subscribers. Each
// subscriber gets its own buffered channel; a full channel drops the
// event for that subscriber rather than blocking the publisher, so the
// feed is at-least-once only while a subscriber keeps up. Session and
// websocket consumers drain promptly and reload on demand, which is why
// dropping is acceptable here.
type Broker struct {
	mu          sync.RWMutex
	closed      bool
	nextID      int64
	bufferSize  int
	subscribers map[int64]subscriber
}

// NewBroker creates a broker with the given per-subscriber buffer size.
func NewBroker(bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Broker{
		bufferSize:  bufferSize,
		subscribers: make(map[int64]subscriber),
	}
}

// Subscribe registers a filtered subscriber. The returned cancel func
// must be called when the consumer goes away; it closes the channel.
func (b *Broker) Subscribe(filter Filter) (<-chan Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Change, b.bufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	b.nextID++
	sub := subscriber{id: b.nextID, filter: filter, ch: ch}
	b.subscribers[sub.id] = sub

	return ch, func() { b.unsubscribe(sub.id) }
}

// Publish delivers the change to every matching subscriber and returns
// how many received it. The read lock is held across the sends: channels
// are only ever closed under the write lock, so no send can land on a
// closed channel, and the sends never block so the lock stays cheap.
func (b *Broker) Publish(change Change) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}

	delivered := 0
	for _, sub := range b.subscribers {
		if !sub.filter.Matches(change) {
			continue
		}
		select {
		case sub.ch <- change:
			delivered++
		default:
			log.Warn("dropping %s/%s change for slow subscriber %d", change.Table, change.Kind, sub.id)
		}
	}
	return delivered
}

// Close shuts the broker down and closes all subscriber channels.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}

func (b *Broker) unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subscribers[id]
	if !ok {
		return
	}
	delete(b.subscribers, id)
	close(sub.ch)
}
