package pubsub

import (
	"sync"
	"sync/atomic"

	"github.com/burrowdb/burrow/pkg/log"
	"github.com/burrowdb/burrow/pkg/types"
)

// DefaultCapacity is the per-subscriber event buffer size. A subscriber that
// falls further behind than this starts losing events and is told how many
// it missed.
const DefaultCapacity = 20000

// Subscription is one live consumer of a collection's mutation events.
type Subscription struct {
	ch      chan types.Event
	skipped atomic.Uint64
	once    sync.Once
}

// Events returns the channel mutation events arrive on. The channel is
// closed when the subscription is cancelled or the fabric shuts down.
func (s *Subscription) Events() <-chan types.Event {
	return s.ch
}

// Lagged returns the number of events dropped since the last call and resets
// the counter. A non-zero value means the consumer fell behind the buffer;
// delivery has already resumed.
func (s *Subscription) Lagged() uint64 {
	return s.skipped.Swap(0)
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// broadcaster fans events out to the subscribers of one collection.
type broadcaster struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func (b *broadcaster) receiverCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *broadcaster) add(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub] = struct{}{}
}

func (b *broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		sub.close()
	}
}

func (b *broadcaster) send(event types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			// Buffer full; the consumer is lagging. Count the miss and move
			// on so publishers never block.
			sub.skipped.Add(1)
		}
	}
}

// Fabric is the per-collection publish/subscribe registry. Channels are
// created lazily on first subscribe and replaced when abandoned, so idle
// collections hold no buffer capacity.
type Fabric struct {
	mu       sync.RWMutex
	channels map[string]*broadcaster
	capacity int
	closed   bool
}

// NewFabric creates a fabric with the default buffer capacity.
func NewFabric() *Fabric {
	return NewFabricWithCapacity(DefaultCapacity)
}

// NewFabricWithCapacity creates a fabric with a custom per-subscriber buffer.
func NewFabricWithCapacity(capacity int) *Fabric {
	return &Fabric{
		channels: make(map[string]*broadcaster),
		capacity: capacity,
	}
}

// Subscribe registers a new consumer for the collection's events. An
// existing channel with no remaining receivers is replaced by a fresh one so
// an abandoned channel cannot retain its buffers indefinitely.
func (f *Fabric) Subscribe(collection string) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.channels[collection]
	if !ok || b.receiverCount() == 0 {
		b = &broadcaster{subs: make(map[*Subscription]struct{})}
		f.channels[collection] = b
		logger := log.WithComponent("pubsub")
		logger.Debug().
			Str("collection", collection).
			Msg("created broadcast channel")
	}

	sub := &Subscription{ch: make(chan types.Event, f.capacity)}
	b.add(sub)
	return sub
}

// Unsubscribe removes a consumer and closes its event channel.
func (f *Fabric) Unsubscribe(collection string, sub *Subscription) {
	f.mu.RLock()
	b := f.channels[collection]
	f.mu.RUnlock()
	if b != nil {
		b.remove(sub)
	}
}

// Publish delivers an event to every subscriber of the collection. Publish
// is fire-and-forget: without subscribers the event is dropped and no
// channel is materialized.
func (f *Fabric) Publish(collection string, event types.Event) {
	f.mu.RLock()
	b := f.channels[collection]
	closed := f.closed
	f.mu.RUnlock()

	if closed || b == nil || b.receiverCount() == 0 {
		return
	}
	b.send(event)
}

// HasSubscribers reports whether anyone is listening to the collection.
func (f *Fabric) HasSubscribers(collection string) bool {
	f.mu.RLock()
	b := f.channels[collection]
	f.mu.RUnlock()
	return b != nil && b.receiverCount() > 0
}

// SubscriberCount returns the number of live subscribers for a collection.
func (f *Fabric) SubscriberCount(collection string) int {
	f.mu.RLock()
	b := f.channels[collection]
	f.mu.RUnlock()
	if b == nil {
		return 0
	}
	return b.receiverCount()
}

// Close shuts the fabric down and closes every subscriber channel.
func (f *Fabric) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for _, b := range f.channels {
		b.mu.Lock()
		for sub := range b.subs {
			sub.close()
		}
		b.subs = make(map[*Subscription]struct{})
		b.mu.Unlock()
	}
	f.channels = make(map[string]*broadcaster)
}
