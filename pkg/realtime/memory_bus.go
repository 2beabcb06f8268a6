package realtime

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus used when no broker is configured and in tests.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
}

// NewMemoryBus constructs an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[*memorySubscription]struct{})}
}

type memorySubscription struct {
	bus     *MemoryBus
	topic   string
	onEvent func(Event)
	once    sync.Once
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() { s.bus.remove(s) })
	return nil
}

// Publish delivers the event synchronously to every subscriber of its topic.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*memorySubscription, 0, len(b.subs[event.Topic]))
	for sub := range b.subs[event.Topic] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.onEvent(event)
	}
	return nil
}

// Subscribe registers onEvent for topic until the subscription is closed or ctx ends.
func (b *MemoryBus) Subscribe(ctx context.Context, topic string, onEvent func(Event)) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	sub := &memorySubscription{bus: b, topic: topic, onEvent: onEvent}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*memorySubscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()
	return sub, nil
}

// Close drops all subscriptions.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string]map[*memorySubscription]struct{})
	return nil
}

func (b *MemoryBus) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subs[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.topic)
		}
	}
}
