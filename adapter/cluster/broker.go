package cluster

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/karagenc/sio-core/internal/sync"
)

type (
	// Broker is a fan-out pub/sub transport. Every subscriber of a channel,
	// the publisher's own subscription included, receives every payload
	// published on it. Payloads from one publisher arrive in publish order.
	Broker interface {
		Publish(ctx context.Context, channel string, payload []byte) error
		Subscribe(ctx context.Context, channel string, handler func(payload []byte)) (Subscription, error)
	}

	Subscription interface {
		Close() error
	}
)

// MemoryBroker connects adapters living in the same process.
// Handlers run synchronously on the publisher's goroutine.
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[string][]*memorySubscription
}

type memorySubscription struct {
	broker  *MemoryBroker
	channel string
	handler func(payload []byte)
	closed  atomic.Bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs: make(map[string][]*memorySubscription),
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	subs := slices.Clone(b.subs[channel])
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.closed.Load() {
			continue
		}
		sub.handler(slices.Clone(payload))
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &memorySubscription{
		broker:  b,
		channel: channel,
		handler: handler,
	}
	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], sub)
	b.mu.Unlock()
	return sub, nil
}

func (s *memorySubscription) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[s.channel]
	for i, sub := range subs {
		if sub == s {
			subs = slices.Delete(subs, i, i+1)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.subs, s.channel)
	} else {
		b.subs[s.channel] = subs
	}
	return nil
}
