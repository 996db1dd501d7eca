// Package redisbroker implements cluster.Broker on Redis pub/sub.
package redisbroker

import (
	"context"
	"fmt"

	"github.com/karagenc/sio-core/adapter/cluster"
	"github.com/karagenc/sio-core/internal/sync"
	"github.com/redis/go-redis/v9"
)

type Broker struct {
	client redis.UniversalClient
}

var _ cluster.Broker = (*Broker)(nil)

// New does not take ownership of the client; closing it is up to the caller.
func New(client redis.UniversalClient) *Broker {
	return &Broker{client: client}
}

func (b *Broker) Publish(ctx context.Context, channel string, payload []byte) error {
	err := b.client.Publish(ctx, channel, payload).Err()
	if err != nil {
		return fmt.Errorf("redisbroker: publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription.
// Payloads are handed to handler one at a time, in arrival order.
func (b *Broker) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) (cluster.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel)

	_, err := pubsub.Receive(ctx)
	if err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redisbroker: subscribe to %s: %w", channel, err)
	}

	s := &subscription{
		pubsub: pubsub,
		done:   make(chan struct{}),
	}
	go s.run(pubsub.Channel(), handler)
	return s, nil
}

type subscription struct {
	pubsub    *redis.PubSub
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (s *subscription) run(messages <-chan *redis.Message, handler func(payload []byte)) {
	defer close(s.done)
	for msg := range messages {
		handler([]byte(msg.Payload))
	}
}

// Close unsubscribes and waits for the delivery goroutine to exit.
// It must not be called from within the handler.
func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.pubsub.Close()
		<-s.done
	})
	return s.closeErr
}
