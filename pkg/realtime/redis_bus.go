package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus fans events out through Redis PUBLISH/SUBSCRIBE, one channel per topic.
type RedisBus struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisBus wraps an existing client. The client is owned by the caller.
func NewRedisBus(client *redis.Client, prefix string, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{client: client, prefix: prefix, logger: logger}
}

func (b *RedisBus) channel(topic string) string {
	return b.prefix + topic
}

// Publish encodes the event as JSON and publishes it on the topic channel.
func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	if b == nil || b.client == nil {
		return ErrClosed
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(event.Topic), raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe confirms the subscription with Redis before returning, then forwards
// messages to onEvent on a dedicated goroutine until ctx ends or Close is called.
func (b *RedisBus) Subscribe(ctx context.Context, topic string, onEvent func(Event)) (Subscription, error) {
	if b == nil || b.client == nil {
		return nil, ErrClosed
	}
	if onEvent == nil {
		return nil, fmt.Errorf("onEvent callback required")
	}

	pubsub := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer pubsub.Close() //nolint:errcheck
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok || msg == nil {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("bad realtime payload", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				onEvent(event)
			}
		}
	}()

	return pubsub, nil
}

// Close is a no-op; the shared Redis client is closed by its owner.
func (b *RedisBus) Close() error {
	return nil
}
