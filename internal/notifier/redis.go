package notifier

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// RedisBus publishes change events on a pub/sub channel. Pub/sub has no
// persistence, which matches the no-replay contract of the stream.
type RedisBus struct {
	client  *redis.Client
	channel string
}

func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	return &RedisBus{client: client, channel: channel}
}

func (b *RedisBus) Send(ctx context.Context, key string, eventType string, payload []byte) error {
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", b.channel, err)
	}
	return nil
}

// Close is a no-op; the client is shared with the source and closed by main.
func (b *RedisBus) Close() error {
	return nil
}

type RedisSource struct {
	pubsub *redis.PubSub
	closed atomic.Bool
}

func NewRedisSource(ctx context.Context, client *redis.Client, channel string) (*RedisSource, error) {
	pubsub := client.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so events published right after
	// startup are not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to redis channel %s: %w", channel, err)
	}
	return &RedisSource{pubsub: pubsub}, nil
}

func (s *RedisSource) Receive(ctx context.Context) ([]byte, error) {
	msg, err := s.pubsub.ReceiveMessage(ctx)
	if err != nil {
		if s.closed.Load() {
			return nil, ErrSourceClosed
		}
		return nil, err
	}
	return []byte(msg.Payload), nil
}

func (s *RedisSource) Close() error {
	s.closed.Store(true)
	return s.pubsub.Close()
}
