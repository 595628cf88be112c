package broker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis fans out notifications across server instances with Pub/Sub.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) channel(topic string) string {
	return r.prefix + topic
}

func (r *Redis) Publish(ctx context.Context, topic string) error {
	return r.client.Publish(ctx, r.channel(topic), "1").Err()
}

func (r *Redis) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ps := r.client.Subscribe(ctx, r.channel(topic))
	// Wait for the subscription to be confirmed so no publish is missed
	// between Subscribe returning and the caller's first read.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	stop := make(chan struct{})
	sub := newSubscription(func() {
		close(stop)
		if err := ps.Close(); err != nil {
			zap.L().Warn("broker: redis unsubscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	})

	go func() {
		ch := ps.Channel()
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				sub.notify()
			case <-stop:
				return
			}
		}
	}()

	return sub, nil
}

// Close is a no-op; the client is owned by the caller.
func (r *Redis) Close() error {
	return nil
}
