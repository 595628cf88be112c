package broker

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATS fans out notifications across server instances using core NATS
// subjects. Delivery is at-most-once, which is enough for a change signal.
type NATS struct {
	nc     *nats.Conn
	prefix string
}

func NewNATS(nc *nats.Conn, prefix string) *NATS {
	return &NATS{nc: nc, prefix: prefix}
}

func (n *NATS) subject(topic string) string {
	return n.prefix + topic
}

func (n *NATS) Publish(ctx context.Context, topic string) error {
	return n.nc.Publish(n.subject(topic), nil)
}

func (n *NATS) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	var ns *nats.Subscription
	sub := newSubscription(func() {
		if err := ns.Unsubscribe(); err != nil {
			zap.L().Warn("broker: nats unsubscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	})

	ns, err := n.nc.Subscribe(n.subject(topic), func(*nats.Msg) {
		sub.notify()
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// Flush so the server has registered interest before we return.
	if err := n.nc.FlushWithContext(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("flushing subscription %s: %w", topic, err)
	}
	return sub, nil
}

func (n *NATS) Close() error {
	n.nc.Close()
	return nil
}
