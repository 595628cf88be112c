// Package broker fans out "scope changed" notifications to subscribers.
// Notifications carry no payload; subscribers re-read the current state.
package broker

import (
	"context"
	"sync"
)

type Broker interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
	Close() error
}

// Subscription delivers a signal on C after every publish to its topic.
// Signals coalesce: a slow reader sees at least one signal after the last
// publish, never a backlog.
type Subscription struct {
	C <-chan struct{}

	c       chan struct{}
	once    sync.Once
	release func()
}

func newSubscription(release func()) *Subscription {
	c := make(chan struct{}, 1)
	return &Subscription{C: c, c: c, release: release}
}

func (s *Subscription) notify() {
	select {
	case s.c <- struct{}{}:
	default:
	}
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}
