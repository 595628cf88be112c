package broker

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("broker closed")

// Memory is an in-process broker. A single loop owns the topic table and
// serializes register, unregister and publish.
type Memory struct {
	topics map[string]map[*Subscription]struct{}

	register   chan *registration
	unregister chan *registration
	publish    chan string
	done       chan struct{}
	closeOnce  sync.Once
}

type registration struct {
	topic string
	sub   *Subscription
}

func NewMemory() *Memory {
	m := &Memory{
		topics:     make(map[string]map[*Subscription]struct{}),
		register:   make(chan *registration),
		unregister: make(chan *registration),
		publish:    make(chan string, 256),
		done:       make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Memory) run() {
	for {
		select {
		case r := <-m.register:
			subs, ok := m.topics[r.topic]
			if !ok {
				subs = make(map[*Subscription]struct{})
				m.topics[r.topic] = subs
			}
			subs[r.sub] = struct{}{}

		case r := <-m.unregister:
			if subs, ok := m.topics[r.topic]; ok {
				delete(subs, r.sub)
				if len(subs) == 0 {
					delete(m.topics, r.topic)
				}
			}

		case topic := <-m.publish:
			for sub := range m.topics[topic] {
				sub.notify()
			}

		case <-m.done:
			return
		}
	}
}

func (m *Memory) Publish(ctx context.Context, topic string) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}

	select {
	case m.publish <- topic:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	r := &registration{topic: topic}
	r.sub = newSubscription(func() {
		select {
		case m.unregister <- r:
		case <-m.done:
		}
	})

	select {
	case m.register <- r:
		return r.sub, nil
	case <-m.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}
