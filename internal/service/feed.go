package service

import (
	"context"
	"sync"

	"github.com/titikruang/ruang/internal/broker"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/metrics"
	"go.uber.org/zap"
)

// Feed is a live, cancellable view of one scope. Each value received from
// C is the complete ordered message list at that moment, so consumers can
// replace their whole view with it. A consumer that falls behind only sees
// the newest list.
type Feed struct {
	C <-chan []domain.Message

	out    chan []domain.Message
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newFeed(cancel context.CancelFunc) *Feed {
	out := make(chan []domain.Message, 1)
	return &Feed{
		C:      out,
		out:    out,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

type listFunc func(ctx context.Context) ([]domain.Message, error)

func (f *Feed) run(ctx context.Context, sub *broker.Subscription, list listFunc, scope domain.Scope) {
	defer func() {
		sub.Close()
		// Drop any undelivered list so nothing is received after Close.
		select {
		case <-f.out:
		default:
		}
		close(f.out)
		metrics.ActiveFeeds.Dec()
		close(f.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.C:
		}

		messages, err := list(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Warn("service: refresh feed",
				zap.String("scope", scope.Key()),
				zap.Error(err),
			)
			continue
		}

		f.deliver(messages)
	}
}

// deliver replaces any pending list with messages. run is the only sender,
// so the send after draining never blocks.
func (f *Feed) deliver(messages []domain.Message) {
	select {
	case f.out <- messages:
		return
	default:
	}
	select {
	case <-f.out:
	default:
	}
	f.out <- messages
}

// Done is closed once the feed has stopped.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Close stops the feed and releases its subscription. Once Close returns,
// C is closed and yields no more lists.
func (f *Feed) Close() {
	f.once.Do(f.cancel)
	<-f.done
}
