// Package identity resolves the anonymous identity of one client session
// and layers a cached pseudonym on top of it.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Provider issues a new anonymous identity.
type Provider interface {
	SignInAnonymously(ctx context.Context) (uuid.UUID, error)
}

type ProviderFunc func(ctx context.Context) (uuid.UUID, error)

func (f ProviderFunc) SignInAnonymously(ctx context.Context) (uuid.UUID, error) {
	return f(ctx)
}

// Listener receives the current identity, or uuid.Nil when signed out.
type Listener func(id uuid.UUID)

// Session holds at most one identity at a time. Listeners are called one at
// a time, in order, on a dedicated goroutine.
type Session struct {
	provider Provider
	flight   singleflight.Group

	mu        sync.Mutex
	current   uuid.UUID
	listeners map[int]Listener
	nextID    int
	queue     []func()
	closed    bool

	wake chan struct{}
	done chan struct{}
}

func NewSession(provider Provider) *Session {
	s := &Session{
		provider:  provider,
		listeners: make(map[int]Listener),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go s.dispatch()
	return s
}

// EnsureIdentity returns the session identity, signing in anonymously if
// there is none yet. Concurrent callers share a single sign-in, which keeps
// running when the caller that started it gives up.
func (s *Session) EnsureIdentity(ctx context.Context) (uuid.UUID, error) {
	if id := s.Current(); id != uuid.Nil {
		return id, nil
	}

	signInCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan("ensure", func() (any, error) {
		if id := s.Current(); id != uuid.Nil {
			return id, nil
		}

		id, err := s.provider.SignInAnonymously(signInCtx)
		if err != nil {
			if errors.Is(err, domain.ErrProviderUnavailable) {
				return uuid.Nil, err
			}
			return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
		}
		if id == uuid.Nil {
			return uuid.Nil, fmt.Errorf("%w: empty identity", domain.ErrProviderUnavailable)
		}

		s.set(id)
		return id, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return uuid.Nil, res.Err
		}
		return res.Val.(uuid.UUID), nil
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

func (s *Session) Current() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Observe registers l. It is called once with the current identity and
// again after every change. The returned func unregisters it.
func (s *Session) Observe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	current := s.current
	s.enqueueLocked(func() {
		if s.registered(id) {
			l(current)
		}
	})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// SignOut drops the session identity. The next EnsureIdentity creates a
// new one.
func (s *Session) SignOut() {
	s.set(uuid.Nil)
}

// Close stops listener dispatch. Pending notifications are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
	close(s.done)
}

func (s *Session) set(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == id {
		return
	}
	s.current = id

	for lid, l := range s.listeners {
		s.enqueueLocked(func() {
			if s.registered(lid) {
				l(id)
			}
		})
	}
}

func (s *Session) registered(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.listeners[id]
	return ok
}

func (s *Session) enqueueLocked(fn func()) {
	if s.closed {
		return
	}
	s.queue = append(s.queue, fn)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			fn := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.call(fn)
		}
	}
}

func (s *Session) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("identity: listener panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
