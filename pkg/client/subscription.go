package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/titikruang/ruang/internal/transport/ws"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// maxSnapshotSize bounds one snapshot event. Snapshots carry the whole
// message list of a scope, so this sits far above the 32 KiB default.
const maxSnapshotSize = 64 << 20

// Subscription is a live view of one scope over its own WebSocket. Each
// value on C is the full ordered message list; a slow reader only sees the
// newest one.
type Subscription struct {
	C <-chan []Message

	out    chan []Message
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

// Subscribe opens a live feed on scope. The first list arrives as soon as
// the server accepts the subscription.
func (c *Client) Subscribe(ctx context.Context, scope Scope) (*Subscription, error) {
	token := c.Credentials().AccessToken
	if token == "" {
		return nil, ErrUnauthorized
	}

	u, err := url.Parse(c.baseURL + "/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", strings.Split(u.String(), "?")[0], err)
	}
	conn.SetReadLimit(maxSnapshotSize)

	payload, _ := json.Marshal(ws.ScopePayload{Scope: scope.Key()})
	if err := wsjson.Write(ctx, conn, ws.Event{Type: ws.EventTypeScopeSubscribe, Payload: payload}); err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return nil, fmt.Errorf("subscribing: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	out := make(chan []Message, 1)
	s := &Subscription{
		C:      out,
		out:    out,
		conn:   conn,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.read(subCtx, scope.Key())
	return s, nil
}

func (s *Subscription) read(ctx context.Context, key string) {
	defer func() {
		select {
		case <-s.out:
		default:
		}
		close(s.out)
		close(s.done)
	}()

	for {
		var event ws.Event
		if err := wsjson.Read(ctx, s.conn, &event); err != nil {
			if ctx.Err() == nil {
				s.setErr(err)
			}
			return
		}
		if event.Scope != key {
			continue
		}

		switch event.Type {
		case ws.EventTypeMessagesSnapshot:
			var p ws.SnapshotPayload
			if err := json.Unmarshal(event.Payload, &p); err != nil {
				s.setErr(fmt.Errorf("decoding snapshot: %w", err))
				return
			}
			s.deliver(p.Messages)

		case ws.EventTypeError:
			var p ws.ErrorPayload
			_ = json.Unmarshal(event.Payload, &p)
			apiErr := &APIError{Code: p.Code, Message: p.Message}
			s.setErr(apiErr)
			s.conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func (s *Subscription) deliver(messages []Message) {
	select {
	case s.out <- messages:
		return
	default:
	}
	select {
	case <-s.out:
	default:
	}
	s.out <- messages
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err reports why the subscription ended on its own, if it did.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the subscription has stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close ends the subscription and its connection. Once Close returns, C is
// closed and yields no more lists.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		s.conn.Close(websocket.StatusNormalClosure, "")
	})
	<-s.done
}
