package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/service"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait        = 10 * time.Second
	pingInterval     = 30 * time.Second
	maxMessageSize   = 4096
	sendBufSize      = 64
	maxSubscriptions = 32
)

// Client represents a single WebSocket connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	userID   uuid.UUID
	messages *service.MessageService

	// feeds maps a scope key to the live feed serving it.
	feeds map[string]*service.Feed
	mu    sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	send   chan []byte
	once   sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, messages *service.MessageService) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:      hub,
		conn:     conn,
		userID:   userID,
		messages: messages,
		feeds:    make(map[string]*service.Feed),
		ctx:      ctx,
		cancel:   cancel,
		send:     make(chan []byte, sendBufSize),
	}
}

// close stops every feed of the client and ends its pumps.
func (c *Client) close() {
	c.once.Do(c.cancel)
}

// ReadPump reads events from the WebSocket until the connection ends.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.close()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		var event Event
		err := wsjson.Read(c.ctx, c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				zap.L().Debug("ws: client disconnected", zap.Stringer("user", c.userID))
			} else {
				zap.L().Debug("ws: read error", zap.Stringer("user", c.userID), zap.Error(err))
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes queued events to the WebSocket and keeps it alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				zap.L().Debug("ws: write error", zap.Stringer("user", c.userID), zap.Error(err))
				c.close()
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				zap.L().Debug("ws: ping error", zap.Stringer("user", c.userID), zap.Error(err))
				c.close()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeScopeSubscribe:
		scope, ok := c.parseScope(event)
		if !ok {
			return
		}
		c.subscribe(scope)

	case EventTypeScopeUnsubscribe:
		scope, ok := c.parseScope(event)
		if !ok {
			return
		}
		c.unsubscribe(scope)

	case EventTypePing:
		c.sendEvent(EventTypePong, "", nil)

	default:
		c.sendError("", "UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) parseScope(event *Event) (domain.Scope, bool) {
	var p ScopePayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		c.sendError("", "INVALID_PAYLOAD", "invalid "+event.Type+" payload")
		return domain.Scope{}, false
	}
	scope, err := domain.ParseScope(p.Scope)
	if err != nil {
		c.sendError(p.Scope, "INVALID_SCOPE", err.Error())
		return domain.Scope{}, false
	}
	return scope, true
}

func (c *Client) subscribe(scope domain.Scope) {
	key := scope.Key()

	c.mu.Lock()
	_, exists := c.feeds[key]
	full := len(c.feeds) >= maxSubscriptions
	c.mu.Unlock()
	if exists {
		return
	}
	if full {
		c.sendError(key, "TOO_MANY_SUBSCRIPTIONS", "subscription limit reached")
		return
	}

	feed, err := c.messages.Subscribe(c.ctx, scope)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.sendError(key, "NOT_FOUND", "scope not found")
		case errors.Is(err, domain.ErrValidation):
			c.sendError(key, "VALIDATION_ERROR", err.Error())
		default:
			zap.L().Error("ws: subscribe", zap.String("scope", key), zap.Error(err))
			c.sendError(key, "INTERNAL", "could not subscribe")
		}
		return
	}

	c.mu.Lock()
	c.feeds[key] = feed
	c.mu.Unlock()

	go c.forward(key, feed)
}

func (c *Client) unsubscribe(scope domain.Scope) {
	key := scope.Key()

	c.mu.Lock()
	feed, ok := c.feeds[key]
	delete(c.feeds, key)
	c.mu.Unlock()

	if ok {
		feed.Close()
	}
}

// forward turns every list the feed delivers into a snapshot event.
func (c *Client) forward(key string, feed *service.Feed) {
	for messages := range feed.C {
		data, ok := encodeEvent(EventTypeMessagesSnapshot, key, SnapshotPayload{Messages: messages})
		if !ok {
			continue
		}
		if !c.queueSnapshot(key, feed, data) {
			return
		}
	}
}

// queueSnapshot waits for room in the send queue while holding c.mu, so a
// snapshot is either queued before unsubscribe removes the feed or not at all.
func (c *Client) queueSnapshot(key string, feed *service.Feed, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.feeds[key] != feed {
		return false
	}
	select {
	case c.send <- data:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// sendEvent queues a control reply for the write pump. It is dropped when
// the queue is full.
func (c *Client) sendEvent(eventType, scope string, payload any) {
	data, ok := encodeEvent(eventType, scope, payload)
	if !ok {
		return
	}

	select {
	case c.send <- data:
	default:
	}
}

func encodeEvent(eventType, scope string, payload any) ([]byte, bool) {
	evt, err := NewEvent(eventType, scope, payload)
	if err != nil {
		zap.L().Error("ws: marshal event", zap.String("type", eventType), zap.Error(err))
		return nil, false
	}
	data, err := json.Marshal(evt)
	if err != nil {
		zap.L().Error("ws: marshal event", zap.String("type", eventType), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (c *Client) sendError(scope, code, message string) {
	c.sendEvent(EventTypeError, scope, ErrorPayload{Code: code, Message: message})
}
