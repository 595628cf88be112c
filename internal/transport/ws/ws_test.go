package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/titikruang/ruang/internal/broker"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/repository/memory"
	"github.com/titikruang/ruang/internal/service"
)

func TestNewEvent(t *testing.T) {
	evt, err := NewEvent(EventTypePong, "", nil)
	require.NoError(t, err)

	data, err := json.Marshal(evt)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "payload")
	assert.NotContains(t, string(data), "scope")

	evt, err = NewEvent(EventTypeMessagesSnapshot, "channel:general", SnapshotPayload{Messages: []domain.Message{}})
	require.NoError(t, err)
	assert.Equal(t, "channel:general", evt.Scope)
	assert.JSONEq(t, `{"messages":[]}`, string(evt.Payload))
}

func TestHubRefusesClientsAfterShutdown(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := &Client{}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	require.True(t, hub.Register(c))

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	assert.Error(t, c.ctx.Err(), "clients are closed on shutdown")
	assert.False(t, hub.Register(&Client{}))
	hub.Unregister(c)
}

func newTestClient(t *testing.T) (*Client, *service.MessageService) {
	t.Helper()

	clock := memory.NewClock(time.Now)
	b := broker.NewMemory()
	messages := service.NewMessageService(memory.NewMessageRepo(clock), memory.NewGroupRepo(clock), b)
	c := NewClient(NewHub(), nil, uuid.New(), messages)
	t.Cleanup(func() {
		c.close()
		b.Close()
	})
	return c, messages
}

func TestNoSnapshotQueuedAfterUnsubscribe(t *testing.T) {
	ctx := context.Background()
	c, messages := newTestClient(t)
	scope := domain.ChannelScope(domain.GeneralChannel)
	in := service.AppendInput{Text: "hi", SenderName: "Anon-AB12"}

	// A full queue keeps forward blocked on a pending snapshot.
	for i := 0; i < sendBufSize; i++ {
		c.send <- []byte("filler")
	}

	c.subscribe(scope)
	for i := 0; i < 3; i++ {
		_, err := messages.Append(ctx, scope, c.userID, in)
		require.NoError(t, err)
	}

	unsubscribed := make(chan struct{})
	go func() {
		c.unsubscribe(scope)
		close(unsubscribed)
	}()

	for waiting := true; waiting; {
		select {
		case <-c.send:
		case <-unsubscribed:
			waiting = false
		case <-time.After(2 * time.Second):
			t.Fatal("unsubscribe did not return")
		}
	}

	// Whatever is still buffered was queued before the feed was removed.
	for n := len(c.send); n > 0; n-- {
		<-c.send
	}

	_, err := messages.Append(ctx, scope, c.userID, in)
	require.NoError(t, err)

	select {
	case data := <-c.send:
		t.Fatalf("snapshot queued after unsubscribe: %s", data)
	case <-time.After(200 * time.Millisecond):
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.NotContains(t, c.feeds, scope.Key())
}
