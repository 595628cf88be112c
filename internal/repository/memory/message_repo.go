package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/domain"
)

type MessageRepo struct {
	mu      sync.RWMutex
	seq     int64
	byScope map[string][]*domain.Message
	byID    map[uuid.UUID]*domain.Message
	clock   *Clock
}

func NewMessageRepo(clock *Clock) *MessageRepo {
	if clock == nil {
		clock = NewClock(time.Now)
	}
	return &MessageRepo{
		byScope: make(map[string][]*domain.Message),
		byID:    make(map[uuid.UUID]*domain.Message),
		clock:   clock,
	}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[msg.ID]; ok {
		return fmt.Errorf("message %s already exists", msg.ID)
	}

	r.seq++
	msg.Seq = r.seq
	msg.Timestamp = r.clock.Now()
	if msg.Reactions == nil {
		msg.Reactions = domain.Reactions{}
	}

	stored := cloneMessage(msg)
	r.byScope[msg.Scope] = append(r.byScope[msg.Scope], stored)
	r.byID[msg.ID] = stored
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, ok := r.byID[id]
	if !ok || msg.Scope != scope.Key() {
		return nil, nil
	}
	return cloneMessage(msg), nil
}

func (r *MessageRepo) ListByScope(ctx context.Context, scope domain.Scope) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.byScope[scope.Key()]
	messages := make([]domain.Message, 0, len(stored))
	for _, msg := range stored {
		messages = append(messages, *cloneMessage(msg))
	}
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].Timestamp.Before(messages[j].Timestamp)
		}
		return messages[i].Seq < messages[j].Seq
	})
	return messages, nil
}

func (r *MessageRepo) ToggleReaction(ctx context.Context, scope domain.Scope, id uuid.UUID, emoji string, identity uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.byID[id]
	if !ok || msg.Scope != scope.Key() {
		return nil, nil
	}

	msg.Reactions.Toggle(emoji, identity)
	return cloneMessage(msg), nil
}

func cloneMessage(msg *domain.Message) *domain.Message {
	out := *msg
	out.Reactions = msg.Reactions.Clone()
	if msg.ImageURL != nil {
		url := *msg.ImageURL
		out.ImageURL = &url
	}
	return &out
}
