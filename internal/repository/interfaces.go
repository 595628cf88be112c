package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/domain"
)

// ErrQuotaReached is returned by GroupRepository.Create when the creator
// already owns the maximum number of groups.
var ErrQuotaReached = errors.New("creator group quota reached")

type IdentityRepository interface {
	Create(ctx context.Context, identity *domain.Identity) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error)
}

type GroupRepository interface {
	// Create inserts the group with its creator seeded as admin, failing with
	// ErrQuotaReached if the creator already owns maxOwned groups. The count
	// and insert are atomic.
	Create(ctx context.Context, group *domain.Group, maxOwned int) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	CountByCreator(ctx context.Context, creator uuid.UUID) (int, error)
	ListByMember(ctx context.Context, identity uuid.UUID) ([]domain.Group, error)
	ListAll(ctx context.Context) ([]domain.Group, error)
	UpsertMember(ctx context.Context, groupID, identity uuid.UUID, role domain.Role) error
	RemoveMember(ctx context.Context, groupID, identity uuid.UUID) error
}

type MessageRepository interface {
	// Create assigns the server timestamp and insertion sequence.
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Message, error)
	// ListByScope returns messages ordered by timestamp, then insertion order.
	ListByScope(ctx context.Context, scope domain.Scope) ([]domain.Message, error)
	// ToggleReaction flips identity in the emoji set inside a single
	// transaction and returns the updated message, or nil if it does not exist.
	ToggleReaction(ctx context.Context, scope domain.Scope, id uuid.UUID, emoji string, identity uuid.UUID) (*domain.Message, error)
}
