package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/domain"
)

type IdentityRepo struct {
	mu         sync.RWMutex
	identities map[uuid.UUID]domain.Identity
}

func NewIdentityRepo() *IdentityRepo {
	return &IdentityRepo{identities: make(map[uuid.UUID]domain.Identity)}
}

func (r *IdentityRepo) Create(ctx context.Context, identity *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.identities[identity.ID]; ok {
		return fmt.Errorf("identity %s already exists", identity.ID)
	}
	r.identities[identity.ID] = *identity
	return nil
}

func (r *IdentityRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[id]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}
