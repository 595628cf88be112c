package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/repository"
)

// GroupRepo keeps groups in memory with a reverse index from identity to
// the groups it belongs to.
type GroupRepo struct {
	mu       sync.RWMutex
	groups   map[uuid.UUID]*domain.Group
	byMember map[uuid.UUID]map[uuid.UUID]struct{}
	clock    *Clock
}

func NewGroupRepo(clock *Clock) *GroupRepo {
	if clock == nil {
		clock = NewClock(time.Now)
	}
	return &GroupRepo{
		groups:   make(map[uuid.UUID]*domain.Group),
		byMember: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		clock:    clock,
	}
}

func (r *GroupRepo) Create(ctx context.Context, g *domain.Group, maxOwned int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[g.ID]; ok {
		return fmt.Errorf("group %s already exists", g.ID)
	}
	if r.countByCreator(g.CreatedBy) >= maxOwned {
		return repository.ErrQuotaReached
	}

	g.CreatedAt = r.clock.Now()
	g.Members = map[uuid.UUID]domain.Member{g.CreatedBy: {Role: domain.RoleAdmin}}

	stored := cloneGroup(g)
	r.groups[g.ID] = stored
	r.index(g.ID, g.CreatedBy)
	return nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	if !ok {
		return nil, nil
	}
	return cloneGroup(g), nil
}

func (r *GroupRepo) CountByCreator(ctx context.Context, creator uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countByCreator(creator), nil
}

func (r *GroupRepo) ListByMember(ctx context.Context, identity uuid.UUID) ([]domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var groups []domain.Group
	for id := range r.byMember[identity] {
		groups = append(groups, *cloneGroup(r.groups[id]))
	}
	sortGroups(groups)
	return groups, nil
}

func (r *GroupRepo) ListAll(ctx context.Context) ([]domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := make([]domain.Group, 0, len(r.groups))
	for _, g := range r.groups {
		groups = append(groups, *cloneGroup(g))
	}
	sortGroups(groups)
	return groups, nil
}

func (r *GroupRepo) UpsertMember(ctx context.Context, groupID, identity uuid.UUID, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupID]
	if !ok {
		return fmt.Errorf("group %s does not exist", groupID)
	}
	if _, exists := g.Members[identity]; exists {
		return nil
	}
	g.Members[identity] = domain.Member{Role: role}
	r.index(groupID, identity)
	return nil
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, identity uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.groups[groupID]; ok {
		delete(g.Members, identity)
	}
	if set, ok := r.byMember[identity]; ok {
		delete(set, groupID)
		if len(set) == 0 {
			delete(r.byMember, identity)
		}
	}
	return nil
}

func (r *GroupRepo) countByCreator(creator uuid.UUID) int {
	n := 0
	for _, g := range r.groups {
		if g.CreatedBy == creator {
			n++
		}
	}
	return n
}

func (r *GroupRepo) index(groupID, identity uuid.UUID) {
	set, ok := r.byMember[identity]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		r.byMember[identity] = set
	}
	set[groupID] = struct{}{}
}

func cloneGroup(g *domain.Group) *domain.Group {
	out := *g
	out.Members = maps.Clone(g.Members)
	return &out
}

// sortGroups orders by creation time, newest first.
func sortGroups(groups []domain.Group) {
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].CreatedAt.After(groups[j].CreatedAt)
		}
		return groups[i].ID.String() < groups[j].ID.String()
	})
}
