package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/metrics"
	"github.com/titikruang/ruang/internal/repository"
	"github.com/titikruang/ruang/pkg/validator"
)

// DefaultGroupQuota is how many groups one identity may create.
const DefaultGroupQuota = 10

type GroupService struct {
	groupRepo repository.GroupRepository
	quota     int
}

func NewGroupService(groupRepo repository.GroupRepository, quota int) *GroupService {
	if quota <= 0 {
		quota = DefaultGroupQuota
	}
	return &GroupService{
		groupRepo: groupRepo,
		quota:     quota,
	}
}

type CreateGroupInput struct {
	Name string `json:"name"`
}

func (s *GroupService) Create(ctx context.Context, creator uuid.UUID, input CreateGroupInput) (*domain.Group, error) {
	errs := validator.ValidateGroup(input.Name)
	if creator == uuid.Nil {
		errs.Add("created_by", "Creator is required")
	}
	if errs.HasErrors() {
		return nil, domain.NewValidationError(errs)
	}

	g := &domain.Group{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(input.Name),
		CreatedBy: creator,
	}

	if err := s.groupRepo.Create(ctx, g, s.quota); err != nil {
		if errors.Is(err, repository.ErrQuotaReached) {
			return nil, fmt.Errorf("%w: at most %d groups per identity", domain.ErrQuotaExceeded, s.quota)
		}
		return nil, fmt.Errorf("creating group: %w", err)
	}
	metrics.GroupsCreated.Inc()

	return g, nil
}

func (s *GroupService) Get(ctx context.Context, groupID uuid.UUID) (*domain.Group, error) {
	g, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
	}
	return g, nil
}

// ListForIdentity returns the groups identity belongs to, newest first.
func (s *GroupService) ListForIdentity(ctx context.Context, identity uuid.UUID) ([]domain.Group, error) {
	return s.groupRepo.ListByMember(ctx, identity)
}

// ListAll returns the public group directory, newest first.
func (s *GroupService) ListAll(ctx context.Context) ([]domain.Group, error) {
	return s.groupRepo.ListAll(ctx)
}

func (s *GroupService) AddMember(ctx context.Context, groupID, actingID, targetID uuid.UUID) error {
	if err := s.requireAdmin(ctx, groupID, actingID, targetID); err != nil {
		return err
	}

	if err := s.groupRepo.UpsertMember(ctx, groupID, targetID, domain.RoleMember); err != nil {
		return fmt.Errorf("adding member: %w", err)
	}
	metrics.MembershipChanges.WithLabelValues("add").Inc()
	return nil
}

func (s *GroupService) RemoveMember(ctx context.Context, groupID, actingID, targetID uuid.UUID) error {
	if err := s.requireAdmin(ctx, groupID, actingID, targetID); err != nil {
		return err
	}

	if err := s.groupRepo.RemoveMember(ctx, groupID, targetID); err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	metrics.MembershipChanges.WithLabelValues("remove").Inc()
	return nil
}

// requireAdmin reads the group fresh and checks that actingID is one of
// its admins. A missing group denies permission as well.
func (s *GroupService) requireAdmin(ctx context.Context, groupID, actingID, targetID uuid.UUID) error {
	if targetID == uuid.Nil {
		errs := make(validator.ValidationErrors)
		errs.Add("user_id", "Target identity is required")
		return domain.NewValidationError(errs)
	}

	g, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g == nil || !g.IsAdmin(actingID) {
		return fmt.Errorf("%w: only group admins can change membership", domain.ErrPermissionDenied)
	}
	return nil
}
