package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/broker"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/metrics"
	"github.com/titikruang/ruang/internal/repository"
	"github.com/titikruang/ruang/pkg/validator"
)

type ReactionService struct {
	messageRepo repository.MessageRepository
	groupRepo   repository.GroupRepository
	broker      broker.Broker
}

func NewReactionService(
	messageRepo repository.MessageRepository,
	groupRepo repository.GroupRepository,
	b broker.Broker,
) *ReactionService {
	return &ReactionService{
		messageRepo: messageRepo,
		groupRepo:   groupRepo,
		broker:      b,
	}
}

// Toggle adds identity to the emoji set of the message if absent and
// removes it if present. The read and write run in one store transaction.
// Any identity may react, member of the group or not.
func (s *ReactionService) Toggle(ctx context.Context, scope domain.Scope, messageID uuid.UUID, emoji string, identity uuid.UUID) (*domain.Message, error) {
	errs := validator.ValidateReaction(emoji)
	if identity == uuid.Nil {
		errs.Add("uid", "Identity is required")
	}
	if errs.HasErrors() {
		return nil, domain.NewValidationError(errs)
	}

	if err := checkScope(ctx, s.groupRepo, scope); err != nil {
		return nil, err
	}

	msg, err := s.messageRepo.ToggleReaction(ctx, scope, messageID, emoji, identity)
	if err != nil {
		return nil, fmt.Errorf("toggling reaction: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}
	metrics.ReactionsToggled.Inc()

	publishChange(ctx, s.broker, scope)
	return msg, nil
}
