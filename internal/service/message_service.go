package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/broker"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/metrics"
	"github.com/titikruang/ruang/internal/repository"
	"github.com/titikruang/ruang/pkg/validator"
	"go.uber.org/zap"
)

type MessageService struct {
	messageRepo repository.MessageRepository
	groupRepo   repository.GroupRepository
	broker      broker.Broker
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	groupRepo repository.GroupRepository,
	b broker.Broker,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		groupRepo:   groupRepo,
		broker:      b,
	}
}

type AppendInput struct {
	Text       string  `json:"text"`
	SenderName string  `json:"sender_name"`
	ImageURL   *string `json:"image_url,omitempty"`
}

// Append stores a new message in scope with a server-assigned timestamp and
// an empty reaction map, then notifies live subscribers of the scope.
func (s *MessageService) Append(ctx context.Context, scope domain.Scope, author uuid.UUID, input AppendInput) (*domain.Message, error) {
	errs := validator.ValidateMessage(input.Text, input.SenderName, author != uuid.Nil, input.ImageURL)
	if errs.HasErrors() {
		return nil, domain.NewValidationError(errs)
	}

	if err := checkScope(ctx, s.groupRepo, scope); err != nil {
		return nil, err
	}

	imageURL := input.ImageURL
	if imageURL != nil && strings.TrimSpace(*imageURL) == "" {
		imageURL = nil
	}

	msg := &domain.Message{
		ID:         uuid.New(),
		Scope:      scope.Key(),
		Text:       strings.TrimSpace(input.Text),
		UID:        author,
		SenderName: strings.TrimSpace(input.SenderName),
		ImageURL:   imageURL,
		Reactions:  domain.Reactions{},
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	metrics.MessagesAppended.WithLabelValues(string(scope.Kind)).Inc()

	publishChange(ctx, s.broker, scope)
	return msg, nil
}

// List returns the messages of scope in ascending timestamp order.
func (s *MessageService) List(ctx context.Context, scope domain.Scope) ([]domain.Message, error) {
	if err := checkScope(ctx, s.groupRepo, scope); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByScope(ctx, scope)
}

// Subscribe opens a live feed on scope. The feed delivers the current
// ordered list at once and again after every change to the scope.
func (s *MessageService) Subscribe(ctx context.Context, scope domain.Scope) (*Feed, error) {
	if err := checkScope(ctx, s.groupRepo, scope); err != nil {
		return nil, err
	}

	// Subscribe before the first read so no change between the two is lost.
	sub, err := s.broker.Subscribe(ctx, scope.Topic())
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", scope, err)
	}

	initial, err := s.messageRepo.ListByScope(ctx, scope)
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	feedCtx, cancel := context.WithCancel(ctx)
	f := newFeed(cancel)
	f.out <- initial
	metrics.ActiveFeeds.Inc()

	go f.run(feedCtx, sub, func(ctx context.Context) ([]domain.Message, error) {
		return s.messageRepo.ListByScope(ctx, scope)
	}, scope)

	return f, nil
}

func checkScope(ctx context.Context, groupRepo repository.GroupRepository, scope domain.Scope) error {
	switch scope.Kind {
	case domain.ScopeChannel:
		if errs := validator.ValidateChannel(scope.ID); errs.HasErrors() {
			return domain.NewValidationError(errs)
		}
		return nil

	case domain.ScopeGroup:
		id, ok := scope.GroupID()
		if !ok {
			return fmt.Errorf("group %q: %w", scope.ID, domain.ErrNotFound)
		}
		g, err := groupRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if g == nil {
			return fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
		}
		return nil
	}

	errs := make(validator.ValidationErrors)
	errs.Add("scope", "Unknown scope kind")
	return domain.NewValidationError(errs)
}

func publishChange(ctx context.Context, b broker.Broker, scope domain.Scope) {
	if err := b.Publish(ctx, scope.Topic()); err != nil {
		zap.L().Warn("service: publish scope change",
			zap.String("scope", scope.Key()),
			zap.Error(err),
		)
	}
}
