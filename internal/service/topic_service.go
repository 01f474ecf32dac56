package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
)

type TopicService struct {
	topics repository.TopicRepository
	users  repository.UserRepository
	log    *slog.Logger
}

func NewTopicService(topics repository.TopicRepository, users repository.UserRepository, log *slog.Logger) *TopicService {
	if log == nil {
		log = slog.Default()
	}
	return &TopicService{topics: topics, users: users, log: log}
}

func (s *TopicService) CreateTopic(ctx context.Context, actor domain.Principal, title, description, category string) (*domain.DebateTopic, error) {
	const op = "service.topic.create"
	log := s.log.With(slog.String("op", op))

	if !actor.CanModerate() {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotEligible)
	}
	if _, err := ensureUser(ctx, s.users, s.log, actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	topic, err := domain.NewDebateTopic(title, description, category, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.topics.Create(ctx, topic); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("topic created", slog.String("topic_id", topic.ID.String()))
	return topic, nil
}

func (s *TopicService) GetTopic(ctx context.Context, id uuid.UUID) (*domain.DebateTopic, error) {
	const op = "service.topic.get"

	topic, err := s.topics.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return topic, nil
}

func (s *TopicService) ListTopics(ctx context.Context, category string) ([]*domain.DebateTopic, error) {
	const op = "service.topic.list"

	topics, err := s.topics.List(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return topics, nil
}
