package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
)

type UserService struct {
	users repository.UserRepository
	log   *slog.Logger
}

func NewUserService(users repository.UserRepository, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{users: users, log: log}
}

// EnsureUser records the principal as a durable user, refreshing its name and role.
func (s *UserService) EnsureUser(ctx context.Context, actor domain.Principal) (*domain.User, error) {
	return ensureUser(ctx, s.users, s.log, actor)
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "service.user.get"

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func ensureUser(ctx context.Context, users repository.UserRepository, log *slog.Logger, actor domain.Principal) (*domain.User, error) {
	const op = "service.user.ensure"
	log = log.With(slog.String("op", op), slog.String("user_id", actor.UserID.String()))

	if actor.UserID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrValidation)
	}

	existing, err := users.GetByID(ctx, actor.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Debug("user not found, creating")
		user := actor.User()
		if err := users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return user, nil
	}

	if existing.Username == actor.Username && existing.Role == actor.Role {
		return existing, nil
	}

	existing.Username = actor.Username
	existing.Role = actor.Role
	existing.UpdatedAt = utcNow()
	if err := users.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return existing, nil
}

func usernameOf(ctx context.Context, users repository.UserRepository, id uuid.UUID) string {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return id.String()
	}
	return user.Username
}
