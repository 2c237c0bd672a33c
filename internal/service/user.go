package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/pharmacy-shop/internal/domain/models"
	"github.com/linemk/pharmacy-shop/internal/storage"
)

// ProfileUpdate — разрешённые к изменению поля профиля, nil-поля не трогаются.
type ProfileUpdate struct {
	DisplayName *string
	PhoneNumber *string
	Address     *string
}

// UserService определяет операции с профилями пользователей.
type UserService interface {
	Profile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error)
	ListAll(ctx context.Context, callerID string) ([]*models.User, error)
	SetRole(ctx context.Context, callerID string, targetID string, role string) error
}

type userService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
}

func NewUserService(log *slog.Logger, userRepo storage.UserStorage) UserService {
	return &userService{
		log:      log,
		userRepo: userRepo,
	}
}

func (s *userService) Profile(ctx context.Context, userID string) (*models.User, error) {
	const op = "service.UserService.Profile"

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get profile", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UpdateProfile обновляет собственный профиль вызывающего.
// Роль и email этим путём изменить нельзя.
func (s *userService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	const op = "service.UserService.UpdateProfile"
	logger := s.log.With(slog.String("op", op), slog.String("userID", userID))

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		logger.Error("failed to get user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.DisplayName != nil {
		user.DisplayName = *in.DisplayName
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = *in.PhoneNumber
	}
	if in.Address != nil {
		user.Address = *in.Address
	}

	if err := s.userRepo.UpdateProfile(ctx, user.ID, user.DisplayName, user.PhoneNumber, user.Address); err != nil {
		logger.Error("failed to update profile", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("profile updated")
	return user, nil
}

// ListAll возвращает все профили (только администратор).
func (s *userService) ListAll(ctx context.Context, callerID string) ([]*models.User, error) {
	const op = "service.UserService.ListAll"
	logger := s.log.With(slog.String("op", op), slog.String("callerID", callerID))

	if _, err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		logger.Warn("user list denied", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		logger.Error("failed to list users", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list users: %w", op, err)
	}
	return users, nil
}

// SetRole меняет роль пользователя (только администратор).
// Новая роль действует начиная со следующего запроса целевого пользователя.
func (s *userService) SetRole(ctx context.Context, callerID string, targetID string, role string) error {
	const op = "service.UserService.SetRole"
	logger := s.log.With(slog.String("op", op), slog.String("targetID", targetID), slog.String("role", role))

	if role != models.RoleUser && role != models.RoleAdmin {
		return fmt.Errorf("%s: unknown role %q: %w", op, role, ErrInvalidInput)
	}

	if _, err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		logger.Warn("role change denied", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.userRepo.UpdateRole(ctx, targetID, role); err != nil {
		logger.Error("failed to update role", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("user role updated")
	return nil
}
