package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/linemk/pharmacy-shop/internal/domain/models"
	"github.com/linemk/pharmacy-shop/internal/storage"
)

// callerProfile загружает профиль вызывающего из хранилища.
// Роль намеренно не кэшируется и не берётся из токена: смена роли
// действует начиная со следующего запроса.
func callerProfile(ctx context.Context, userRepo storage.UserStorage, callerID string) (*models.User, error) {
	user, err := userRepo.GetUserByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// токен валиден, но пользователя больше нет
			return nil, fmt.Errorf("caller not found: %w", ErrPermissionDenied)
		}
		return nil, fmt.Errorf("failed to get caller profile: %w", err)
	}
	return user, nil
}

// requireAdmin возвращает ErrPermissionDenied, если вызывающий не администратор.
func requireAdmin(ctx context.Context, userRepo storage.UserStorage, callerID string) (*models.User, error) {
	user, err := callerProfile(ctx, userRepo, callerID)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, fmt.Errorf("admin role required: %w", ErrPermissionDenied)
	}
	return user, nil
}
