package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linemk/pharmacy-shop/internal/domain/models"
	"github.com/linemk/pharmacy-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/pharmacy-shop/internal/service"
)

// ProfileResponse — профиль без хэша пароля.
type ProfileResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhoneNumber string    `json:"phone_number"`
	Address     string    `json:"address"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProfileResponse(u *models.User) ProfileResponse {
	return ProfileResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhoneNumber: u.PhoneNumber,
		Address:     u.Address,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// UpdateProfileRequest — разрешённые к изменению поля, остальное игнорируется.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	PhoneNumber *string `json:"phoneNumber"`
	Address     *string `json:"address"`
}

// SetRoleRequest — смена роли пользователя администратором.
type SetRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// ProfileHandler обрабатывает запрос GET /api/users/profile.
func ProfileHandler(log *slog.Logger, userService service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProfileHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		user, err := userService.Profile(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get profile", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, toProfileResponse(user))
	}
}

// UpdateProfileHandler обрабатывает запрос PUT /api/users/profile.
func UpdateProfileHandler(log *slog.Logger, userService service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProfileHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeJSON(logger, w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
			return
		}

		user, err := userService.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
			DisplayName: req.DisplayName,
			PhoneNumber: req.PhoneNumber,
			Address:     req.Address,
		})
		if err != nil {
			logger.Error("failed to update profile", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, toProfileResponse(user))
	}
}

// ListUsersHandler обрабатывает запрос GET /api/users (только администратор).
func ListUsersHandler(log *slog.Logger, userService service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListUsersHandler"
		logger := log.With(slog.String("op", op))

		callerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		users, err := userService.ListAll(r.Context(), callerID)
		if err != nil {
			logger.Error("failed to list users", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}

		resp := make([]ProfileResponse, 0, len(users))
		for _, u := range users {
			resp = append(resp, toProfileResponse(u))
		}
		writeJSON(logger, w, http.StatusOK, resp)
	}
}

// SetRoleHandler обрабатывает запрос PUT /api/users/{id}/role (только администратор).
func SetRoleHandler(log *slog.Logger, userService service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SetRoleHandler"
		logger := log.With(slog.String("op", op))

		callerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		var req SetRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeJSON(logger, w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeJSON(logger, w, http.StatusBadRequest, ErrorResponse{Error: "validation error"})
			return
		}

		targetID := chi.URLParam(r, "id")
		if err := userService.SetRole(r.Context(), callerID, targetID, req.Role); err != nil {
			logger.Error("failed to set role", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, map[string]string{"id": targetID, "role": req.Role})
	}
}
