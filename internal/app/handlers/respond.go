package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/pharmacy-shop/internal/service"
	"github.com/linemk/pharmacy-shop/internal/storage"
)

// ErrorResponse — структура тела ошибки для всех эндпоинтов.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeError сопоставляет ошибку бизнес-логики с HTTP-статусом.
// Необработанные ошибки наружу не раскрываются.
func writeError(log *slog.Logger, w http.ResponseWriter, err error) {
	var stockErr *service.InsufficientStockError

	switch {
	case errors.As(err, &stockErr):
		writeJSON(log, w, http.StatusBadRequest, ErrorResponse{Error: stockErr.Error()})
	case errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, storage.ErrEmailTaken):
		writeJSON(log, w, http.StatusBadRequest, ErrorResponse{Error: unwrapMessage(err)})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(log, w, http.StatusUnauthorized, ErrorResponse{Error: service.ErrInvalidCredentials.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		writeJSON(log, w, http.StatusForbidden, ErrorResponse{Error: service.ErrPermissionDenied.Error()})
	case errors.Is(err, storage.ErrMedicineNotFound):
		writeJSON(log, w, http.StatusNotFound, ErrorResponse{Error: storage.ErrMedicineNotFound.Error()})
	case errors.Is(err, storage.ErrOrderNotFound):
		writeJSON(log, w, http.StatusNotFound, ErrorResponse{Error: storage.ErrOrderNotFound.Error()})
	case errors.Is(err, storage.ErrUserNotFound):
		writeJSON(log, w, http.StatusNotFound, ErrorResponse{Error: storage.ErrUserNotFound.Error()})
	default:
		writeJSON(log, w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// unwrapMessage достаёт сообщение сентинела из цепочки, чтобы не
// отдавать клиенту служебные префиксы с именем операции.
func unwrapMessage(err error) string {
	for _, sentinel := range []error{
		service.ErrEmptyOrder,
		service.ErrInvalidStatus,
		service.ErrOrderNotCancellable,
		storage.ErrEmailTaken,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	if errors.Is(err, service.ErrInvalidInput) {
		return service.ErrInvalidInput.Error()
	}
	return "bad request"
}
