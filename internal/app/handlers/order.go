package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linemk/pharmacy-shop/internal/domain/models"
	"github.com/linemk/pharmacy-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/pharmacy-shop/internal/service"
)

// OrderItemRequest — запрошенная позиция заказа.
type OrderItemRequest struct {
	MedicineID string `json:"medicineId" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest представляет входной JSON для создания заказа.
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress string             `json:"deliveryAddress" validate:"required"`
	PhoneNumber     string             `json:"phoneNumber" validate:"required"`
	Notes           string             `json:"notes"`
}

// UpdateStatusRequest — смена статуса заказа администратором.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatusResponse — ответ при успешной смене статуса.
type UpdateStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateOrderHandler обрабатывает запрос POST /api/orders.
func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		var req CreateOrderRequest
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

		in := service.CreateOrderInput{
			DeliveryAddress: req.DeliveryAddress,
			PhoneNumber:     req.PhoneNumber,
			Notes:           req.Notes,
		}
		for _, item := range req.Items {
			in.Items = append(in.Items, service.OrderItemInput{
				MedicineID: item.MedicineID,
				Quantity:   item.Quantity,
			})
		}

		order, err := orderService.Create(r.Context(), userID, in)
		if err != nil {
			logger.Error("failed to create order", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusCreated, order)
	}
}

// ListOrdersHandler обрабатывает запрос GET /api/orders.
// Администратор видит все заказы, пользователь — только свои.
func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		orders, err := orderService.List(r.Context(), userID, r.URL.Query().Get("status"))
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}
		if orders == nil {
			orders = []*models.Order{}
		}

		writeJSON(logger, w, http.StatusOK, orders)
	}
}

// GetOrderHandler обрабатывает запрос GET /api/orders/{id}.
func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		order, err := orderService.Get(r.Context(), userID, chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("failed to get order", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, order)
	}
}

// UpdateOrderStatusHandler обрабатывает запрос PUT /api/orders/{id}/status (только администратор).
// Остатки на складе этот путь не меняет, в том числе для статуса cancelled.
func UpdateOrderStatusHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		callerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeJSON(logger, w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
			return
		}

		orderID := chi.URLParam(r, "id")
		if err := orderService.UpdateStatus(r.Context(), callerID, orderID, req.Status); err != nil {
			logger.Error("failed to update order status", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, UpdateStatusResponse{ID: orderID, Status: req.Status})
	}
}

// CancelOrderHandler обрабатывает запрос DELETE /api/orders/{id}.
// Отмена доступна владельцу или администратору и только для статуса pending;
// зарезервированный товар возвращается на склад.
func CancelOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CancelOrderHandler"
		logger := log.With(slog.String("op", op))

		callerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		if err := orderService.Cancel(r.Context(), callerID, chi.URLParam(r, "id")); err != nil {
			logger.Error("failed to cancel order", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, map[string]string{"message": "order cancelled"})
	}
}
