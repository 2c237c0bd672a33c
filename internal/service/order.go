package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/linemk/pharmacy-shop/internal/domain/models"
	"github.com/linemk/pharmacy-shop/internal/storage"
)

// OrderItemInput — запрошенная позиция заказа.
type OrderItemInput struct {
	MedicineID string
	Quantity   int
}

// CreateOrderInput — данные нового заказа от клиента.
// Итоговая сумма клиенту не доверяется и считается на сервере.
type CreateOrderInput struct {
	Items           []OrderItemInput
	DeliveryAddress string
	PhoneNumber     string
	Notes           string
}

// OrderService определяет операции жизненного цикла заказа.
type OrderService interface {
	Create(ctx context.Context, userID string, in CreateOrderInput) (*models.Order, error)
	List(ctx context.Context, userID string, status string) ([]*models.Order, error)
	Get(ctx context.Context, userID string, orderID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, callerID string, orderID string, status string) error
	Cancel(ctx context.Context, callerID string, orderID string) error
}

type orderService struct {
	log          *slog.Logger
	db           *sql.DB
	userRepo     storage.UserStorage
	medicineRepo storage.MedicineStorage
	orderRepo    storage.OrderStorage
}

func NewOrderService(log *slog.Logger, db *sql.DB, userRepo storage.UserStorage, medicineRepo storage.MedicineStorage, orderRepo storage.OrderStorage) OrderService {
	return &orderService{
		log:          log,
		db:           db,
		userRepo:     userRepo,
		medicineRepo: medicineRepo,
		orderRepo:    orderRepo,
	}
}

// Create резервирует товар под новый заказ.
// Проверка остатков, запись заказа и списание выполняются в одной транзакции:
// строки медикаментов блокируются, поэтому конкурентные заказы на один и тот же
// товар сериализуются и пересписания остатков не происходит.
// Если что-то идет не так, транзакция откатывается и остатки не меняются.
func (s *orderService) Create(ctx context.Context, userID string, in CreateOrderInput) (*models.Order, error) {
	const op = "service.OrderService.Create"
	logger := s.log.With(slog.String("op", op), slog.String("userID", userID))

	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyOrder)
	}
	if in.DeliveryAddress == "" {
		return nil, fmt.Errorf("%s: delivery address is required: %w", op, ErrInvalidInput)
	}
	if in.PhoneNumber == "" {
		return nil, fmt.Errorf("%s: phone number is required: %w", op, ErrInvalidInput)
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%s: item quantity must be positive: %w", op, ErrInvalidInput)
		}
	}

	user, err := callerProfile(ctx, s.userRepo, userID)
	if err != nil {
		logger.Error("failed to get caller", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("starting reservation transaction")
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		// Блокируем строку медикамента на время транзакции
		medicine, err := s.medicineRepo.LockMedicineByIDTx(ctx, tx, item.MedicineID)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to get medicine", slog.String("medicineID", item.MedicineID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get medicine %s: %w", op, item.MedicineID, err)
		}

		// Проверяем, достаточно ли товара на складе
		if medicine.Quantity < item.Quantity {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("insufficient stock",
				slog.String("medicine", medicine.Name),
				slog.Int("available", medicine.Quantity),
				slog.Int("requested", item.Quantity))
			return nil, fmt.Errorf("%s: %w", op, &InsufficientStockError{
				MedicineID: medicine.ID,
				Name:       medicine.Name,
				Available:  medicine.Quantity,
			})
		}

		lineTotal := medicine.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(lineTotal)
		items = append(items, models.OrderItem{
			MedicineID: medicine.ID,
			Name:       medicine.Name,
			Price:      medicine.Price,
			Quantity:   item.Quantity,
			Total:      lineTotal,
		})

		// Списываем остаток
		newQuantity := medicine.Quantity - item.Quantity
		if err := s.medicineRepo.UpdateMedicineQuantityTx(ctx, tx, medicine.ID, newQuantity); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to update medicine quantity", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to update medicine quantity: %w", op, err)
		}
	}

	order := &models.Order{
		UserID:          user.ID,
		UserEmail:       user.Email,
		Items:           items,
		TotalAmount:     total,
		DeliveryAddress: in.DeliveryAddress,
		PhoneNumber:     in.PhoneNumber,
		Notes:           in.Notes,
		Status:          models.StatusPending,
	}
	order, err = s.orderRepo.CreateOrder(ctx, tx, order)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order created", slog.String("orderID", order.ID), slog.String("total", total.String()))
	return order, nil
}

// List возвращает заказы: администратору — все, пользователю — только свои.
func (s *orderService) List(ctx context.Context, userID string, status string) ([]*models.Order, error) {
	const op = "service.OrderService.List"
	logger := s.log.With(slog.String("op", op), slog.String("userID", userID))

	if status != "" && !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}

	caller, err := callerProfile(ctx, s.userRepo, userID)
	if err != nil {
		logger.Error("failed to get caller", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	filter := storage.OrderFilter{Status: status}
	if !caller.IsAdmin() {
		filter.UserID = caller.ID
	}

	orders, err := s.orderRepo.ListOrders(ctx, filter)
	if err != nil {
		logger.Error("failed to list orders", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	return orders, nil
}

// Get возвращает заказ владельцу или администратору.
func (s *orderService) Get(ctx context.Context, userID string, orderID string) (*models.Order, error) {
	const op = "service.OrderService.Get"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if order.UserID != userID {
		caller, err := callerProfile(ctx, s.userRepo, userID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !caller.IsAdmin() {
			logger.Warn("access to foreign order denied")
			return nil, fmt.Errorf("%s: %w", op, ErrPermissionDenied)
		}
	}
	return order, nil
}

// UpdateStatus переводит заказ в любой статус из допустимого набора.
// Доступно только администратору. Остатки при этом не меняются даже
// для статуса cancelled: возврат товара делает только Cancel.
func (s *orderService) UpdateStatus(ctx context.Context, callerID string, orderID string, status string) error {
	const op = "service.OrderService.UpdateStatus"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID), slog.String("status", status))

	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}

	if _, err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		logger.Warn("status update denied", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, orderID, status); err != nil {
		logger.Error("failed to update order status", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("order status updated")
	return nil
}

// Cancel отменяет заказ в статусе pending и возвращает зарезервированный
// товар на склад. Возврат остатков и смена статуса выполняются в одной
// транзакции. Удалённые из каталога медикаменты пропускаются: их остаток
// просто не восстанавливается.
func (s *orderService) Cancel(ctx context.Context, callerID string, orderID string) error {
	const op = "service.OrderService.Cancel"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID), slog.String("callerID", callerID))
	logger.Info("starting cancellation transaction")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderByIDTx(ctx, tx, orderID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	// Отменить заказ может владелец или администратор
	if order.UserID != callerID {
		caller, err := callerProfile(ctx, s.userRepo, callerID)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		if !caller.IsAdmin() {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("cancellation of foreign order denied")
			return fmt.Errorf("%s: %w", op, ErrPermissionDenied)
		}
	}

	if order.Status != models.StatusPending {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("order is not cancellable", slog.String("status", order.Status))
		return fmt.Errorf("%s: %w", op, ErrOrderNotCancellable)
	}

	// Возвращаем товары на склад
	for _, item := range order.Items {
		medicine, err := s.medicineRepo.LockMedicineByIDTx(ctx, tx, item.MedicineID)
		if err != nil {
			if errors.Is(err, storage.ErrMedicineNotFound) {
				// медикамент удалён из каталога, остаток не восстанавливаем
				logger.Warn("medicine no longer exists, skipping restock", slog.String("medicineID", item.MedicineID))
				continue
			}
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to get medicine", slog.Any("error", err))
			return fmt.Errorf("%s: failed to get medicine %s: %w", op, item.MedicineID, err)
		}

		newQuantity := medicine.Quantity + item.Quantity
		if err := s.medicineRepo.UpdateMedicineQuantityTx(ctx, tx, medicine.ID, newQuantity); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to restore medicine quantity", slog.Any("error", err))
			return fmt.Errorf("%s: failed to restore medicine quantity: %w", op, err)
		}
	}

	if err := s.orderRepo.UpdateOrderStatusTx(ctx, tx, orderID, models.StatusCancelled); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to update order status", slog.Any("error", err))
		return fmt.Errorf("%s: failed to update order status: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order cancelled")
	return nil
}
