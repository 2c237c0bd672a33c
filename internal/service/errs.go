package service

import (
	"errors"
	"fmt"
)

// Ошибки бизнес-логики. Транспортный слой сопоставляет их с HTTP-статусами.
var (
	// ErrInvalidInput — некорректные данные запроса, никакие записи не изменялись.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials — неверная пара email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPermissionDenied — личность подтверждена, но прав недостаточно.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidStatus — статус вне допустимого набора.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrOrderNotCancellable — отменить можно только заказ в статусе pending.
	ErrOrderNotCancellable = errors.New("only pending orders can be cancelled")
	// ErrEmptyOrder — заказ без позиций.
	ErrEmptyOrder = errors.New("order must contain at least one item")
)

// InsufficientStockError возвращается, когда запрошенное количество
// превышает остаток на складе. Никакие остатки при этом не изменяются.
type InsufficientStockError struct {
	MedicineID string
	Name       string
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q, available: %d", e.Name, e.Available)
}
