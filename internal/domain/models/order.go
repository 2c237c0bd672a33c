package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы заказа. Pending — начальный статус, только из него
// доступна отмена с возвратом товара на склад.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// ValidOrderStatus проверяет, входит ли статус в допустимый набор.
func ValidOrderStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order представляет заказ пользователя
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	UserEmail       string          `json:"user_email"` // Денормализуется при создании заказа
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"` // Сумма позиций, считается на сервере
	DeliveryAddress string          `json:"delivery_address"`
	PhoneNumber     string          `json:"phone_number"`
	Notes           string          `json:"notes"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem — снимок позиции каталога на момент создания заказа.
// Последующие изменения цены медикамента на заказ не влияют.
type OrderItem struct {
	MedicineID string          `json:"medicine_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Total      decimal.Decimal `json:"total"` // price * quantity
}
