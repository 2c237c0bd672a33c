package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/linemk/pharmacy-shop/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderFilter — фильтры выборки заказов. Пустой UserID означает все заказы.
type OrderFilter struct {
	UserID string
	Status string
}

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrder вставляет заказ вместе с позициями в рамках транзакции.
	CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (*models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	// LockOrderByIDTx блокирует строку заказа на время транзакции отмены.
	LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id string) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) error
	UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, id, status string) error
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = "id, user_id, user_email, total_amount, delivery_address, phone_number, notes, status, created_at, updated_at"

// querier покрывает *sql.DB и *sql.Tx для чтения позиций заказа.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *orderRepository) itemsFor(ctx context.Context, q querier, orderID string) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT medicine_id, name, price, quantity, total FROM order_items WHERE order_id = $1 ORDER BY id",
		orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.MedicineID, &item.Name, &item.Price, &item.Quantity, &item.Total); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	if err := row.Scan(&order.ID, &order.UserID, &order.UserEmail, &order.TotalAmount,
		&order.DeliveryAddress, &order.PhoneNumber, &order.Notes, &order.Status,
		&order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, err
	}
	return order, nil
}

// CreateOrder вставляет заказ и его позиции, идентификатор генерируется здесь.
func (r *orderRepository) CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (*models.Order, error) {
	order.ID = uuid.NewString()
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (id, user_id, user_email, total_amount, delivery_address, phone_number, notes, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.UserEmail, order.TotalAmount,
		order.DeliveryAddress, order.PhoneNumber, order.Notes, order.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, medicine_id, name, price, quantity, total)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, item.MedicineID, item.Name, item.Price, item.Quantity, item.Total)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return order, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	items, err := r.itemsFor(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id string) (*models.Order, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	items, err := r.itemsFor(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders"
	var conds []string
	var args []any

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		items, err := r.itemsFor(ctx, r.db, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
