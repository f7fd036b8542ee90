package repository

import (
	"fmt"
	"time"

	"github.com/kkkkikiki/crm/internal/model"
)

// OrderRepository handles order data operations
type OrderRepository struct{}

// NewOrderRepository creates a new order repository
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

// CreateOrder inserts a new order and fills in its generated ID
func (r *OrderRepository) CreateOrder(db DBExecutor, order *model.Order) error {
	query := `
		INSERT INTO orders (customer_id, amount, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	err := db.Get(&order.ID, query, order.CustomerID, order.Amount, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// ListOrders returns orders joined with their customer, optionally
// restricted to one customer
func (r *OrderRepository) ListOrders(db DBExecutor, customerID *int64) ([]model.OrderDetail, error) {
	var orders []model.OrderDetail
	var err error

	baseQuery := `
		SELECT o.id, o.customer_id, o.amount, o.created_at,
		       c.name AS customer_name, c.email AS customer_email
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
	`

	if customerID == nil {
		err = db.Select(&orders, baseQuery+` ORDER BY o.created_at DESC`)
	} else {
		err = db.Select(&orders, baseQuery+` WHERE o.customer_id = $1 ORDER BY o.created_at DESC`, *customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, nil
}

// CountOrders returns the total number of orders
func (r *OrderRepository) CountOrders(db DBExecutor) (int64, error) {
	var count int64
	if err := db.Get(&count, `SELECT COUNT(*) FROM orders`); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// SumOrderAmounts returns the total revenue across all orders
func (r *OrderRepository) SumOrderAmounts(db DBExecutor) (float64, error) {
	var sum float64
	if err := db.Get(&sum, `SELECT COALESCE(SUM(amount), 0) FROM orders`); err != nil {
		return 0, fmt.Errorf("failed to sum order amounts: %w", err)
	}
	return sum, nil
}
