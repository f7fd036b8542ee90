package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kkkkikiki/crm/internal/model"
)

// CustomerRepository handles customer data operations
type CustomerRepository struct {
	// DB-only repository, no per-instance state
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{}
}

// CreateCustomer inserts a new customer and fills in its generated ID
func (r *CustomerRepository) CreateCustomer(db DBExecutor, customer *model.Customer) error {
	query := `
		INSERT INTO customers (name, email, total_spend, total_visits, last_active_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	customer.CreatedAt = time.Now()

	err := db.Get(&customer.ID, query,
		customer.Name, customer.Email, customer.TotalSpend, customer.TotalVisits,
		customer.LastActiveAt, customer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// GetCustomer retrieves a customer by ID
func (r *CustomerRepository) GetCustomer(db DBExecutor, id int64) (*model.Customer, error) {
	query := `
		SELECT id, name, email, total_spend, total_visits, last_active_at, created_at
		FROM customers
		WHERE id = $1
	`

	var customer model.Customer
	err := db.Get(&customer, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &customer, nil
}

// ListCustomers returns all customers, optionally filtered by a
// case-insensitive name/email search term
func (r *CustomerRepository) ListCustomers(db DBExecutor, search string) ([]model.Customer, error) {
	var customers []model.Customer
	var err error

	if search == "" {
		err = db.Select(&customers, `
			SELECT id, name, email, total_spend, total_visits, last_active_at, created_at
			FROM customers
			ORDER BY created_at DESC
		`)
	} else {
		err = db.Select(&customers, `
			SELECT id, name, email, total_spend, total_visits, last_active_at, created_at
			FROM customers
			WHERE name ILIKE $1 OR email ILIKE $1
			ORDER BY created_at DESC
		`, "%"+search+"%")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	return customers, nil
}

// ApplyOrderAggregates bumps the order-derived aggregate fields for one
// customer: spend accumulates, visits increment, lastActiveAt resets.
func (r *CustomerRepository) ApplyOrderAggregates(db DBExecutor, customerID int64, amount float64, now time.Time) error {
	query := `
		UPDATE customers
		SET total_spend = total_spend + $1,
		    total_visits = total_visits + 1,
		    last_active_at = $2
		WHERE id = $3
	`

	result, err := db.Exec(query, amount, now, customerID)
	if err != nil {
		return fmt.Errorf("failed to apply order aggregates: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCustomerNotFound
	}

	return nil
}

// CountCustomers returns the total number of customers
func (r *CustomerRepository) CountCustomers(db DBExecutor) (int64, error) {
	var count int64
	if err := db.Get(&count, `SELECT COUNT(*) FROM customers`); err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}
