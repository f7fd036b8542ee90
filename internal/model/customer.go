package model

import (
	"time"
)

// Customer represents a customer record with order-derived aggregates
type Customer struct {
	ID           int64      `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	TotalVisits  int        `db:"total_visits" json:"totalVisits"`
	TotalSpend   float64    `db:"total_spend" json:"totalSpend"`
	LastActiveAt *time.Time `db:"last_active_at" json:"lastActiveAt"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// Order represents a single purchase made by a customer
type Order struct {
	ID         int64     `db:"id" json:"id"`
	CustomerID int64     `db:"customer_id" json:"customerId"`
	Amount     float64   `db:"amount" json:"amount"`
	CreatedAt  time.Time `db:"created_at" json:"date"`
}

// OrderDetail is an order joined with its customer for list views
type OrderDetail struct {
	Order
	CustomerName  string `db:"customer_name" json:"customerName"`
	CustomerEmail string `db:"customer_email" json:"customerEmail"`
}
