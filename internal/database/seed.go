package database

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
)

type demoCustomer struct {
	name          string
	email         string
	totalSpend    float64
	totalVisits   int
	daysSinceSeen int
}

var demoCustomers = []demoCustomer{
	{"Mohit Sharma", "mohit@example.com", 12000, 4, 10},
	{"Ananya Gupta", "ananya@example.com", 3000, 2, 95},
	{"Rohit Verma", "rohit@example.com", 22000, 8, 3},
}

// SeedDemoCustomers inserts a few demo customers so segmentation can be
// tried out on a fresh database. No-op when any customers already exist.
func SeedDemoCustomers(db *sqlx.DB) error {
	var count int64
	if err := db.Get(&count, `SELECT COUNT(*) FROM customers`); err != nil {
		return fmt.Errorf("failed to count customers: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	for _, c := range demoCustomers {
		lastActive := now.AddDate(0, 0, -c.daysSinceSeen)
		_, err := db.Exec(`
			INSERT INTO customers (name, email, total_spend, total_visits, last_active_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, c.name, c.email, c.totalSpend, c.totalVisits, lastActive, now)
		if err != nil {
			return fmt.Errorf("failed to seed customer %s: %w", c.email, err)
		}
	}

	log.Printf("Seeded %d demo customers", len(demoCustomers))
	return nil
}
