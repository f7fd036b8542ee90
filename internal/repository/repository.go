package repository

import (
	"database/sql"
	"errors"
)

// DBExecutor interface for database operations (can be *sqlx.DB or *sqlx.Tx)
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
}

// Sentinel errors surfaced to callers; match with errors.Is.
var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrSegmentNotFound  = errors.New("segment not found")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrDeliveryNotFound = errors.New("delivery log not found")

	// ErrNotPending is returned when a compare-and-set transition finds
	// the delivery log already in a terminal state.
	ErrNotPending = errors.New("delivery log not found or already delivered")
)
