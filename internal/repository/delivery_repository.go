package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/crm/internal/model"
)

// DeliveryRepository handles delivery log data operations
type DeliveryRepository struct{}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository() *DeliveryRepository {
	return &DeliveryRepository{}
}

// CreatePendingLogs creates one PENDING delivery log per customer in
// batch within an existing transaction, so a campaign's recipient set
// becomes visible all at once.
func (r *DeliveryRepository) CreatePendingLogs(tx *sqlx.Tx, campaignID int64, customerIDs []int64) error {
	now := time.Now()

	// Batch size keeps us well under the PostgreSQL parameter limit
	batchSize := 1000

	for i := 0; i < len(customerIDs); i += batchSize {
		end := i + batchSize
		if end > len(customerIDs) {
			end = len(customerIDs)
		}

		batch := customerIDs[i:end]
		if err := r.insertLogBatch(tx, campaignID, batch, now); err != nil {
			return fmt.Errorf("failed to insert delivery log batch: %w", err)
		}
	}

	return nil
}

// insertLogBatch inserts a batch of delivery logs using a single query
func (r *DeliveryRepository) insertLogBatch(tx *sqlx.Tx, campaignID int64, customerIDs []int64, createdAt time.Time) error {
	if len(customerIDs) == 0 {
		return nil
	}

	valuesClause := make([]string, len(customerIDs))
	args := make([]interface{}, 0, len(customerIDs)*5)

	for i, customerID := range customerIDs {
		valuesClause[i] = fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			i*5+1, i*5+2, i*5+3, i*5+4, i*5+5)
		args = append(args, campaignID, customerID, model.DeliveryPending, createdAt, createdAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO delivery_logs (campaign_id, customer_id, status, created_at, updated_at)
		VALUES %s
	`, strings.Join(valuesClause, ", "))

	_, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute batch insert: %w", err)
	}

	return nil
}

// ListByCampaign returns a campaign's delivery logs joined with their
// customers, oldest first
func (r *DeliveryRepository) ListByCampaign(db DBExecutor, campaignID int64) ([]model.DeliveryLogDetail, error) {
	var logs []model.DeliveryLogDetail
	err := db.Select(&logs, `
		SELECT d.id, d.campaign_id, d.customer_id, d.status,
		       d.vendor_message_id, d.failure_reason, d.created_at, d.updated_at,
		       c.name AS customer_name, c.email AS customer_email
		FROM delivery_logs d
		JOIN customers c ON c.id = d.customer_id
		WHERE d.campaign_id = $1
		ORDER BY d.id ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	return logs, nil
}

// GetByVendorMessageID retrieves the delivery log carrying the given
// vendor correlation id
func (r *DeliveryRepository) GetByVendorMessageID(db DBExecutor, vendorMessageID string) (*model.DeliveryLog, error) {
	query := `
		SELECT id, campaign_id, customer_id, status,
		       vendor_message_id, failure_reason, created_at, updated_at
		FROM delivery_logs
		WHERE vendor_message_id = $1
	`

	var log model.DeliveryLog
	err := db.Get(&log, query, vendorMessageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("failed to get delivery log: %w", err)
	}

	return &log, nil
}

// MarkResult transitions a delivery log from PENDING to a terminal
// status, recording the vendor correlation id. The status guard in the
// WHERE clause makes the transition a compare-and-set: concurrent sends
// cannot double-transition the same log.
func (r *DeliveryRepository) MarkResult(db DBExecutor, id int64, status model.DeliveryStatus, vendorMessageID string, failureReason *string) error {
	query := `
		UPDATE delivery_logs
		SET status = $1, vendor_message_id = $2, failure_reason = $3, updated_at = $4
		WHERE id = $5 AND status = 'PENDING'
	`

	result, err := db.Exec(query, status, vendorMessageID, failureReason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark delivery result: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotPending
	}

	return nil
}

// OverwriteStatus applies a vendor receipt by overwriting the status
// unconditionally. Receipts are idempotent by overwrite: a repeated
// receipt re-applies the same terminal status.
func (r *DeliveryRepository) OverwriteStatus(db DBExecutor, id int64, status model.DeliveryStatus) error {
	query := `
		UPDATE delivery_logs
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := db.Exec(query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to overwrite delivery status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeliveryNotFound
	}

	return nil
}

// CountByStatus returns the number of a campaign's delivery logs in
// each status
func (r *DeliveryRepository) CountByStatus(db DBExecutor, campaignID int64) (map[model.DeliveryStatus]int64, error) {
	var rows []struct {
		Status model.DeliveryStatus `db:"status"`
		Count  int64                `db:"count"`
	}

	err := db.Select(&rows, `
		SELECT status, COUNT(*) AS count
		FROM delivery_logs
		WHERE campaign_id = $1
		GROUP BY status
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to count delivery logs: %w", err)
	}

	counts := make(map[model.DeliveryStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
