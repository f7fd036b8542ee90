package service

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/crm/internal/model"
	"github.com/kkkkikiki/crm/internal/repository"
)

func existingLogRow(id int64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "campaign_id", "customer_id", "status",
		"vendor_message_id", "failure_reason", "created_at", "updated_at",
	}).AddRow(id, 10, 2, status, "vendor-1", nil, now, now)
}

func TestApplyReceiptUnknownCorrelationID(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewReceiptService(db)

	mock.ExpectQuery("FROM delivery_logs").
		WithArgs("missing-id").
		WillReturnError(sql.ErrNoRows)

	err := svc.ApplyReceipt("missing-id", "SENT")
	assert.ErrorIs(t, err, repository.ErrDeliveryNotFound)

	// No update was issued
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyReceiptIsCaseInsensitive(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewReceiptService(db)

	mock.ExpectQuery("FROM delivery_logs").
		WithArgs("vendor-1").
		WillReturnRows(existingLogRow(7, "SENT"))
	mock.ExpectExec("UPDATE delivery_logs").
		WithArgs(model.DeliverySent, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.ApplyReceipt("vendor-1", "sent")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyReceiptMapsUnknownStatusToFailed(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewReceiptService(db)

	mock.ExpectQuery("FROM delivery_logs").
		WithArgs("vendor-1").
		WillReturnRows(existingLogRow(7, "SENT"))
	mock.ExpectExec("UPDATE delivery_logs").
		WithArgs(model.DeliveryFailed, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.ApplyReceipt("vendor-1", "bounced")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyReceiptIsIdempotentByOverwrite(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewReceiptService(db)

	// A repeated receipt re-applies the same terminal status
	for i := 0; i < 2; i++ {
		mock.ExpectQuery("FROM delivery_logs").
			WithArgs("vendor-1").
			WillReturnRows(existingLogRow(7, "SENT"))
		mock.ExpectExec("UPDATE delivery_logs").
			WithArgs(model.DeliverySent, sqlmock.AnyArg(), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, svc.ApplyReceipt("vendor-1", "SENT"))
	require.NoError(t, svc.ApplyReceipt("vendor-1", "SENT"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
