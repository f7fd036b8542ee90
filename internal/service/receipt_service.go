package service

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/crm/internal/metrics"
	"github.com/kkkkikiki/crm/internal/model"
	"github.com/kkkkikiki/crm/internal/repository"
)

// ReceiptService reconciles asynchronous vendor delivery receipts with
// delivery logs. Receipts may arrive late, repeated, or not at all; the
// synchronous send path already wrote a terminal status, so a lost
// receipt leaves the system correct.
type ReceiptService struct {
	postgres     *sqlx.DB
	deliveryRepo *repository.DeliveryRepository
}

// NewReceiptService creates a new receipt service
func NewReceiptService(postgres *sqlx.DB) *ReceiptService {
	return &ReceiptService{
		postgres:     postgres,
		deliveryRepo: repository.NewDeliveryRepository(),
	}
}

// ApplyReceipt resolves the delivery log addressed by the vendor
// correlation id and overwrites its status with the reported outcome:
// SENT when the reported status equals "SENT" case-insensitively,
// FAILED otherwise. The overwrite is idempotent; a repeated receipt
// re-applies the same terminal status. Returns
// repository.ErrDeliveryNotFound for an unknown correlation id, with no
// state changed.
func (s *ReceiptService) ApplyReceipt(vendorMessageID, reportedStatus string) error {
	entry, err := s.deliveryRepo.GetByVendorMessageID(s.postgres, vendorMessageID)
	if err != nil {
		metrics.RecordReceipt("not_found")
		return err
	}

	status := model.DeliveryFailed
	if strings.EqualFold(reportedStatus, string(model.DeliverySent)) {
		status = model.DeliverySent
	}

	if err := s.deliveryRepo.OverwriteStatus(s.postgres, entry.ID, status); err != nil {
		return err
	}

	metrics.RecordReceipt("applied")
	return nil
}
