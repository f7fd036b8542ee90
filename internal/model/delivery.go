package model

import (
	"time"
)

// DeliveryStatus is the lifecycle state of one delivery log entry.
// SENT and FAILED are terminal.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "PENDING"
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryFailed  DeliveryStatus = "FAILED"
)

// DeliveryLog tracks the delivery outcome for one customer of one
// campaign. Exactly one row exists per matched customer, created when
// the campaign is created; the set never grows or shrinks afterwards.
type DeliveryLog struct {
	ID              int64          `db:"id" json:"id"`
	CampaignID      int64          `db:"campaign_id" json:"campaignId"`
	CustomerID      int64          `db:"customer_id" json:"customerId"`
	Status          DeliveryStatus `db:"status" json:"status"`
	VendorMessageID *string        `db:"vendor_message_id" json:"vendorMessageId"`
	FailureReason   *string        `db:"failure_reason" json:"failureReason"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// DeliveryLogDetail is a delivery log joined with its customer
type DeliveryLogDetail struct {
	DeliveryLog
	CustomerName  string `db:"customer_name" json:"customerName"`
	CustomerEmail string `db:"customer_email" json:"customerEmail"`
}
