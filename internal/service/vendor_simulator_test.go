package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/crm/internal/config"
	"github.com/kkkkikiki/crm/internal/repository"
)

func deliveryLogColumns() []string {
	return []string{
		"id", "campaign_id", "customer_id", "status",
		"vendor_message_id", "failure_reason", "created_at", "updated_at",
		"customer_name", "customer_email",
	}
}

func campaignRow(id int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "segment_id", "message", "created_at"}).
		AddRow(id, "Diwali Promo", 5, "Hi {name}, 20% off!", time.Now())
}

type receiptCollector struct {
	server   *httptest.Server
	payloads chan map[string]string
}

func newReceiptCollector(t *testing.T) *receiptCollector {
	t.Helper()
	c := &receiptCollector{payloads: make(chan map[string]string, 16)}
	c.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		c.payloads <- payload
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(c.server.Close)
	return c
}

func TestSendCampaignDispatchesOnlyPendingLogs(t *testing.T) {
	db, mock := setupMockDB(t)
	collector := newReceiptCollector(t)

	vendor := NewVendorSimulator(db, config.VendorConfig{SuccessRate: 0.9}, collector.server.URL)

	// First draw succeeds, second fails
	draws := []float64{0.1, 0.95}
	vendor.randFloat = func() float64 {
		d := draws[0]
		draws = draws[1:]
		return d
	}

	now := time.Now()
	mock.ExpectQuery("SELECT id, name, segment_id").
		WithArgs(int64(10)).
		WillReturnRows(campaignRow(10))
	mock.ExpectQuery("SELECT d.id, d.campaign_id").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(deliveryLogColumns()).
			AddRow(1, 10, 1, "SENT", "prior-run-id", nil, now, now, "Mohit Sharma", "mohit@example.com").
			AddRow(2, 10, 2, "PENDING", nil, nil, now, now, "Ananya Gupta", "ananya@example.com").
			AddRow(3, 10, 3, "PENDING", nil, nil, now, now, "Rohit Verma", "rohit@example.com"))
	mock.ExpectExec("UPDATE delivery_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE delivery_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	summary, err := vendor.SendCampaign(context.Background(), 10)
	require.NoError(t, err)

	// Total counts every log, including the one terminal from a prior run
	assert.Equal(t, SendSummary{CampaignID: 10, Sent: 1, Failed: 1, Total: 3}, summary)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Both sends emit an asynchronous receipt, best effort
	vendor.WaitForReceipts()
	statuses := map[string]int{}
	for i := 0; i < 2; i++ {
		select {
		case payload := <-collector.payloads:
			assert.NotEmpty(t, payload["vendorMessageId"])
			statuses[payload["status"]]++
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for receipt")
		}
	}
	assert.Equal(t, map[string]int{"SENT": 1, "FAILED": 1}, statuses)
}

func TestSendCampaignSkipsLogsLostToConcurrentDispatch(t *testing.T) {
	db, mock := setupMockDB(t)
	collector := newReceiptCollector(t)

	vendor := NewVendorSimulator(db, config.VendorConfig{SuccessRate: 1.0}, collector.server.URL)
	vendor.randFloat = func() float64 { return 0.0 }

	now := time.Now()
	mock.ExpectQuery("SELECT id, name, segment_id").
		WithArgs(int64(10)).
		WillReturnRows(campaignRow(10))
	mock.ExpectQuery("SELECT d.id, d.campaign_id").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(deliveryLogColumns()).
			AddRow(2, 10, 2, "PENDING", nil, nil, now, now, "Ananya Gupta", "ananya@example.com"))
	// The compare-and-set finds the log already transitioned elsewhere
	mock.ExpectExec("UPDATE delivery_logs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	summary, err := vendor.SendCampaign(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, SendSummary{CampaignID: 10, Sent: 0, Failed: 0, Total: 1}, summary)

	// No receipt goes out for a lost race
	vendor.WaitForReceipts()
	select {
	case payload := <-collector.payloads:
		t.Fatalf("unexpected receipt: %v", payload)
	default:
	}
}

func TestSendCampaignUnknownCampaign(t *testing.T) {
	db, mock := setupMockDB(t)
	vendor := NewVendorSimulator(db, config.VendorConfig{SuccessRate: 0.9}, "http://localhost:0")

	mock.ExpectQuery("SELECT id, name, segment_id").
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := vendor.SendCampaign(context.Background(), 404)
	assert.ErrorIs(t, err, repository.ErrCampaignNotFound)
}

func TestPersonalizeMessage(t *testing.T) {
	assert.Equal(t, "Hi Mohit Sharma, 20% off!",
		PersonalizeMessage("Hi {name}, 20% off!", "Mohit Sharma"))
	assert.Equal(t, "No placeholder here",
		PersonalizeMessage("No placeholder here", "Mohit Sharma"))
}
