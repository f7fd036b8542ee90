package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/crm/internal/config"
	"github.com/kkkkikiki/crm/internal/service"
	"github.com/kkkkikiki/crm/internal/suggest"
)

func setupTestServer(t *testing.T) (*Server, sqlmock.Sqlmock, *httptest.Server) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")

	receiptSink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(receiptSink.Close)

	// SuccessRate 1.0 pins every simulated send to SENT
	vendor := service.NewVendorSimulator(db, config.VendorConfig{SuccessRate: 1.0}, receiptSink.URL)
	server := New(db, vendor, suggest.New(config.SuggestConfig{}))
	return server, mock, receiptSink
}

func doRequest(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	return payload
}

func TestPreviewAudienceEndpoint(t *testing.T) {
	server, mock, _ := setupTestServer(t)

	now := time.Now()
	mock.ExpectQuery("SELECT id, name, email, total_spend").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "name", "email", "total_spend", "total_visits", "last_active_at", "created_at"}).
			AddRow(1, "Mohit Sharma", "mohit@example.com", 12000.0, 4, now, now).
			AddRow(2, "Ananya Gupta", "ananya@example.com", 3000.0, 2, now, now))

	rec := doRequest(t, server, http.MethodPost, "/api/segments/preview", map[string]string{
		"ruleJson": `{"field":"totalSpend","operator":">","value":5000}`,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["audienceSize"])
}

func TestPreviewSegmentNotFound(t *testing.T) {
	server, mock, _ := setupTestServer(t)

	mock.ExpectQuery("SELECT id, name, rule_json").
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	rec := doRequest(t, server, http.MethodGet, "/api/segments/404/preview-size", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "segment not found", decodeBody(t, rec)["error"])
}

func TestCreateCampaignUnknownSegmentReturns404(t *testing.T) {
	server, mock, _ := setupTestServer(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, rule_json").
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	rec := doRequest(t, server, http.MethodPost, "/api/campaigns", map[string]interface{}{
		"segmentId": 404,
		"name":      "Nope",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVendorReceiptUnknownCorrelationIDReturns400(t *testing.T) {
	server, mock, _ := setupTestServer(t)

	mock.ExpectQuery("FROM delivery_logs").
		WithArgs("missing-id").
		WillReturnError(sql.ErrNoRows)

	rec := doRequest(t, server, http.MethodPost, "/api/vendor/receipt", map[string]string{
		"vendorMessageId": "missing-id",
		"status":          "SENT",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "vendorMessageId not found", decodeBody(t, rec)["error"])
}

func TestVendorReceiptAppliesStatus(t *testing.T) {
	server, mock, _ := setupTestServer(t)

	now := time.Now()
	mock.ExpectQuery("FROM delivery_logs").
		WithArgs("vendor-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "campaign_id", "customer_id", "status",
			"vendor_message_id", "failure_reason", "created_at", "updated_at",
		}).AddRow(7, 10, 2, "SENT", "vendor-1", nil, now, now))
	mock.ExpectExec("UPDATE delivery_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(t, server, http.MethodPost, "/api/vendor/receipt", map[string]string{
		"vendorMessageId": "vendor-1",
		"status":          "sent",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])
}

func TestCampaignStatsEndpoint(t *testing.T) {
	server, mock, _ := setupTestServer(t)

	mock.ExpectQuery("SELECT id, name, segment_id").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "segment_id", "message", "created_at"}).
			AddRow(10, "Diwali Promo", 5, "Hi {name}", time.Now()))
	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("SENT", 8).
			AddRow("FAILED", 2))

	rec := doRequest(t, server, http.MethodGet, "/api/campaigns/10/stats", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(8), body["sent"])
	assert.Equal(t, float64(2), body["failed"])
	assert.Equal(t, float64(10), body["total"])
}

func TestSuggestMessagesEndpoint(t *testing.T) {
	server, _, _ := setupTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/messages/suggest", map[string]string{
		"objective": "bring back inactive users with 15% off",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Suggestions []string `json:"suggestions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Suggestions, 3)
	for _, s := range body.Suggestions {
		assert.Contains(t, s, "{name}")
		assert.Contains(t, s, "15%")
	}
}

func TestPublicHealthEndpoint(t *testing.T) {
	server, _, _ := setupTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/public/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestCreateCustomerValidatesInput(t *testing.T) {
	server, _, _ := setupTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/customers", map[string]string{
		"name": "No Email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
