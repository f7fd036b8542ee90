package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kkkkikiki/crm/internal/model"
	"github.com/kkkkikiki/crm/internal/repository"
)

const (
	defaultCampaignName    = "Campaign"
	defaultCampaignMessage = "Hi {name}, here's 10% off!"
)

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var customer model.Customer
	if err := json.NewDecoder(r.Body).Decode(&customer); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if customer.Name == "" || customer.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}

	if err := s.customerRepo.CreateCustomer(s.db, &customer); err != nil {
		log.Printf("create customer failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create customer")
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.customerRepo.ListCustomers(s.db, r.URL.Query().Get("search"))
	if err != nil {
		log.Printf("list customers failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list customers")
		return
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CustomerID int64   `json:"customerId"`
		Amount     float64 `json:"amount"`
		Date       string  `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order := model.Order{CustomerID: input.CustomerID, Amount: input.Amount}
	if input.Date != "" {
		// Ignore unparseable dates, matching lenient ingestion
		if dt, err := time.Parse(time.RFC3339, input.Date); err == nil {
			order.CreatedAt = dt
		}
	}

	tx, err := s.db.BeginTxx(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to begin transaction")
		return
	}
	defer tx.Rollback()

	if _, err := s.customerRepo.GetCustomer(tx, input.CustomerID); err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		log.Printf("create order failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	if err := s.orderRepo.CreateOrder(tx, &order); err != nil {
		log.Printf("create order failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	// Keep the aggregates the rule engine reads in step with orders
	if err := s.customerRepo.ApplyOrderAggregates(tx, input.CustomerID, input.Amount, time.Now()); err != nil {
		log.Printf("apply order aggregates failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update customer aggregates")
		return
	}

	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to commit transaction")
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	var customerID *int64
	if raw := r.URL.Query().Get("customerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid customerId")
			return
		}
		customerID = &id
	}

	orders, err := s.orderRepo.ListOrders(s.db, customerID)
	if err != nil {
		log.Printf("list orders failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []model.OrderDetail{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleCreateSegment(w http.ResponseWriter, r *http.Request) {
	var segment model.Segment
	if err := json.NewDecoder(r.Body).Decode(&segment); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if segment.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := s.segmentRepo.CreateSegment(s.db, &segment); err != nil {
		log.Printf("create segment failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create segment")
		return
	}
	writeJSON(w, http.StatusCreated, segment)
}

func (s *Server) handleListSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := s.segmentRepo.ListSegments(s.db)
	if err != nil {
		log.Printf("list segments failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list segments")
		return
	}
	if segments == nil {
		segments = []model.Segment{}
	}
	writeJSON(w, http.StatusOK, segments)
}

func (s *Server) handlePreviewAudience(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RuleJSON string `json:"ruleJson"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	size, err := s.audience.PreviewAudience(s.db, input.RuleJSON)
	if err != nil {
		log.Printf("preview audience failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to preview audience")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"audienceSize": size})
}

func (s *Server) handlePreviewSegment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid segment id")
		return
	}

	size, err := s.audience.PreviewSegment(s.db, id)
	if err != nil {
		if errors.Is(err, repository.ErrSegmentNotFound) {
			writeError(w, http.StatusNotFound, "segment not found")
			return
		}
		log.Printf("preview segment failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to preview segment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"segmentId": id, "audienceSize": size})
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var input struct {
		SegmentID int64  `json:"segmentId"`
		Name      string `json:"name"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Name == "" {
		input.Name = defaultCampaignName
	}
	if input.Message == "" {
		input.Message = defaultCampaignMessage
	}

	campaign, err := s.campaigns.CreateCampaign(r.Context(), input.SegmentID, input.Name, input.Message)
	if err != nil {
		if errors.Is(err, repository.ErrSegmentNotFound) {
			writeError(w, http.StatusNotFound, "segment not found")
			return
		}
		log.Printf("create campaign failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.campaigns.ListCampaigns()
	if err != nil {
		log.Printf("list campaigns failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}
	if campaigns == nil {
		campaigns = []model.Campaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (s *Server) handleCampaignLogs(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	logs, err := s.campaigns.CampaignLogs(id)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		log.Printf("campaign logs failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load campaign logs")
		return
	}
	if logs == nil {
		logs = []model.DeliveryLogDetail{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleCampaignStats(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	stats, err := s.campaigns.Stats(id)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		log.Printf("campaign stats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load campaign stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSendCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "campaignID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	summary, err := s.vendor.SendCampaign(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		log.Printf("send campaign failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to send campaign")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleVendorReceipt(w http.ResponseWriter, r *http.Request) {
	var input struct {
		VendorMessageID string `json:"vendorMessageId"`
		Status          string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Status == "" {
		input.Status = string(model.DeliverySent)
	}

	if err := s.receipts.ApplyReceipt(input.VendorMessageID, input.Status); err != nil {
		if errors.Is(err, repository.ErrDeliveryNotFound) {
			writeError(w, http.StatusBadRequest, "vendorMessageId not found")
			return
		}
		log.Printf("apply receipt failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to apply receipt")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSuggestMessages(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Objective string `json:"objective"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	suggestions := s.suggester.SuggestMessages(r.Context(), input.Objective)
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	totalCustomers, err := s.customerRepo.CountCustomers(s.db)
	if err != nil {
		log.Printf("dashboard stats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard stats")
		return
	}
	totalOrders, err := s.orderRepo.CountOrders(s.db)
	if err != nil {
		log.Printf("dashboard stats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard stats")
		return
	}
	totalIncome, err := s.orderRepo.SumOrderAmounts(s.db)
	if err != nil {
		log.Printf("dashboard stats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard stats")
		return
	}
	campaigns, err := s.campaigns.ListCampaigns()
	if err != nil {
		log.Printf("dashboard stats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard stats")
		return
	}

	lastCampaign := map[string]interface{}{}
	if len(campaigns) > 0 {
		latest := campaigns[len(campaigns)-1]
		stats, err := s.campaigns.Stats(latest.ID)
		if err != nil {
			log.Printf("dashboard stats failed: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to load dashboard stats")
			return
		}
		lastCampaign = map[string]interface{}{
			"id":     latest.ID,
			"name":   latest.Name,
			"sent":   stats.Sent,
			"failed": stats.Failed,
			"total":  stats.Total,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalCustomers": totalCustomers,
		"totalOrders":    totalOrders,
		"totalCampaigns": len(campaigns),
		"totalIncome":    totalIncome,
		"lastCampaign":   lastCampaign,
	})
}

func (s *Server) handlePublicHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
