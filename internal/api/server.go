// Package api exposes the CRM's HTTP surface: customer and order
// ingestion, segment authoring with audience previews, campaign
// creation, vendor dispatch and the vendor receipt callback.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/crm/internal/repository"
	"github.com/kkkkikiki/crm/internal/service"
	"github.com/kkkkikiki/crm/internal/suggest"
)

// Server holds the handler dependencies
type Server struct {
	db           *sqlx.DB
	customerRepo *repository.CustomerRepository
	orderRepo    *repository.OrderRepository
	segmentRepo  *repository.SegmentRepository
	audience     *service.AudienceService
	campaigns    *service.CampaignService
	vendor       *service.VendorSimulator
	receipts     *service.ReceiptService
	suggester    *suggest.Service
}

// New creates an API server over the given database and services
func New(db *sqlx.DB, vendor *service.VendorSimulator, suggester *suggest.Service) *Server {
	return &Server{
		db:           db,
		customerRepo: repository.NewCustomerRepository(),
		orderRepo:    repository.NewOrderRepository(),
		segmentRepo:  repository.NewSegmentRepository(),
		audience:     service.NewAudienceService(),
		campaigns:    service.NewCampaignService(db),
		vendor:       vendor,
		receipts:     service.NewReceiptService(db),
		suggester:    suggester,
	}
}

// Routes builds the chi router for the /api surface
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/customers", s.handleCreateCustomer)
		r.Get("/customers", s.handleListCustomers)

		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders", s.handleListOrders)

		r.Post("/segments", s.handleCreateSegment)
		r.Get("/segments", s.handleListSegments)
		r.Post("/segments/preview", s.handlePreviewAudience)
		r.Get("/segments/{id}/preview-size", s.handlePreviewSegment)

		r.Post("/campaigns", s.handleCreateCampaign)
		r.Get("/campaigns", s.handleListCampaigns)
		r.Get("/campaigns/{id}/logs", s.handleCampaignLogs)
		r.Get("/campaigns/{id}/stats", s.handleCampaignStats)

		r.Post("/vendor/send/{campaignID}", s.handleSendCampaign)
		r.Post("/vendor/receipt", s.handleVendorReceipt)

		r.Post("/messages/suggest", s.handleSuggestMessages)

		r.Get("/dashboard/stats", s.handleDashboardStats)

		r.Get("/public/health", s.handlePublicHealth)
		r.Get("/public/keepalive", s.handlePublicHealth)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// idParam parses a numeric chi URL parameter
func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
