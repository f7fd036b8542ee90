package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"

	"github.com/kkkkikiki/crm/internal/config"
	"github.com/kkkkikiki/crm/internal/metrics"
	"github.com/kkkkikiki/crm/internal/model"
	"github.com/kkkkikiki/crm/internal/repository"
)

const simulatedFailureReason = "Simulated vendor failure"

// SendSummary reports the outcome of one dispatch-send run over a
// campaign. Total counts every delivery log of the campaign, including
// logs already terminal from a prior run.
type SendSummary struct {
	CampaignID int64 `json:"campaignId"`
	Sent       int   `json:"sent"`
	Failed     int   `json:"failed"`
	Total      int   `json:"total"`
}

// VendorSimulator stands in for an external delivery vendor: each send
// draws a success outcome, persists the terminal status synchronously,
// and then posts an asynchronous delivery receipt back to the service's
// receipt endpoint, best effort.
type VendorSimulator struct {
	postgres     *sqlx.DB
	campaignRepo *repository.CampaignRepository
	deliveryRepo *repository.DeliveryRepository

	successRate float64
	receiptURL  string
	limiter     *rate.Limiter
	client      *http.Client

	// randFloat is swappable so tests can pin outcomes
	randFloat func() float64

	receipts sync.WaitGroup
}

// NewVendorSimulator creates a vendor simulator from config
func NewVendorSimulator(postgres *sqlx.DB, cfg config.VendorConfig, receiptURL string) *VendorSimulator {
	var limiter *rate.Limiter
	if cfg.SendRatePerSec > 0 {
		burst := cfg.SendBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.SendRatePerSec), burst)
	}

	return &VendorSimulator{
		postgres:     postgres,
		campaignRepo: repository.NewCampaignRepository(),
		deliveryRepo: repository.NewDeliveryRepository(),
		successRate:  cfg.SuccessRate,
		receiptURL:   receiptURL,
		limiter:      limiter,
		client:       &http.Client{Timeout: 10 * time.Second},
		randFloat:    rand.Float64,
	}
}

// SendCampaign dispatches every PENDING delivery log of the campaign
// through the simulated vendor and tallies the outcomes. Logs already
// terminal are left untouched, so re-running after a partial failure
// only affects the remainder.
func (s *VendorSimulator) SendCampaign(ctx context.Context, campaignID int64) (SendSummary, error) {
	campaign, err := s.campaignRepo.GetCampaign(s.postgres, campaignID)
	if err != nil {
		return SendSummary{}, err
	}

	logs, err := s.deliveryRepo.ListByCampaign(s.postgres, campaignID)
	if err != nil {
		return SendSummary{}, err
	}

	summary := SendSummary{CampaignID: campaignID, Total: len(logs)}
	for _, entry := range logs {
		if entry.Status != model.DeliveryPending {
			continue
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return summary, fmt.Errorf("send throttle interrupted: %w", err)
			}
		}

		status, err := s.send(campaign, entry)
		if err != nil {
			// Lost a race against a concurrent dispatch; the log is
			// already terminal and counted in Total.
			continue
		}
		if status == model.DeliverySent {
			summary.Sent++
		} else {
			summary.Failed++
		}
	}

	return summary, nil
}

// send pushes one delivery log through the simulated vendor. The
// terminal status is written with a PENDING-only compare-and-set before
// the asynchronous receipt is emitted, so a lost receipt never leaves
// the log in PENDING.
func (s *VendorSimulator) send(campaign *model.Campaign, entry model.DeliveryLogDetail) (model.DeliveryStatus, error) {
	start := time.Now()

	vendorMessageID := uuid.NewString()
	success := s.randFloat() < s.successRate

	status := model.DeliverySent
	var failureReason *string
	if !success {
		status = model.DeliveryFailed
		reason := simulatedFailureReason
		failureReason = &reason
	}

	// The vendor "API call": personalize and pretend to hand the
	// message over the wire.
	body := PersonalizeMessage(campaign.Message, entry.CustomerName)
	log.Printf("vendor: dispatching delivery %d to %s: %q", entry.ID, entry.CustomerEmail, body)

	if err := s.deliveryRepo.MarkResult(s.postgres, entry.ID, status, vendorMessageID, failureReason); err != nil {
		metrics.RecordVendorSendDuration("error", time.Since(start).Seconds())
		return "", err
	}
	metrics.RecordVendorSendDuration(strings.ToLower(string(status)), time.Since(start).Seconds())

	// Out-of-band delivery confirmation. Fire-and-forget: failures are
	// logged and swallowed, and the log above is already terminal.
	s.receipts.Add(1)
	go func() {
		defer s.receipts.Done()
		s.emitReceipt(vendorMessageID, status)
	}()

	return status, nil
}

func (s *VendorSimulator) emitReceipt(vendorMessageID string, status model.DeliveryStatus) {
	payload, err := json.Marshal(map[string]string{
		"vendorMessageId": vendorMessageID,
		"status":          string(status),
	})
	if err != nil {
		log.Printf("vendor: failed to encode receipt for %s: %v", vendorMessageID, err)
		return
	}

	resp, err := s.client.Post(s.receiptURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("vendor: receipt delivery failed for %s: %v", vendorMessageID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("vendor: receipt for %s rejected with status %d", vendorMessageID, resp.StatusCode)
	}
}

// WaitForReceipts blocks until all in-flight receipt emissions finish.
// Used for graceful shutdown and tests.
func (s *VendorSimulator) WaitForReceipts() {
	s.receipts.Wait()
}

// PersonalizeMessage fills the {name} placeholder of a campaign message
// template with the customer's name
func PersonalizeMessage(template, name string) string {
	return strings.ReplaceAll(template, "{name}", name)
}
