package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/crm/internal/model"
	"github.com/kkkkikiki/crm/internal/repository"
)

// CampaignStats summarizes delivery outcomes for one campaign
type CampaignStats struct {
	Sent   int64 `json:"sent"`
	Failed int64 `json:"failed"`
	Total  int64 `json:"total"`
}

// CampaignService orchestrates campaign creation: it freezes the
// segment's audience at the instant of the call and creates one PENDING
// delivery log per matched customer, all inside a single transaction.
type CampaignService struct {
	postgres     *sqlx.DB
	campaignRepo *repository.CampaignRepository
	segmentRepo  *repository.SegmentRepository
	deliveryRepo *repository.DeliveryRepository
	audience     *AudienceService
}

// NewCampaignService creates a new campaign service
func NewCampaignService(postgres *sqlx.DB) *CampaignService {
	return &CampaignService{
		postgres:     postgres,
		campaignRepo: repository.NewCampaignRepository(),
		segmentRepo:  repository.NewSegmentRepository(),
		deliveryRepo: repository.NewDeliveryRepository(),
		audience:     NewAudienceService(),
	}
}

// CreateCampaign creates a campaign against a segment and queues one
// PENDING delivery log per matched customer. No send is triggered here;
// dispatching is a separate, explicitly invoked step.
func (s *CampaignService) CreateCampaign(ctx context.Context, segmentID int64, name, message string) (*model.Campaign, error) {
	tx, err := s.postgres.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	segment, err := s.segmentRepo.GetSegment(tx, segmentID)
	if err != nil {
		return nil, err
	}

	campaign := &model.Campaign{
		Name:      name,
		SegmentID: segment.ID,
		Message:   message,
	}
	if err := s.campaignRepo.CreateCampaign(tx, campaign); err != nil {
		return nil, err
	}

	// Audience freeze point: matched customers become the campaign's
	// recipient set, regardless of later customer or segment changes.
	matched, err := s.audience.ResolveAudience(tx, segment.RuleJSON)
	if err != nil {
		return nil, err
	}

	customerIDs := make([]int64, len(matched))
	for i, c := range matched {
		customerIDs[i] = c.ID
	}
	if err := s.deliveryRepo.CreatePendingLogs(tx, campaign.ID, customerIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return campaign, nil
}

// ListCampaigns returns all campaigns
func (s *CampaignService) ListCampaigns() ([]model.Campaign, error) {
	return s.campaignRepo.ListCampaigns(s.postgres)
}

// CampaignLogs returns a campaign's delivery logs with customer details
func (s *CampaignService) CampaignLogs(campaignID int64) ([]model.DeliveryLogDetail, error) {
	if _, err := s.campaignRepo.GetCampaign(s.postgres, campaignID); err != nil {
		return nil, err
	}
	return s.deliveryRepo.ListByCampaign(s.postgres, campaignID)
}

// Stats returns sent/failed/total delivery counts for one campaign.
// Total includes logs still PENDING.
func (s *CampaignService) Stats(campaignID int64) (CampaignStats, error) {
	if _, err := s.campaignRepo.GetCampaign(s.postgres, campaignID); err != nil {
		return CampaignStats{}, err
	}

	counts, err := s.deliveryRepo.CountByStatus(s.postgres, campaignID)
	if err != nil {
		return CampaignStats{}, err
	}

	stats := CampaignStats{
		Sent:   counts[model.DeliverySent],
		Failed: counts[model.DeliveryFailed],
	}
	stats.Total = stats.Sent + stats.Failed + counts[model.DeliveryPending]
	return stats, nil
}
