package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kkkkikiki/crm/internal/model"
)

// CampaignRepository handles campaign data operations
type CampaignRepository struct{}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository() *CampaignRepository {
	return &CampaignRepository{}
}

// CreateCampaign inserts a new campaign and fills in its generated ID
func (r *CampaignRepository) CreateCampaign(db DBExecutor, campaign *model.Campaign) error {
	query := `
		INSERT INTO campaigns (name, segment_id, message, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	campaign.CreatedAt = time.Now()

	err := db.Get(&campaign.ID, query,
		campaign.Name, campaign.SegmentID, campaign.Message, campaign.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// GetCampaign retrieves a campaign by ID
func (r *CampaignRepository) GetCampaign(db DBExecutor, id int64) (*model.Campaign, error) {
	query := `
		SELECT id, name, segment_id, message, created_at
		FROM campaigns
		WHERE id = $1
	`

	var campaign model.Campaign
	err := db.Get(&campaign, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return &campaign, nil
}

// ListCampaigns returns all campaigns, oldest first
func (r *CampaignRepository) ListCampaigns(db DBExecutor) ([]model.Campaign, error) {
	var campaigns []model.Campaign
	err := db.Select(&campaigns, `
		SELECT id, name, segment_id, message, created_at
		FROM campaigns
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}
