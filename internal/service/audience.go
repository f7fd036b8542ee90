package service

import (
	"fmt"
	"time"

	"github.com/kkkkikiki/crm/internal/metrics"
	"github.com/kkkkikiki/crm/internal/model"
	"github.com/kkkkikiki/crm/internal/repository"
	"github.com/kkkkikiki/crm/internal/rules"
)

// AudienceService resolves which customers match a rule tree. Previews
// scan the live customer set, so repeated previews of the same segment
// can drift as customers change; only campaign creation freezes an
// audience.
type AudienceService struct {
	customerRepo *repository.CustomerRepository
	segmentRepo  *repository.SegmentRepository
}

// NewAudienceService creates a new audience service
func NewAudienceService() *AudienceService {
	return &AudienceService{
		customerRepo: repository.NewCustomerRepository(),
		segmentRepo:  repository.NewSegmentRepository(),
	}
}

// PreviewAudience counts the customers matching ruleJSON right now
func (s *AudienceService) PreviewAudience(db repository.DBExecutor, ruleJSON string) (int, error) {
	start := time.Now()

	matched, err := s.ResolveAudience(db, ruleJSON)
	if err != nil {
		return 0, err
	}

	metrics.AudiencePreviewDuration.Observe(time.Since(start).Seconds())
	return len(matched), nil
}

// PreviewSegment counts the customers matching a stored segment's rule
func (s *AudienceService) PreviewSegment(db repository.DBExecutor, segmentID int64) (int, error) {
	segment, err := s.segmentRepo.GetSegment(db, segmentID)
	if err != nil {
		return 0, err
	}
	return s.PreviewAudience(db, segment.RuleJSON)
}

// ResolveAudience returns the full list of matching customers. The scan
// covers the entire customer set; this is an operator-triggered action,
// not a hot path.
func (s *AudienceService) ResolveAudience(db repository.DBExecutor, ruleJSON string) ([]model.Customer, error) {
	customers, err := s.customerRepo.ListCustomers(db, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	now := time.Now()
	matched := make([]model.Customer, 0, len(customers))
	for _, c := range customers {
		if rules.Evaluate(c, ruleJSON, now) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}
