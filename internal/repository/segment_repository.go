package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kkkkikiki/crm/internal/model"
)

// SegmentRepository handles segment data operations
type SegmentRepository struct{}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository() *SegmentRepository {
	return &SegmentRepository{}
}

// CreateSegment inserts a new segment and fills in its generated ID
func (r *SegmentRepository) CreateSegment(db DBExecutor, segment *model.Segment) error {
	query := `
		INSERT INTO segments (name, rule_json, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	segment.CreatedAt = time.Now()

	err := db.Get(&segment.ID, query, segment.Name, segment.RuleJSON, segment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create segment: %w", err)
	}

	return nil
}

// GetSegment retrieves a segment by ID
func (r *SegmentRepository) GetSegment(db DBExecutor, id int64) (*model.Segment, error) {
	query := `
		SELECT id, name, rule_json, created_at
		FROM segments
		WHERE id = $1
	`

	var segment model.Segment
	err := db.Get(&segment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSegmentNotFound
		}
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}

	return &segment, nil
}

// ListSegments returns all segments, newest first
func (r *SegmentRepository) ListSegments(db DBExecutor) ([]model.Segment, error) {
	var segments []model.Segment
	err := db.Select(&segments, `
		SELECT id, name, rule_json, created_at
		FROM segments
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}
