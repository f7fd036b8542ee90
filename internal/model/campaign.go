package model

import (
	"time"
)

// Segment represents a named audience definition. RuleJSON holds the
// serialized AND/OR rule tree evaluated by the rules package; an empty
// value matches every customer.
type Segment struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	RuleJSON  string    `db:"rule_json" json:"ruleJson"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Campaign represents a messaging campaign launched against a segment.
// The audience is frozen into delivery logs at creation time; later
// segment edits do not affect an existing campaign.
type Campaign struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	SegmentID int64     `db:"segment_id" json:"segmentId"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
