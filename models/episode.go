package models

import "time"

// Episode is the subset of the episodes table the timeline service reads.
// Duration is the canonical audio length in seconds.
type Episode struct {
	ID               int64     `json:"id"`
	StoryID          *int64    `json:"story_id,omitempty"` // Nullable foreign key
	Title            string    `json:"title"`
	Duration         int       `json:"duration"`
	UseImageTimeline bool      `json:"use_image_timeline"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
