package models

import (
	"time"

	"github.com/google/uuid"
)

// TimelineImage is one persisted row of an episode's image timeline.
type TimelineImage struct {
	ID         uuid.UUID `json:"id"`
	EpisodeID  int64     `json:"episode_id"`
	StartTime  int       `json:"start_time"`
	EndTime    int       `json:"end_time"`
	ImageURL   string    `json:"image_url"`
	ImageOrder int       `json:"image_order"`
	IsKeyFrame bool      `json:"is_key_frame"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
