// Package store persists episode image timelines. Every back-end replaces an
// episode's timeline as one unit: readers see either the old set or the new
// set, never a mix.
package store

import (
	"context"
	"errors"

	"github.com/thisisnajafi/sarvcast-backend-sub015/models"
)

// ErrEpisodeNotFound is returned when an episode id has no row.
var ErrEpisodeNotFound = errors.New("episode not found")

// Store is the persistence collaborator of the timeline service.
type Store interface {
	GetEpisode(ctx context.Context, episodeID int64) (models.Episode, error)
	ListEpisodes(ctx context.Context) ([]models.Episode, error)
	GetTimeline(ctx context.Context, episodeID int64) ([]models.TimelineImage, error)
	// ReplaceTimeline swaps the episode's rows for rows. An empty rows slice
	// clears the timeline.
	ReplaceTimeline(ctx context.Context, episodeID int64, rows []models.TimelineImage) error
	Close() error
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
