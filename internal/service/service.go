// Package service orchestrates the timeline core against the episode store.
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/store"
	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/timeline"
	"github.com/thisisnajafi/sarvcast-backend-sub015/models"
)

// Repository is the subset of store.Store the service needs.
type Repository interface {
	GetEpisode(ctx context.Context, episodeID int64) (models.Episode, error)
	GetTimeline(ctx context.Context, episodeID int64) ([]models.TimelineImage, error)
	ReplaceTimeline(ctx context.Context, episodeID int64, rows []models.TimelineImage) error
}

// SaveResult describes a successful Save.
type SaveResult struct {
	EpisodeID int64
	Saved     int
	Result    timeline.ValidationResult
}

// TimelineService validates, optimizes and persists episode timelines.
type TimelineService struct {
	validator timeline.Validator
	repo      Repository
	locks     *store.EpisodeLocker
	now       func() time.Time
}

// New builds a service using validator for every check.
func New(validator timeline.Validator, repo Repository) *TimelineService {
	return &TimelineService{
		validator: validator,
		repo:      repo,
		locks:     store.NewEpisodeLocker(),
		now:       time.Now,
	}
}

// Policy returns the image policy the service validates against.
func (s *TimelineService) Policy() timeline.ImagePolicy { return s.validator.Policy }

// Validate checks entries against durationSeconds without touching the store.
// episodeID only labels the call.
func (s *TimelineService) Validate(_ context.Context, _ int64, durationSeconds int, entries []timeline.Entry) timeline.ValidationResult {
	return s.validator.Validate(durationSeconds, entries, s.now())
}

// Optimize merges redundant entries. The result is never persisted here.
func (s *TimelineService) Optimize(_ context.Context, entries []timeline.Entry) timeline.OptimizedTimeline {
	return timeline.Optimize(entries)
}

// Save validates entries against the episode's stored duration and replaces
// the persisted timeline with them. keyFrames lists submitted positions to
// flag as key frames.
func (s *TimelineService) Save(ctx context.Context, episodeID int64, entries []timeline.Entry, keyFrames ...int) (SaveResult, error) {
	unlock := s.locks.Lock(episodeID)
	defer unlock()

	ep, err := s.repo.GetEpisode(ctx, episodeID)
	if err != nil {
		if errors.Is(err, store.ErrEpisodeNotFound) {
			return SaveResult{}, err
		}
		return SaveResult{}, &PersistenceError{EpisodeID: episodeID, Op: "load", Err: err}
	}

	res := s.validator.Validate(ep.Duration, entries, s.now())
	if !res.Valid {
		return SaveResult{}, &ValidationFailedError{EpisodeID: episodeID, Result: res}
	}

	rows := toRows(episodeID, entries, keyFrames, s.now().UTC())
	if err := s.repo.ReplaceTimeline(ctx, episodeID, rows); err != nil {
		if errors.Is(err, store.ErrEpisodeNotFound) {
			return SaveResult{}, err
		}
		return SaveResult{}, &PersistenceError{EpisodeID: episodeID, Op: "replace", Err: err}
	}
	return SaveResult{EpisodeID: episodeID, Saved: len(rows), Result: res}, nil
}

// Timeline returns the persisted entries of an episode in playback order.
func (s *TimelineService) Timeline(ctx context.Context, episodeID int64) ([]timeline.Entry, error) {
	rows, err := s.TimelineRows(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	return FromRows(rows), nil
}

// TimelineRows returns the persisted rows, key frame flags included.
func (s *TimelineService) TimelineRows(ctx context.Context, episodeID int64) ([]models.TimelineImage, error) {
	rows, err := s.repo.GetTimeline(ctx, episodeID)
	if err != nil {
		if errors.Is(err, store.ErrEpisodeNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load timeline for episode %d: %w", episodeID, err)
	}
	return rows, nil
}

// Clear removes an episode's timeline.
func (s *TimelineService) Clear(ctx context.Context, episodeID int64) error {
	unlock := s.locks.Lock(episodeID)
	defer unlock()

	if err := s.repo.ReplaceTimeline(ctx, episodeID, nil); err != nil {
		if errors.Is(err, store.ErrEpisodeNotFound) {
			return err
		}
		return &PersistenceError{EpisodeID: episodeID, Op: "clear", Err: err}
	}
	return nil
}

// toRows orders entries by start time and numbers them from zero. Every row
// gets a fresh id.
func toRows(episodeID int64, entries []timeline.Entry, keyFrames []int, now time.Time) []models.TimelineImage {
	type indexed struct {
		pos   int
		entry timeline.Entry
	}
	sorted := make([]indexed, len(entries))
	for i, e := range entries {
		sorted[i] = indexed{pos: i, entry: e}
	}
	slices.SortStableFunc(sorted, func(a, b indexed) int {
		return cmp.Compare(a.entry.Range.Start, b.entry.Range.Start)
	})

	rows := make([]models.TimelineImage, len(sorted))
	for i, ie := range sorted {
		rows[i] = models.TimelineImage{
			ID:         uuid.New(),
			EpisodeID:  episodeID,
			StartTime:  ie.entry.Range.Start,
			EndTime:    ie.entry.Range.End,
			ImageURL:   ie.entry.ImageURL,
			ImageOrder: i,
			IsKeyFrame: slices.Contains(keyFrames, ie.pos),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return rows
}

// FromRows converts persisted rows to core entries, keeping image_order.
func FromRows(rows []models.TimelineImage) []timeline.Entry {
	out := make([]timeline.Entry, len(rows))
	for i, r := range rows {
		out[i] = timeline.NewEntry(r.ImageOrder, r.StartTime, r.EndTime, r.ImageURL)
	}
	return out
}
