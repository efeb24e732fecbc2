package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/thisisnajafi/sarvcast-backend-sub015/models"
)

// Memory keeps episodes and timelines in process memory. It backs tests and
// the "memory" driver for local development.
type Memory struct {
	mu        sync.RWMutex
	episodes  map[int64]models.Episode
	timelines map[int64][]models.TimelineImage
	now       func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		episodes:  make(map[int64]models.Episode),
		timelines: make(map[int64][]models.TimelineImage),
		now:       time.Now,
	}
}

// PutEpisode inserts or replaces an episode row.
func (m *Memory) PutEpisode(ep models.Episode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes[ep.ID] = ep
}

func (m *Memory) GetEpisode(_ context.Context, episodeID int64) (models.Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ep, ok := m.episodes[episodeID]
	if !ok {
		return models.Episode{}, ErrEpisodeNotFound
	}
	return ep, nil
}

func (m *Memory) ListEpisodes(context.Context) ([]models.Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Episode, 0, len(m.episodes))
	for _, ep := range m.episodes {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetTimeline(_ context.Context, episodeID int64) ([]models.TimelineImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.episodes[episodeID]; !ok {
		return nil, ErrEpisodeNotFound
	}
	rows := m.timelines[episodeID]
	return append([]models.TimelineImage{}, rows...), nil
}

func (m *Memory) ReplaceTimeline(_ context.Context, episodeID int64, rows []models.TimelineImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ep, ok := m.episodes[episodeID]
	if !ok {
		return ErrEpisodeNotFound
	}
	if len(rows) == 0 {
		delete(m.timelines, episodeID)
	} else {
		m.timelines[episodeID] = append([]models.TimelineImage(nil), rows...)
	}
	ep.UseImageTimeline = len(rows) > 0
	ep.UpdatedAt = m.now()
	m.episodes[episodeID] = ep
	return nil
}

func (m *Memory) Close() error { return nil }
