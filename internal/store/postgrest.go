package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	postgrest "github.com/supabase-community/postgrest-go"

	"github.com/thisisnajafi/sarvcast-backend-sub015/models"
)

const (
	episodesTable      = "episodes"
	timelineTable      = "image_timelines"
	replaceTimelineRPC = "replace_episode_timeline"

	// pgNoDataFound is raised by replace_episode_timeline for unknown episodes.
	pgNoDataFound = "P0002"
)

// PostgREST stores timelines through a Supabase/PostgREST endpoint. The
// replace goes through the replace_episode_timeline Postgres function so the
// delete and the inserts share one transaction.
type PostgREST struct {
	client *postgrest.Client

	// ClientError on the shared client is sticky and written by Rpc, so RPC
	// calls run exclusively and reset it afterwards.
	mu sync.RWMutex
}

// NewPostgREST wraps an initialized client.
func NewPostgREST(client *postgrest.Client) (*PostgREST, error) {
	if client == nil {
		return nil, fmt.Errorf("postgrest client is nil")
	}
	if client.ClientError != nil {
		return nil, fmt.Errorf("postgrest client: %w", client.ClientError)
	}
	return &PostgREST{client: client}, nil
}

func (p *PostgREST) GetEpisode(ctx context.Context, episodeID int64) (models.Episode, error) {
	if err := ensureContext(ctx).Err(); err != nil {
		return models.Episode{}, err
	}
	p.mu.RLock()
	body, _, err := p.client.From(episodesTable).
		Select("*", "", false).
		Eq("id", strconv.FormatInt(episodeID, 10)).
		Execute()
	p.mu.RUnlock()
	if err != nil {
		return models.Episode{}, fmt.Errorf("fetch episode %d: %w", episodeID, err)
	}

	var episodes []models.Episode
	if err := json.Unmarshal(body, &episodes); err != nil {
		return models.Episode{}, fmt.Errorf("decode episode %d: %w", episodeID, err)
	}
	if len(episodes) == 0 {
		return models.Episode{}, ErrEpisodeNotFound
	}
	return episodes[0], nil
}

func (p *PostgREST) ListEpisodes(ctx context.Context) ([]models.Episode, error) {
	if err := ensureContext(ctx).Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	body, _, err := p.client.From(episodesTable).
		Select("*", "", false).
		Order("id", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	p.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}

	var episodes []models.Episode
	if err := json.Unmarshal(body, &episodes); err != nil {
		return nil, fmt.Errorf("decode episodes: %w", err)
	}
	if episodes == nil {
		episodes = []models.Episode{}
	}
	return episodes, nil
}

func (p *PostgREST) GetTimeline(ctx context.Context, episodeID int64) ([]models.TimelineImage, error) {
	if _, err := p.GetEpisode(ctx, episodeID); err != nil {
		return nil, err
	}
	p.mu.RLock()
	body, _, err := p.client.From(timelineTable).
		Select("*", "", false).
		Eq("episode_id", strconv.FormatInt(episodeID, 10)).
		Order("image_order", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	p.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("fetch timeline for episode %d: %w", episodeID, err)
	}

	var rows []models.TimelineImage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode timeline for episode %d: %w", episodeID, err)
	}
	if rows == nil {
		rows = []models.TimelineImage{}
	}
	return rows, nil
}

func (p *PostgREST) ReplaceTimeline(ctx context.Context, episodeID int64, rows []models.TimelineImage) error {
	if err := ensureContext(ctx).Err(); err != nil {
		return err
	}
	if rows == nil {
		rows = []models.TimelineImage{}
	}
	params := map[string]any{
		"p_episode_id": episodeID,
		"p_rows":       rows,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	body := p.client.Rpc(replaceTimelineRPC, "", params)
	if err := p.client.ClientError; err != nil {
		p.client.ClientError = nil
		return fmt.Errorf("replace timeline for episode %d: %w", episodeID, err)
	}
	if err := rpcError(body); err != nil {
		return fmt.Errorf("replace timeline for episode %d: %w", episodeID, err)
	}
	return nil
}

func (p *PostgREST) Close() error { return nil }

// rpcError extracts a PostgREST error document from an RPC response body.
// Rpc does not look at the status code, so the body is all there is.
func rpcError(body string) error {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "{") {
		return nil
	}
	var execErr postgrest.ExecuteError
	if err := json.Unmarshal([]byte(body), &execErr); err != nil {
		return nil
	}
	if execErr.Code == "" && execErr.Message == "" {
		return nil
	}
	if execErr.Code == pgNoDataFound {
		return ErrEpisodeNotFound
	}
	return fmt.Errorf("(%s) %s", execErr.Code, execErr.Message)
}
