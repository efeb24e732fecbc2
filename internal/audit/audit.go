// Package audit re-validates persisted timelines against the current policy.
package audit

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/service"
	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/timeline"
	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/worker"
	"github.com/thisisnajafi/sarvcast-backend-sub015/models"
)

// Source lists episodes and reads their persisted timelines.
type Source interface {
	ListEpisodes(ctx context.Context) ([]models.Episode, error)
	GetTimeline(ctx context.Context, episodeID int64) ([]models.TimelineImage, error)
}

// EpisodeResult is the outcome for one episode.
type EpisodeResult struct {
	Episode models.Episode
	Entries int
	Result  timeline.ValidationResult
	Err     error
}

// Report collects the audit outcome. Slices are ordered by episode id.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Checked    int
	Skipped    int
	Invalid    []EpisodeResult
	Failed     []EpisodeResult
}

// OK reports whether every checked timeline is still valid.
func (r Report) OK() bool { return len(r.Invalid) == 0 && len(r.Failed) == 0 }

// Auditor walks every episode with a timeline and validates it.
type Auditor struct {
	Source    Source
	Validator timeline.Validator
	Workers   int
	Logger    *logrus.Logger
	Now       func() time.Time
}

// Run audits all episodes. Episodes without persisted entries are skipped.
func (a *Auditor) Run(ctx context.Context) (Report, error) {
	now := a.Now
	if now == nil {
		now = time.Now
	}
	logger := a.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	report := Report{StartedAt: now()}
	episodes, err := a.Source.ListEpisodes(ctx)
	if err != nil {
		return report, fmt.Errorf("list episodes: %w", err)
	}

	d := worker.NewDispatcher(a.Workers, len(episodes), logger)
	d.Run(ctx)

	var (
		mu      sync.Mutex
		results = make([]EpisodeResult, 0, len(episodes))
	)
	for _, ep := range episodes {
		job := &episodeJob{
			episode:   ep,
			source:    a.Source,
			validator: a.Validator,
			now:       now,
			record: func(r EpisodeResult) {
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			},
		}
		if err := d.Submit(job); err != nil {
			d.Stop()
			return report, fmt.Errorf("queue audit of episode %d: %w", ep.ID, err)
		}
	}
	d.Stop()

	slices.SortFunc(results, func(x, y EpisodeResult) int { return cmp.Compare(x.Episode.ID, y.Episode.ID) })
	for _, r := range results {
		switch {
		case r.Err != nil:
			report.Failed = append(report.Failed, r)
		case r.Entries == 0:
			report.Skipped++
		default:
			report.Checked++
			if !r.Result.Valid {
				report.Invalid = append(report.Invalid, r)
			}
		}
	}
	report.FinishedAt = now()

	logger.WithFields(logrus.Fields{
		"episodes": len(episodes),
		"checked":  report.Checked,
		"skipped":  report.Skipped,
		"invalid":  len(report.Invalid),
		"failed":   len(report.Failed),
	}).Info("timeline audit finished")
	return report, ctx.Err()
}

type episodeJob struct {
	episode   models.Episode
	source    Source
	validator timeline.Validator
	now       func() time.Time
	record    func(EpisodeResult)
}

func (j *episodeJob) ID() string { return fmt.Sprintf("episode-%d", j.episode.ID) }

func (j *episodeJob) Execute(ctx context.Context) error {
	res := EpisodeResult{Episode: j.episode}
	defer func() { j.record(res) }()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return err
	}
	rows, err := j.source.GetTimeline(ctx, j.episode.ID)
	if err != nil {
		res.Err = err
		return err
	}
	res.Entries = len(rows)
	if len(rows) == 0 {
		return nil
	}
	res.Result = j.validator.Validate(j.episode.Duration, service.FromRows(rows), j.now())
	return nil
}
