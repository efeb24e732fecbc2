package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/service"
	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/timeline"
	"github.com/thisisnajafi/sarvcast-backend-sub015/models"
	"github.com/thisisnajafi/sarvcast-backend-sub015/utils"
)

// TimelineServiceInterface defines the operations handlers expect from the
// timeline service. *service.TimelineService satisfies it.
type TimelineServiceInterface interface {
	Validate(ctx context.Context, episodeID int64, durationSeconds int, entries []timeline.Entry) timeline.ValidationResult
	Optimize(ctx context.Context, entries []timeline.Entry) timeline.OptimizedTimeline
	Save(ctx context.Context, episodeID int64, entries []timeline.Entry, keyFrames ...int) (service.SaveResult, error)
	TimelineRows(ctx context.Context, episodeID int64) ([]models.TimelineImage, error)
	Clear(ctx context.Context, episodeID int64) error
}

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Service  TimelineServiceInterface
	Logger   *logrus.Logger
	validate *validator.Validate
}

// NewApplicationHandler creates a new ApplicationHandler with the given dependencies.
func NewApplicationHandler(svc TimelineServiceInterface, logger *logrus.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		Service:  svc,
		Logger:   logger,
		validate: utils.NewValidator(),
	}
}
