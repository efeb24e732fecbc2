package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/service"
	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/store"
	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/timeline"
	"github.com/thisisnajafi/sarvcast-backend-sub015/middleware"
	"github.com/thisisnajafi/sarvcast-backend-sub015/models"
	"github.com/thisisnajafi/sarvcast-backend-sub015/utils"
)

// TimelineEntryPayload is one submitted timeline entry. Pointers let the
// validator tell a missing field from a zero.
type TimelineEntryPayload struct {
	StartTime  *int    `json:"start_time" validate:"required"`
	EndTime    *int    `json:"end_time" validate:"required"`
	ImageURL   *string `json:"image_url" validate:"required"`
	IsKeyFrame bool    `json:"is_key_frame,omitempty"`
}

// ValidateTimelineRequest is the body of POST /timelines/validate.
type ValidateTimelineRequest struct {
	EpisodeID       int64                  `json:"episode_id,omitempty"`
	EpisodeDuration *int                   `json:"episode_duration" validate:"required"`
	ImageTimeline   []TimelineEntryPayload `json:"image_timeline" validate:"required,dive"`
}

// TimelineRequest is the body of POST /timelines/optimize and PUT /episodes/:episodeId/timeline.
type TimelineRequest struct {
	ImageTimeline []TimelineEntryPayload `json:"image_timeline" validate:"required,dive"`
}

// TimelineEntryResponse renders a persisted or optimized entry.
type TimelineEntryResponse struct {
	StartTime  int    `json:"start_time"`
	EndTime    int    `json:"end_time"`
	ImageURL   string `json:"image_url"`
	ImageOrder int    `json:"image_order"`
	IsKeyFrame bool   `json:"is_key_frame,omitempty"`
}

// OptimizeResponseData is the data of a successful optimize call.
type OptimizeResponseData struct {
	OriginalCount     int                     `json:"original_count"`
	OptimizedCount    int                     `json:"optimized_count"`
	OptimizedTimeline []TimelineEntryResponse `json:"optimized_timeline"`
}

// SaveResponseData is the data of a successful save.
type SaveResponseData struct {
	EpisodeID  int64 `json:"episode_id"`
	SavedCount int   `json:"saved_count"`
}

// EpisodeTimelineData is the data of GET /episodes/:episodeId/timeline.
type EpisodeTimelineData struct {
	EpisodeID     int64                   `json:"episode_id"`
	ImageTimeline []TimelineEntryResponse `json:"image_timeline"`
}

// ValidateTimeline godoc
// @Summary Validate an image timeline
// @Description Checks a candidate timeline against an episode duration and reports every violation.
// @Tags timelines
// @Accept  json
// @Produce  json
// @Param   timeline body ValidateTimelineRequest true "Timeline to validate"
// @Success 200 {object} utils.Response "Timeline is valid"
// @Failure 400 {object} utils.Response "Malformed request"
// @Failure 422 {object} utils.Response "Violations keyed by field path"
// @Router /timelines/validate [post]
func (h *ApplicationHandler) ValidateTimeline(c *fiber.Ctx) error {
	payload := new(ValidateTimelineRequest)
	if !h.parse(c, payload) {
		return nil
	}

	entries, _ := toEntries(payload.ImageTimeline)
	result := h.Service.Validate(c.UserContext(), payload.EpisodeID, *payload.EpisodeDuration, entries)
	if !result.Valid {
		h.log(c).WithFields(logrus.Fields{
			"episode_id": payload.EpisodeID,
			"violations": len(result.Violations),
		}).Info("timeline validation failed")
		return utils.RespondWithError(c, fiber.StatusUnprocessableEntity, violationMessage(result), result.ByField())
	}
	return c.Status(fiber.StatusOK).JSON(utils.Response{Success: true})
}

// OptimizeTimeline godoc
// @Summary Optimize an image timeline
// @Description Merges adjacent entries that show the same image. Nothing is saved.
// @Tags timelines
// @Accept  json
// @Produce  json
// @Param   timeline body TimelineRequest true "Timeline to optimize"
// @Success 200 {object} utils.Response{data=OptimizeResponseData} "Optimized timeline"
// @Failure 400 {object} utils.Response "Malformed request"
// @Router /timelines/optimize [post]
func (h *ApplicationHandler) OptimizeTimeline(c *fiber.Ctx) error {
	payload := new(TimelineRequest)
	if !h.parse(c, payload) {
		return nil
	}

	entries, _ := toEntries(payload.ImageTimeline)
	out := h.Service.Optimize(c.UserContext(), entries)
	h.log(c).WithFields(logrus.Fields{
		"original_count":  out.OriginalCount,
		"optimized_count": out.OptimizedCount,
	}).Debug("timeline optimized")

	return utils.RespondWithJSON(c, fiber.StatusOK, OptimizeResponseData{
		OriginalCount:     out.OriginalCount,
		OptimizedCount:    out.OptimizedCount,
		OptimizedTimeline: entryResponses(out.Entries),
	})
}

// SaveEpisodeTimeline godoc
// @Summary Replace an episode's image timeline
// @Description Validates against the stored episode duration and replaces the persisted timeline atomically.
// @Tags episodes
// @Accept  json
// @Produce  json
// @Param   episodeId path int true "Episode ID"
// @Param   timeline body TimelineRequest true "New timeline"
// @Success 200 {object} utils.Response{data=SaveResponseData} "Timeline saved"
// @Failure 400 {object} utils.Response "Malformed request"
// @Failure 404 {object} utils.Response "Episode not found"
// @Failure 422 {object} utils.Response "Violations keyed by field path"
// @Failure 500 {object} utils.Response "Persistence failed"
// @Router /episodes/{episodeId}/timeline [put]
func (h *ApplicationHandler) SaveEpisodeTimeline(c *fiber.Ctx) error {
	episodeID, ok := h.episodeID(c)
	if !ok {
		return nil
	}
	payload := new(TimelineRequest)
	if !h.parse(c, payload) {
		return nil
	}

	entries, keyFrames := toEntries(payload.ImageTimeline)
	res, err := h.Service.Save(c.UserContext(), episodeID, entries, keyFrames...)
	if err != nil {
		return h.respondServiceError(c, episodeID, err)
	}

	h.log(c).WithFields(logrus.Fields{
		"episode_id":  episodeID,
		"saved_count": res.Saved,
	}).Info("episode timeline saved")
	return utils.RespondWithJSON(c, fiber.StatusOK, SaveResponseData{EpisodeID: episodeID, SavedCount: res.Saved})
}

// GetEpisodeTimeline godoc
// @Summary Get an episode's image timeline
// @Tags episodes
// @Produce  json
// @Param   episodeId path int true "Episode ID"
// @Success 200 {object} utils.Response{data=EpisodeTimelineData} "Persisted timeline"
// @Failure 404 {object} utils.Response "Episode not found"
// @Failure 500 {object} utils.Response "Store read failed"
// @Router /episodes/{episodeId}/timeline [get]
func (h *ApplicationHandler) GetEpisodeTimeline(c *fiber.Ctx) error {
	episodeID, ok := h.episodeID(c)
	if !ok {
		return nil
	}
	rows, err := h.Service.TimelineRows(c.UserContext(), episodeID)
	if err != nil {
		return h.respondServiceError(c, episodeID, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, EpisodeTimelineData{
		EpisodeID:     episodeID,
		ImageTimeline: rowResponses(rows),
	})
}

// DeleteEpisodeTimeline godoc
// @Summary Remove an episode's image timeline
// @Tags episodes
// @Param   episodeId path int true "Episode ID"
// @Success 204 "Timeline removed"
// @Failure 404 {object} utils.Response "Episode not found"
// @Failure 500 {object} utils.Response "Persistence failed"
// @Router /episodes/{episodeId}/timeline [delete]
func (h *ApplicationHandler) DeleteEpisodeTimeline(c *fiber.Ctx) error {
	episodeID, ok := h.episodeID(c)
	if !ok {
		return nil
	}
	if err := h.Service.Clear(c.UserContext(), episodeID); err != nil {
		return h.respondServiceError(c, episodeID, err)
	}
	h.log(c).WithField("episode_id", episodeID).Info("episode timeline cleared")
	return c.SendStatus(fiber.StatusNoContent)
}

// parse decodes and structurally validates the body. On false the 400
// response has been written.
func (h *ApplicationHandler) parse(c *fiber.Ctx, payload interface{}) bool {
	if err := c.BodyParser(payload); err != nil {
		h.log(c).WithError(err).Warn("cannot parse timeline payload")
		_ = utils.RespondWithError(c, fiber.StatusBadRequest, "bad input", map[string][]string{"body": {err.Error()}})
		return false
	}
	if err := h.validate.Struct(payload); err != nil {
		_ = utils.RespondWithError(c, fiber.StatusBadRequest, "bad input", utils.FormatValidationErrors(err))
		return false
	}
	return true
}

func (h *ApplicationHandler) episodeID(c *fiber.Ctx) (int64, bool) {
	raw := c.Params("episodeId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		_ = utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid episode ID format", nil)
		return 0, false
	}
	return id, true
}

func (h *ApplicationHandler) respondServiceError(c *fiber.Ctx, episodeID int64, err error) error {
	var (
		vErr *service.ValidationFailedError
		pErr *service.PersistenceError
	)
	switch {
	case errors.Is(err, store.ErrEpisodeNotFound):
		return utils.RespondWithError(c, fiber.StatusNotFound, "Episode not found", nil)
	case errors.As(err, &vErr):
		h.log(c).WithFields(logrus.Fields{
			"episode_id": episodeID,
			"violations": len(vErr.Result.Violations),
		}).Info("timeline rejected")
		return utils.RespondWithError(c, fiber.StatusUnprocessableEntity, violationMessage(vErr.Result), vErr.Result.ByField())
	case errors.As(err, &pErr):
		h.log(c).WithFields(logrus.Fields{
			"episode_id": episodeID,
			"op":         pErr.Op,
			"error":      pErr.Err.Error(),
		}).Error("timeline persistence failed")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "persistence failed", nil)
	default:
		h.log(c).WithFields(logrus.Fields{
			"episode_id": episodeID,
			"error":      err.Error(),
		}).Error("timeline request failed")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to load timeline", nil)
	}
}

func (h *ApplicationHandler) log(c *fiber.Ctx) *logrus.Entry {
	return h.Logger.WithField("request_id", middleware.RequestID(c))
}

// violationMessage picks the first violation as the summary line.
func violationMessage(r timeline.ValidationResult) string {
	if len(r.Violations) == 0 {
		return "validation failed"
	}
	if len(r.Violations) == 1 {
		return r.Violations[0].Message
	}
	return r.Violations[0].Message + " (and " + strconv.Itoa(len(r.Violations)-1) + " more)"
}

// toEntries converts payloads in submitted order and collects key frame positions.
func toEntries(payload []TimelineEntryPayload) ([]timeline.Entry, []int) {
	entries := make([]timeline.Entry, len(payload))
	var keyFrames []int
	for i, p := range payload {
		entries[i] = timeline.NewEntry(i, *p.StartTime, *p.EndTime, *p.ImageURL)
		if p.IsKeyFrame {
			keyFrames = append(keyFrames, i)
		}
	}
	return entries, keyFrames
}

func entryResponses(entries []timeline.Entry) []TimelineEntryResponse {
	out := make([]TimelineEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = TimelineEntryResponse{
			StartTime:  e.Range.Start,
			EndTime:    e.Range.End,
			ImageURL:   e.ImageURL,
			ImageOrder: e.Order,
		}
	}
	return out
}

func rowResponses(rows []models.TimelineImage) []TimelineEntryResponse {
	out := make([]TimelineEntryResponse, len(rows))
	for i, r := range rows {
		out[i] = TimelineEntryResponse{
			StartTime:  r.StartTime,
			EndTime:    r.EndTime,
			ImageURL:   r.ImageURL,
			ImageOrder: r.ImageOrder,
			IsKeyFrame: r.IsKeyFrame,
		}
	}
	return out
}
