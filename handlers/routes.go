package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/thisisnajafi/sarvcast-backend-sub015/middleware"
	"github.com/thisisnajafi/sarvcast-backend-sub015/utils"
)

// NewApp builds the fiber application with middleware and every route.
// adminToken guards the mutating episode routes when non-empty.
func NewApp(h *ApplicationHandler, adminToken string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "timeline-api",
		ErrorHandler: ErrorHandler(h.Logger),
	})

	app.Use(middleware.RequestLogger(h.Logger))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Timeline API is healthy",
		})
	})

	apiV1 := app.Group("/api/v1")
	apiV1.Post("/timelines/validate", h.ValidateTimeline)
	apiV1.Post("/timelines/optimize", h.OptimizeTimeline)

	guard := middleware.AdminToken(adminToken)
	episodeTimeline := apiV1.Group("/episodes/:episodeId/timeline")
	episodeTimeline.Get("", h.GetEpisodeTimeline)
	episodeTimeline.Put("", guard, h.SaveEpisodeTimeline)
	episodeTimeline.Delete("", guard, h.DeleteEpisodeTimeline)

	return app
}

// ErrorHandler renders errors that escape handlers in the JSON envelope.
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			logger.WithFields(logrus.Fields{
				"request_id": middleware.RequestID(c),
				"error":      err.Error(),
			}).Error("unhandled error")
		}
		return utils.RespondWithError(c, code, message, nil)
	}
}
