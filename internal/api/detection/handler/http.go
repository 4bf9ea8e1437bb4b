package detectionHandler

import (
	detectionService "FaceGate/internal/api/detection/service"
	"FaceGate/internal/middleware"
	"FaceGate/pkg/utils"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

type DetectionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	utils            utils.IUtils
	readTimeout      time.Duration
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
) *DetectionHandler {
	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		validator:        validator,
		middleware:       middleware,
		utils:            utils,
		readTimeout:      defaultReadTimeout,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		// rotation applies to every binary frame of the stream
		switch rotation := c.QueryInt("rotation", 0); rotation {
		case 0, 90, 180, 270:
			c.Locals("rotation", rotation)
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "rotation must be one of 0, 90, 180, 270",
			})
		}

		return c.Next()
	}

	face := srv.Group("/face", h.middleware.NewRateLimiter, h.middleware.NewTokenMiddleware)

	face.Post("/sessions", h.CreateSession)
	face.Get("/sessions", h.ListSessions)
	face.Get("/sessions/:id", h.GetSession)
	face.Delete("/sessions/:id", h.CloseSession)
	face.Post("/detect", h.DetectFace)

	face.Use("/ws", wsMiddleware)
	face.Get("/ws", websocket.New(h.handleWebSocket))
}
