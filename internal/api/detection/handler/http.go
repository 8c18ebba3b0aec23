package detectionHandler

import (
	detectionService "SkinDetect/internal/api/detection/service"
	"SkinDetect/internal/middleware"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const DefaultRequestTimeout = 30 * time.Second

type DetectionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	timeout          time.Duration
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	timeout time.Duration,
) *DetectionHandler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		validator:        validator,
		middleware:       middleware,
		timeout:          timeout,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	api := srv.Group("/api")

	api.Use("/detect/ws", wsMiddleware)
	api.Get("/detect/ws", websocket.New(h.handleWebSocket))

	api.Post("/detect", h.middleware.NewRateLimiter, h.Detect)
	api.Post("/kirimgambar", h.middleware.NewRateLimiter, h.Detect)

	api.Get("/history", h.GetHistory)
	api.Get("/stats", h.GetStats)

	srv.Get("/health", h.Health)
}
