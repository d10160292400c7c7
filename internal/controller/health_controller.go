package controller

import (
	"ai-learning-assistant-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type HealthStatus struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Sessions int    `json:"sessions"`
}

// SessionCounter reports how many sessions are live.
type SessionCounter interface {
	Count() int
}

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	provider string
	sessions SessionCounter
}

func NewHealthController(provider string, sessions SessionCounter) IHealthController {
	return &healthController{
		provider: provider,
		sessions: sessions,
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/assistant/v1/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", HealthStatus{
		Status:   "ok",
		Provider: c.provider,
		Sessions: c.sessions.Count(),
	}))
}
