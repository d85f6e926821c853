package controllers

import (
	"tutorbook_go/services"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	health *services.HealthService
}

func NewHealthController(health *services.HealthService) *HealthController {
	return &HealthController{health: health}
}

// Health reports database and cache reachability
func (hc *HealthController) Health(c *fiber.Ctx) error {
	report := hc.health.Report(c.UserContext())
	return c.Status(hc.health.HTTPStatus(report.Status)).JSON(report)
}
