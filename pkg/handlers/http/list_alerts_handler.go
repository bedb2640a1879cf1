package http

import (
	appAlert "github.com/NeuralTrust/TrustSentinel/pkg/app/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/common"
	"github.com/NeuralTrust/TrustSentinel/pkg/handlers/http/response"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type listAlertsHandler struct {
	logger *logrus.Logger
	alerts appAlert.Store
}

func NewListAlertsHandler(logger *logrus.Logger, alerts appAlert.Store) Handler {
	return &listAlertsHandler{
		logger: logger,
		alerts: alerts,
	}
}

// Handle @Summary List recent security alerts
// @Description Returns the recent alert feed, newest first
// @Tags Alerts
// @Produce json
// @Param limit query int false "Maximum number of alerts"
// @Success 200 {object} response.AlertListOutput
// @Router /api/v1/alerts [get]
func (h *listAlertsHandler) Handle(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must not be negative"})
	}

	alerts, err := h.alerts.Recent(c.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list recent alerts")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Failed to list alerts"})
	}

	c.Locals(common.RowCountContextKey, len(alerts))
	return c.Status(fiber.StatusOK).JSON(response.AlertListOutput{
		Alerts: alerts,
		Count:  len(alerts),
	})
}
