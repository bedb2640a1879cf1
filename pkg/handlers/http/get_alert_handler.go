package http

import (
	"errors"

	appAlert "github.com/NeuralTrust/TrustSentinel/pkg/app/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type getAlertHandler struct {
	logger *logrus.Logger
	alerts appAlert.Store
}

func NewGetAlertHandler(logger *logrus.Logger, alerts appAlert.Store) Handler {
	return &getAlertHandler{
		logger: logger,
		alerts: alerts,
	}
}

// Handle @Summary Get a security alert
// @Tags Alerts
// @Produce json
// @Param alert_id path string true "Alert ID"
// @Success 200 {object} alert.SecurityAlert
// @Failure 404 {object} map[string]interface{} "Alert not found or expired"
// @Router /api/v1/alerts/{alert_id} [get]
func (h *getAlertHandler) Handle(c *fiber.Ctx) error {
	alertID := c.Params("alert_id")

	a, err := h.alerts.Get(c.Context(), alertID)
	if err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Alert not found"})
		}
		h.logger.WithField("alert_id", alertID).WithError(err).Error("failed to get alert")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Failed to get alert"})
	}

	return c.Status(fiber.StatusOK).JSON(a)
}
