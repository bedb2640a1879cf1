package http

import (
	appActivity "github.com/NeuralTrust/TrustSentinel/pkg/app/activity"
	"github.com/NeuralTrust/TrustSentinel/pkg/common"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type clearSessionActivityHandler struct {
	logger   *logrus.Logger
	recorder appActivity.Recorder
}

func NewClearSessionActivityHandler(logger *logrus.Logger, recorder appActivity.Recorder) Handler {
	return &clearSessionActivityHandler{
		logger:   logger,
		recorder: recorder,
	}
}

// Handle @Summary Clear the activity ledger of a terminated session
// @Tags Sessions
// @Param session_id path string true "Session ID"
// @Success 204 "Ledger cleared"
// @Router /api/v1/sessions/{session_id}/activity [delete]
func (h *clearSessionActivityHandler) Handle(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	if err := h.recorder.Clear(c.Context(), sessionID); err != nil {
		h.logger.WithField("session_id", sessionID).WithError(err).Error("failed to clear session activity")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Failed to clear session activity"})
	}

	h.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"admin":      c.Locals(common.AdminSubjectContextKey),
	}).Info("session activity cleared")
	return c.SendStatus(fiber.StatusNoContent)
}
