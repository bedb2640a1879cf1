package http

import (
	appActivity "github.com/NeuralTrust/TrustSentinel/pkg/app/activity"
	"github.com/NeuralTrust/TrustSentinel/pkg/common"
	"github.com/NeuralTrust/TrustSentinel/pkg/handlers/http/response"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type getSessionActivityHandler struct {
	logger   *logrus.Logger
	recorder appActivity.Recorder
}

func NewGetSessionActivityHandler(logger *logrus.Logger, recorder appActivity.Recorder) Handler {
	return &getSessionActivityHandler{
		logger:   logger,
		recorder: recorder,
	}
}

// Handle @Summary Get the activity ledger of a session
// @Description Events are returned in insertion order, newest last
// @Tags Sessions
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} response.SessionActivityOutput
// @Router /api/v1/sessions/{session_id}/activity [get]
func (h *getSessionActivityHandler) Handle(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	events, err := h.recorder.Ledger(c.Context(), sessionID)
	if err != nil {
		h.logger.WithField("session_id", sessionID).WithError(err).Error("failed to read session activity")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Failed to read session activity"})
	}

	c.Locals(common.RowCountContextKey, len(events))
	return c.Status(fiber.StatusOK).JSON(response.SessionActivityOutput{
		SessionID: sessionID,
		Events:    events,
		Count:     len(events),
	})
}
