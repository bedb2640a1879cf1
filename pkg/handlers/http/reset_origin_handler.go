package http

import (
	"net"

	"github.com/NeuralTrust/TrustSentinel/pkg/app/bruteforce"
	"github.com/NeuralTrust/TrustSentinel/pkg/common"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type resetOriginHandler struct {
	logger *logrus.Logger
	guard  bruteforce.Guard
}

func NewResetOriginHandler(logger *logrus.Logger, guard bruteforce.Guard) Handler {
	return &resetOriginHandler{
		logger: logger,
		guard:  guard,
	}
}

// Handle @Summary Clear the failure history and block of an origin
// @Tags Origins
// @Param ip path string true "Origin IP address"
// @Success 204 "Origin reset"
// @Router /api/v1/origins/{ip} [delete]
func (h *resetOriginHandler) Handle(c *fiber.Ctx) error {
	ip := c.Params("ip")
	if net.ParseIP(ip) == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid IP address"})
	}

	if err := h.guard.Reset(c.Context(), ip); err != nil {
		h.logger.WithField("origin", ip).WithError(err).Error("failed to reset origin")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Failed to reset origin"})
	}

	h.logger.WithFields(logrus.Fields{
		"origin": ip,
		"admin":  c.Locals(common.AdminSubjectContextKey),
	}).Warn("origin brute force state reset by operator")
	return c.SendStatus(fiber.StatusNoContent)
}
