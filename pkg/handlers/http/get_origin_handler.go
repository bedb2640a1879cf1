package http

import (
	"net"

	"github.com/NeuralTrust/TrustSentinel/pkg/app/bruteforce"
	"github.com/NeuralTrust/TrustSentinel/pkg/handlers/http/response"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type getOriginHandler struct {
	logger *logrus.Logger
	guard  bruteforce.Guard
}

func NewGetOriginHandler(logger *logrus.Logger, guard bruteforce.Guard) Handler {
	return &getOriginHandler{
		logger: logger,
		guard:  guard,
	}
}

// Handle @Summary Get the brute force state of an origin
// @Tags Origins
// @Produce json
// @Param ip path string true "Origin IP address"
// @Success 200 {object} response.OriginOutput
// @Failure 400 {object} map[string]interface{} "Invalid IP address"
// @Router /api/v1/origins/{ip} [get]
func (h *getOriginHandler) Handle(c *fiber.Ctx) error {
	ip := c.Params("ip")
	if net.ParseIP(ip) == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid IP address"})
	}

	return c.Status(fiber.StatusOK).JSON(response.OriginOutput{
		Origin:   ip,
		Blocked:  h.guard.IsBlocked(c.Context(), ip),
		Failures: h.guard.CheckBruteForceAttempts(c.Context(), ip),
	})
}
