package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/app/bruteforce"
	"github.com/NeuralTrust/TrustSentinel/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const guardTimeout = time.Second

type loginGuardMiddleware struct {
	logger     *logrus.Logger
	guard      bruteforce.Guard
	retryAfter time.Duration
}

// NewLoginGuardMiddleware wraps an authentication endpoint: blocked origins
// are rejected before the handler runs and every 401 answer counts as a
// failed attempt. retryAfter sets the Retry-After header on rejections.
func NewLoginGuardMiddleware(logger *logrus.Logger, guard bruteforce.Guard, retryAfter time.Duration) Middleware {
	return &loginGuardMiddleware{
		logger:     logger,
		guard:      guard,
		retryAfter: retryAfter,
	}
}

func (m *loginGuardMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := utils.ClientIP(c)

		ctx, cancel := context.WithTimeout(context.Background(), guardTimeout)
		defer cancel()

		if m.guard.IsBlocked(ctx, ip) {
			m.logger.WithFields(logrus.Fields{
				"origin": ip,
				"path":   c.Path(),
			}).Info("rejected authentication attempt from blocked origin")
			if m.retryAfter > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(m.retryAfter.Seconds())))
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many failed authentication attempts",
			})
		}

		err := c.Next()
		if responseStatus(c, err) == fiber.StatusUnauthorized {
			failures := m.guard.RecordFailure(ctx, ip)
			m.logger.WithFields(logrus.Fields{
				"origin":   ip,
				"failures": failures,
			}).Debug("authentication failure recorded")
		}
		return err
	}
}
