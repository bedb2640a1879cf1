package middleware

import (
	"errors"

	"github.com/NeuralTrust/TrustSentinel/pkg/common"
	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

// Values read from the request alias fasthttp buffers that are reused once
// the handler returns. Everything below is copied so it can outlive the
// request in ledgers, alerts and sinks.

func localString(c *fiber.Ctx, key interface{}) string {
	if v, ok := c.Locals(key).(string); ok {
		return fiberutils.CopyString(v)
	}
	return ""
}

func sessionID(c *fiber.Ctx) string {
	if id := localString(c, common.SessionContextKey); id != "" {
		return id
	}
	return fiberutils.CopyString(c.Get(common.SessionIDHeader))
}

func actorID(c *fiber.Ctx) string {
	if id := localString(c, common.ActorContextKey); id != "" {
		return id
	}
	return fiberutils.CopyString(c.Get(common.UserIDHeader))
}

// responseStatus is the status the client will see, including errors
// returned by downstream handlers that the app error handler turns into a
// response after the middleware chain unwinds.
func responseStatus(c *fiber.Ctx, err error) int {
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fe.Code
		}
		return fiber.StatusInternalServerError
	}
	return c.Response().StatusCode()
}
