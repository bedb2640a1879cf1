package utils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

// ClientIP returns the originating address of the request. Forwarding
// headers are only honoured when the app trusts the connecting peer, so the
// fiber config decides which proxies may speak for a client. The result is
// copied out of the request buffer and safe to retain.
func ClientIP(ctx *fiber.Ctx) string {
	return fiberutils.CopyString(strings.TrimSpace(ctx.IP()))
}
