package middleware

import "github.com/gofiber/fiber/v2"

type Middleware interface {
	Middleware() fiber.Handler
}

// Transport groups the middlewares mounted by the admin router. Embedding
// applications build their own data access middlewares per route with a
// resource tag; AuditExportMiddleware is the one guarding admin reads of
// ledgers and alert feeds.
type Transport struct {
	AdminAuthMiddleware    Middleware
	PanicRecoverMiddleware Middleware
	ActivityMiddleware     Middleware
	LoginGuardMiddleware   Middleware
	AuditExportMiddleware  Middleware
}
