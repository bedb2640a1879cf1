package router

import (
	"errors"

	handlers "github.com/NeuralTrust/TrustSentinel/pkg/handlers/http"
	"github.com/NeuralTrust/TrustSentinel/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

var (
	ErrInvalidHandlerTransport    = errors.New("invalid handler transport")
	ErrInvalidMiddlewareTransport = errors.New("invalid middleware transport")
)

type adminRouter struct {
	middlewareTransport middleware.Transport
	handlerTransport    handlers.HandlerTransport
}

func NewAdminRouter(
	middlewareTransport middleware.Transport,
	handlerTransport handlers.HandlerTransport,
) ServerRouter {
	return &adminRouter{
		middlewareTransport: middlewareTransport,
		handlerTransport:    handlerTransport,
	}
}

// BuildRoutes mounts the admin API. Failed bearer checks answer 401, which the
// login guard counts against the origin, and every authenticated call lands in
// the caller's activity ledger when it sends a session id.
func (r *adminRouter) BuildRoutes(router *fiber.App) error {
	mt := r.middlewareTransport
	if mt.AdminAuthMiddleware == nil || mt.PanicRecoverMiddleware == nil {
		return ErrInvalidMiddlewareTransport
	}
	ht := r.handlerTransport
	if ht.GetVersionHandler == nil || ht.ListAlertsHandler == nil || ht.GetAlertHandler == nil ||
		ht.GetSessionActivityHandler == nil || ht.ClearSessionActivityHandler == nil ||
		ht.GetOriginHandler == nil || ht.ResetOriginHandler == nil {
		return ErrInvalidHandlerTransport
	}

	router.Use(mt.PanicRecoverMiddleware.Middleware())
	router.Get("/version", ht.GetVersionHandler.Handle)

	v1 := router.Group("/api/v1")
	{
		if mt.LoginGuardMiddleware != nil {
			v1.Use(mt.LoginGuardMiddleware.Middleware())
		}
		if mt.ActivityMiddleware != nil {
			v1.Use(mt.ActivityMiddleware.Middleware())
		}
		v1.Use(mt.AdminAuthMiddleware.Middleware())

		export := func(h handlers.Handler) []fiber.Handler {
			if mt.AuditExportMiddleware == nil {
				return []fiber.Handler{h.Handle}
			}
			return []fiber.Handler{mt.AuditExportMiddleware.Middleware(), h.Handle}
		}

		alerts := v1.Group("/alerts")
		{
			alerts.Get("", export(ht.ListAlertsHandler)...).Name("alerts#index")
			alerts.Get("/:alert_id", ht.GetAlertHandler.Handle).Name("alerts#show")
		}

		sessions := v1.Group("/sessions/:session_id")
		{
			sessions.Get("/activity", export(ht.GetSessionActivityHandler)...).Name("sessions#activity")
			sessions.Delete("/activity", ht.ClearSessionActivityHandler.Handle).Name("sessions#clear_activity")
		}

		origins := v1.Group("/origins")
		{
			origins.Get("/:ip", ht.GetOriginHandler.Handle).Name("origins#show")
			origins.Delete("/:ip", ht.ResetOriginHandler.Handle).Name("origins#reset")
		}
	}
	return nil
}
