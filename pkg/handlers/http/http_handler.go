package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport struct {
	GetVersionHandler Handler

	// Alerts
	ListAlertsHandler Handler
	GetAlertHandler   Handler

	// Session activity
	GetSessionActivityHandler   Handler
	ClearSessionActivityHandler Handler

	// Origins
	GetOriginHandler   Handler
	ResetOriginHandler Handler
}
