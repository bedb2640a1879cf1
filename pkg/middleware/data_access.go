package middleware

import (
	"context"

	"github.com/NeuralTrust/TrustSentinel/pkg/app/dataaccess"
	"github.com/NeuralTrust/TrustSentinel/pkg/common"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type dataAccessMiddleware struct {
	logger      *logrus.Logger
	monitor     dataaccess.Monitor
	resourceTag string
}

// NewDataAccessMiddleware feeds the number of rows a bulk-read handler
// returned, stored under common.RowCountContextKey, to the data access
// monitor. Failed responses are not counted.
func NewDataAccessMiddleware(logger *logrus.Logger, monitor dataaccess.Monitor, resourceTag string) Middleware {
	return &dataAccessMiddleware{
		logger:      logger,
		monitor:     monitor,
		resourceTag: resourceTag,
	}
}

func (m *dataAccessMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if status := responseStatus(c, err); status >= fiber.StatusBadRequest {
			return err
		}

		rows := rowCount(c.Locals(common.RowCountContextKey))
		actor := actorID(c)
		if rows <= 0 || actor == "" {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), guardTimeout)
		defer cancel()
		total := m.monitor.Record(ctx, actor, rows, m.resourceTag)
		m.logger.WithFields(logrus.Fields{
			"actor":        actor,
			"resource_tag": m.resourceTag,
			"rows":         rows,
			"total":        total,
		}).Debug("data access recorded")
		return err
	}
}

func rowCount(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint32:
		return int64(n)
	default:
		return 0
	}
}
