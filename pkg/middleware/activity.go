package middleware

import (
	"context"
	"strings"
	"time"

	appActivity "github.com/NeuralTrust/TrustSentinel/pkg/app/activity"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/activity"
	"github.com/NeuralTrust/TrustSentinel/pkg/utils"
	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

const (
	maxParamsBodySize = 64 * 1024
	recordTimeout     = time.Second
)

var parserPool fastjson.ParserPool

type activityMiddleware struct {
	logger   *logrus.Logger
	recorder appActivity.Recorder
}

// NewActivityMiddleware records every request that carries a session id
// once the downstream handlers have answered.
func NewActivityMiddleware(logger *logrus.Logger, recorder appActivity.Recorder) Middleware {
	return &activityMiddleware{
		logger:   logger,
		recorder: recorder,
	}
}

func (m *activityMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()
		err := c.Next()

		sid := sessionID(c)
		if sid == "" {
			return err
		}

		evt := m.buildEvent(c, err, startTime)
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if res := m.recorder.Record(ctx, sid, evt); res.Err != nil {
			m.logger.WithFields(logrus.Fields{
				"session_id": sid,
				"path":       evt.Path,
			}).WithError(res.Err).Debug("activity not recorded")
		}
		return err
	}
}

func (m *activityMiddleware) buildEvent(c *fiber.Ctx, err error, startTime time.Time) activity.Event {
	status := responseStatus(c, err)
	ua := utils.ParseUserAgent(c.Get(fiber.HeaderUserAgent))
	path := fiberutils.CopyString(c.Path())
	method := fiberutils.CopyString(c.Method())
	controller, action := routeNames(c.Route(), path, method)

	return activity.Event{
		Actor:          actorID(c),
		Controller:     controller,
		Action:         action,
		Path:           path,
		Method:         method,
		Status:         status,
		ResponseTimeMs: float64(time.Since(startTime).Microseconds()) / 1000,
		IP:             utils.ClientIP(c),
		DeviceType:     ua.Device,
		Browser:        ua.Browser,
		OS:             ua.OS,
		OccurredAt:     startTime.UTC(),
		Suspicious:     status == fiber.StatusUnauthorized || status == fiber.StatusForbidden || status == fiber.StatusTooManyRequests,
		Params:         activity.FilterParams(requestParams(c)),
	}
}

// routeNames splits a route named "controller#action". Unnamed routes fall
// back to the first segment of the route pattern and the lowercase method.
func routeNames(route *fiber.Route, path, method string) (string, string) {
	if controller, action, ok := strings.Cut(route.Name, "#"); ok {
		return controller, action
	}
	pattern := strings.Trim(route.Path, "/")
	if pattern == "" || pattern == "*" {
		pattern = strings.Trim(path, "/")
	}
	controller, _, _ := strings.Cut(pattern, "/")
	return controller, strings.ToLower(method)
}

// requestParams merges route, query, form and top-level JSON body values.
// Later sources win on key collisions.
func requestParams(c *fiber.Ctx) map[string]string {
	params := make(map[string]string)

	for k, v := range c.AllParams() {
		params[fiberutils.CopyString(k)] = fiberutils.CopyString(v)
	}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		params[string(k)] = string(v)
	})

	body := c.Body()
	if len(body) == 0 || len(body) > maxParamsBodySize {
		return params
	}

	contentType := string(c.Request().Header.ContentType())
	switch {
	case strings.HasPrefix(contentType, fiber.MIMEApplicationForm):
		c.Context().PostArgs().VisitAll(func(k, v []byte) {
			params[string(k)] = string(v)
		})
	case strings.HasPrefix(contentType, fiber.MIMEApplicationJSON):
		p := parserPool.Get()
		defer parserPool.Put(p)
		parsed, err := p.ParseBytes(body)
		if err != nil {
			return params
		}
		obj, err := parsed.Object()
		if err != nil {
			return params
		}
		obj.Visit(func(key []byte, v *fastjson.Value) {
			switch v.Type() {
			case fastjson.TypeString:
				params[string(key)] = string(v.GetStringBytes())
			case fastjson.TypeNumber, fastjson.TypeTrue, fastjson.TypeFalse:
				params[string(key)] = v.String()
			}
		})
	}
	return params
}
