package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appActivity "github.com/NeuralTrust/TrustSentinel/pkg/app/activity"
	appAlert "github.com/NeuralTrust/TrustSentinel/pkg/app/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/app/bruteforce"
	"github.com/NeuralTrust/TrustSentinel/pkg/app/dataaccess"
	"github.com/NeuralTrust/TrustSentinel/pkg/app/rapid"
	"github.com/NeuralTrust/TrustSentinel/pkg/common"
	"github.com/NeuralTrust/TrustSentinel/pkg/config"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/activity"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
	handlers "github.com/NeuralTrust/TrustSentinel/pkg/handlers/http"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/jwt"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/repository"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/store"
	"github.com/NeuralTrust/TrustSentinel/pkg/middleware"
	"github.com/NeuralTrust/TrustSentinel/pkg/server"
	"github.com/NeuralTrust/TrustSentinel/pkg/server/router"
	"github.com/NeuralTrust/TrustSentinel/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const origin = "198.51.100.23"

type adminFixture struct {
	srv      *server.AdminServer
	jwt      jwt.Manager
	alerts   appAlert.Store
	recorder appActivity.Recorder
	guard    bruteforce.Guard
	monitor  dataaccess.Monitor
}

func newAdminFixture(t *testing.T) adminFixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{Server: config.ServerConfig{
		AdminPort:      8080,
		MetricsPort:    9090,
		SecretKey:      "test-secret",
		ProxyHeader:    fiber.HeaderXForwardedFor,
		TrustedProxies: []string{"0.0.0.0"},
	}}

	kv := store.NewMemoryStore()
	alerts, err := appAlert.NewStore(repository.NewAlertRepository(kv), appAlert.Config{TTL: time.Hour, FeedSize: 10}, logger)
	require.NoError(t, err)
	detector, err := rapid.NewDetector(kv, alerts, rapid.Config{Window: 10 * time.Second, Threshold: 100}, logger, nil)
	require.NoError(t, err)
	recorder, err := appActivity.NewRecorder(repository.NewActivityRepository(kv), detector,
		appActivity.Config{LedgerSize: 50, LedgerTTL: time.Hour}, logger)
	require.NoError(t, err)
	guard, err := bruteforce.NewGuard(kv, alerts,
		bruteforce.Config{Window: 15 * time.Minute, Threshold: 3, BlockTTL: time.Hour}, logger, nil)
	require.NoError(t, err)
	monitor, err := dataaccess.NewMonitor(kv, alerts, dataaccess.Config{Period: time.Hour, Threshold: 3}, logger, nil)
	require.NoError(t, err)
	jwtManager := jwt.NewJwtManager(&cfg.Server)

	mt := middleware.Transport{
		AdminAuthMiddleware:    middleware.NewAdminAuthMiddleware(logger, jwtManager),
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
		ActivityMiddleware:     middleware.NewActivityMiddleware(logger, recorder),
		LoginGuardMiddleware:   middleware.NewLoginGuardMiddleware(logger, guard, time.Minute),
		AuditExportMiddleware:  middleware.NewDataAccessMiddleware(logger, monitor, "audit_export"),
	}
	ht := handlers.HandlerTransport{
		GetVersionHandler:           handlers.NewGetVersionHandler(logger),
		ListAlertsHandler:           handlers.NewListAlertsHandler(logger, alerts),
		GetAlertHandler:             handlers.NewGetAlertHandler(logger, alerts),
		GetSessionActivityHandler:   handlers.NewGetSessionActivityHandler(logger, recorder),
		ClearSessionActivityHandler: handlers.NewClearSessionActivityHandler(logger, recorder),
		GetOriginHandler:            handlers.NewGetOriginHandler(logger, guard),
		ResetOriginHandler:          handlers.NewResetOriginHandler(logger, guard),
	}

	srv := server.NewAdminServer(server.AdminServerDI{
		Config:  cfg,
		Logger:  logger,
		Routers: []router.ServerRouter{router.NewAdminRouter(mt, ht)},
	})
	srv.Routes()
	return adminFixture{srv: srv, jwt: jwtManager, alerts: alerts, recorder: recorder, guard: guard, monitor: monitor}
}

func (f adminFixture) request(t *testing.T, method, target, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("X-Forwarded-For", origin)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set(common.SessionIDHeader, "admin-session")
	resp, err := f.srv.Router.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAdminServer_HealthEndpoints(t *testing.T) {
	f := newAdminFixture(t)
	for _, path := range []string{server.HealthPath, server.AdminHealthPath, "/version"} {
		resp := f.request(t, http.MethodGet, path, "")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}
}

func TestAdminServer_RequiresBearerToken(t *testing.T) {
	f := newAdminFixture(t)
	resp := f.request(t, http.MethodGet, "/api/v1/alerts", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, err := f.jwt.CreateToken("ops@example.com", time.Hour)
	require.NoError(t, err)
	resp = f.request(t, http.MethodGet, "/api/v1/alerts", token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminServer_BlocksOriginAfterRepeatedBadTokens(t *testing.T) {
	f := newAdminFixture(t)
	for i := 0; i < 3; i++ {
		resp := f.request(t, http.MethodGet, "/api/v1/alerts", "forged")
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}

	token, err := f.jwt.CreateToken("ops@example.com", time.Hour)
	require.NoError(t, err)
	resp := f.request(t, http.MethodGet, "/api/v1/alerts", token)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))
	assert.True(t, f.guard.IsBlocked(context.Background(), origin))
}

func TestAdminServer_RecordsAdminActivity(t *testing.T) {
	f := newAdminFixture(t)
	token, err := f.jwt.CreateToken("ops@example.com", time.Hour)
	require.NoError(t, err)

	resp := f.request(t, http.MethodGet, "/api/v1/origins/"+origin, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	ledger, err := f.recorder.Ledger(context.Background(), "admin-session")
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, "origins", ledger[0].Controller)
	assert.Equal(t, "show", ledger[0].Action)
	assert.Equal(t, origin, ledger[0].IP)
}

func TestAdminServer_CountsAuditExports(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res := f.recorder.Record(ctx, "sess-7", activity.Event{
			Path:       "/reports",
			Method:     http.MethodGet,
			Status:     200,
			IP:         "192.0.2.1",
			OccurredAt: time.Now(),
		})
		require.True(t, res.Recorded)
	}
	token, err := f.jwt.CreateToken("ops@example.com", time.Hour)
	require.NoError(t, err)

	resp := f.request(t, http.MethodGet, "/api/v1/sessions/sess-7/activity", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	total, err := f.monitor.Total(ctx, "ops@example.com", "audit_export")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	recent, err := f.alerts.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, alert.TypeExcessiveDataAccess, recent[0].AlertType)
	assert.Equal(t, "ops@example.com", recent[0].Payload[alert.PayloadActor])
}

func TestAdminRouter_RejectsIncompleteTransport(t *testing.T) {
	r := router.NewAdminRouter(middleware.Transport{}, handlers.HandlerTransport{})
	assert.ErrorIs(t, r.BuildRoutes(fiber.New()), router.ErrInvalidMiddlewareTransport)
}

func TestBaseServer_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	clientIP := func(trusted []string) string {
		cfg := &config.Config{Server: config.ServerConfig{
			ProxyHeader:    fiber.HeaderXForwardedFor,
			TrustedProxies: trusted,
		}}
		srv := server.NewBaseServer(cfg, logger)
		srv.Router.Get("/ip", func(c *fiber.Ctx) error {
			return c.SendString(utils.ClientIP(c))
		})
		req := httptest.NewRequest(http.MethodGet, "/ip", nil)
		req.Header.Set("X-Forwarded-For", origin)
		resp, err := srv.Router.Test(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	assert.Equal(t, "0.0.0.0", clientIP(nil))
	assert.Equal(t, "0.0.0.0", clientIP([]string{"10.0.0.0/8"}))
	assert.Equal(t, origin, clientIP([]string{"0.0.0.0"}))
}
