package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	appActivity "github.com/NeuralTrust/TrustSentinel/pkg/app/activity"
	appAlert "github.com/NeuralTrust/TrustSentinel/pkg/app/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/app/bruteforce"
	"github.com/NeuralTrust/TrustSentinel/pkg/app/dataaccess"
	"github.com/NeuralTrust/TrustSentinel/pkg/app/rapid"
	"github.com/NeuralTrust/TrustSentinel/pkg/config"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
	handlers "github.com/NeuralTrust/TrustSentinel/pkg/handlers/http"
	infraCache "github.com/NeuralTrust/TrustSentinel/pkg/infra/cache"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/jwt"
	infraLogger "github.com/NeuralTrust/TrustSentinel/pkg/infra/logger"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/prometheus"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/repository"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/store"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/telemetry"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/telemetry/kafka"
	"github.com/NeuralTrust/TrustSentinel/pkg/middleware"
	"github.com/NeuralTrust/TrustSentinel/pkg/server"
	"github.com/NeuralTrust/TrustSentinel/pkg/server/router"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const auditExportTag = "audit_export"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger, closeLogger, err := infraLogger.NewLogger(infraLogger.Options{
		Component: "sentinel",
		Level:     os.Getenv("LOG_LEVEL"),
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer closeLogger()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config"
	}
	if err := config.Load(configPath); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GetConfig()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.Metrics.Enabled {
		prometheus.Initialize(prometheus.MetricsConfig{
			EnableLatency: cfg.Metrics.EnableLatency,
		})
	}

	// store
	var (
		kv          store.Store
		redisClient *redis.Client
	)
	switch cfg.Store.Driver {
	case config.StoreDriverRedis:
		redisClient, err = infraCache.NewRedisClient(infraCache.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TLS:      cfg.Redis.TLS,
		}, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize redis: %v", err)
		}
		defer redisClient.Close()
		kv = store.WithCircuitBreaker(
			store.NewRedisStore(redisClient, store.RedisOptions{
				Timeout:    cfg.Store.OperationTimeout,
				MaxRetries: cfg.Store.MaxRetries,
			}),
			store.NewBreaker(cfg.Store.BreakerTimeout, cfg.Store.BreakerMaxFailures),
		)
	default:
		memory := store.NewMemoryStore()
		memory.StartJanitor(ctx, cfg.Store.JanitorInterval)
		kv = memory
		logger.Warn("using in-process security store, state is not shared between instances")
	}

	// alert sinks
	dispatcher := telemetry.NewDispatcher(logger, buildSinks(cfg, redisClient, logger))
	dispatcher.StartWorkers(cfg.Alerts.SinkWorkers)

	// repository
	alertRepository := repository.NewAlertRepository(kv)
	activityRepository := repository.NewActivityRepository(kv)

	// service
	alerts, err := appAlert.NewStore(alertRepository, appAlert.Config{
		TTL:      cfg.Alerts.TTL,
		FeedSize: cfg.Alerts.FeedSize,
	}, logger, appAlert.WithDispatcher(dispatcher))
	if err != nil {
		logger.Fatalf("Failed to initialize alert store: %v", err)
	}
	detector, err := rapid.NewDetector(kv, alerts, rapid.Config{
		Window:    cfg.Rapid.Window,
		Threshold: cfg.Rapid.Threshold,
	}, logger, nil)
	if err != nil {
		logger.Fatalf("Failed to initialize rapid detector: %v", err)
	}
	recorder, err := appActivity.NewRecorder(activityRepository, detector, appActivity.Config{
		LedgerSize: cfg.Activity.LedgerSize,
		LedgerTTL:  cfg.Activity.LedgerTTL,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize activity recorder: %v", err)
	}
	guard, err := bruteforce.NewGuard(kv, alerts, bruteforce.Config{
		Window:     cfg.BruteForce.Window,
		Threshold:  cfg.BruteForce.Threshold,
		BlockTTL:   cfg.BruteForce.BlockTTL,
		FailClosed: cfg.BruteForce.FailClosed,
	}, logger, nil)
	if err != nil {
		logger.Fatalf("Failed to initialize brute force guard: %v", err)
	}
	monitor, err := dataaccess.NewMonitor(kv, alerts, dataaccess.Config{
		Period:    cfg.DataAccess.Period,
		Threshold: cfg.DataAccess.Threshold,
	}, logger, nil)
	if err != nil {
		logger.Fatalf("Failed to initialize data access monitor: %v", err)
	}

	jwtManager := jwt.NewJwtManager(&cfg.Server)

	//middleware
	middlewareTransport := middleware.Transport{
		AdminAuthMiddleware:    middleware.NewAdminAuthMiddleware(logger, jwtManager),
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
		ActivityMiddleware:     middleware.NewActivityMiddleware(logger, recorder),
		LoginGuardMiddleware:   middleware.NewLoginGuardMiddleware(logger, guard, cfg.BruteForce.BlockTTL),
		AuditExportMiddleware:  middleware.NewDataAccessMiddleware(logger, monitor, auditExportTag),
	}

	// Handler Transport
	handlerTransport := handlers.HandlerTransport{
		GetVersionHandler: handlers.NewGetVersionHandler(logger),
		// Alerts
		ListAlertsHandler: handlers.NewListAlertsHandler(logger, alerts),
		GetAlertHandler:   handlers.NewGetAlertHandler(logger, alerts),
		// Sessions
		GetSessionActivityHandler:   handlers.NewGetSessionActivityHandler(logger, recorder),
		ClearSessionActivityHandler: handlers.NewClearSessionActivityHandler(logger, recorder),
		// Origins
		GetOriginHandler:   handlers.NewGetOriginHandler(logger, guard),
		ResetOriginHandler: handlers.NewResetOriginHandler(logger, guard),
	}

	adminServer := server.NewAdminServer(server.AdminServerDI{
		Config:  cfg,
		Logger:  logger,
		Routers: []router.ServerRouter{router.NewAdminRouter(middlewareTransport, handlerTransport)},
	})

	go func() {
		if err := adminServer.Run(); err != nil {
			logger.WithError(err).Error("admin server stopped")
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case <-ctx.Done():
	}

	if err := adminServer.Shutdown(); err != nil {
		logger.WithError(err).Error("failed to shut down admin server")
	}
	dispatcher.Shutdown()
	logger.Info("server gracefully stopped")
}

func buildSinks(cfg *config.Config, redisClient *redis.Client, logger *logrus.Logger) []alert.Sink {
	locator := telemetry.NewSinkLocator(
		telemetry.WithSink(kafka.ExporterName, kafka.NewKafkaExporter()),
		telemetry.WithSink(infraCache.BroadcasterName, infraCache.NewAlertBroadcaster(redisClient)),
	)

	var sinkConfigs []alert.SinkConfig
	if cfg.Kafka.Enabled {
		sinkConfigs = append(sinkConfigs, alert.SinkConfig{
			Name: kafka.ExporterName,
			Settings: map[string]interface{}{
				"host":  cfg.Kafka.Host,
				"port":  cfg.Kafka.Port,
				"topic": cfg.Kafka.Topic,
			},
		})
	}
	if redisClient != nil && cfg.Alerts.BroadcastChannel != "" {
		sinkConfigs = append(sinkConfigs, alert.SinkConfig{
			Name: infraCache.BroadcasterName,
			Settings: map[string]interface{}{
				"channel": cfg.Alerts.BroadcastChannel,
			},
		})
	}

	for _, sc := range sinkConfigs {
		if err := locator.ValidateSink(sc); err != nil {
			logger.Fatalf("Invalid alert sink %s: %v", sc.Name, err)
		}
	}
	sinks, err := locator.Build(sinkConfigs)
	if err != nil {
		logger.Fatalf("Failed to initialize alert sinks: %v", err)
	}
	for _, s := range sinks {
		logger.WithField("sink", s.Name()).Info("alert sink enabled")
	}
	return sinks
}
