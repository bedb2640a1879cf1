package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	domainAlert "github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/prometheus"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/telemetry"
	"github.com/NeuralTrust/TrustSentinel/pkg/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxIDAttempts = 5

type Config struct {
	TTL      time.Duration
	FeedSize int
}

func (c Config) Validate() error {
	if c.TTL <= 0 {
		return domain.NewConfigError("alerts.ttl", "must be positive")
	}
	if c.FeedSize <= 0 {
		return domain.NewConfigError("alerts.feed_size", "must be positive")
	}
	return nil
}

type Store interface {
	// Publish stores a and returns its id. A missing id is generated; a
	// caller-supplied id that is already taken fails with
	// domain.ErrDuplicateAlertID.
	Publish(ctx context.Context, a *domainAlert.SecurityAlert) (string, error)
	Get(ctx context.Context, id string) (*domainAlert.SecurityAlert, error)
	// Recent returns up to limit alerts, newest first.
	Recent(ctx context.Context, limit int) ([]domainAlert.SecurityAlert, error)
}

type Option func(*store)

func WithClock(clock utils.Clock) Option {
	return func(s *store) {
		s.clock = utils.ClockOrDefault(clock)
	}
}

func WithUUIDProvider(provider func() uuid.UUID) Option {
	return func(s *store) {
		if provider != nil {
			s.uuidProvider = provider
		}
	}
}

func WithDispatcher(d telemetry.Dispatcher) Option {
	return func(s *store) {
		s.dispatcher = d
	}
}

type store struct {
	repo         domainAlert.Repository
	cfg          Config
	logger       *logrus.Logger
	clock        utils.Clock
	uuidProvider func() uuid.UUID
	dispatcher   telemetry.Dispatcher
}

func NewStore(
	repo domainAlert.Repository,
	cfg Config,
	logger *logrus.Logger,
	opts ...Option,
) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &store{
		repo:         repo,
		cfg:          cfg,
		logger:       logger,
		clock:        time.Now,
		uuidProvider: uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *store) Publish(ctx context.Context, a *domainAlert.SecurityAlert) (string, error) {
	if a == nil {
		return "", errors.New("alert is nil")
	}
	stored := *a
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock()
	}
	// the stored, fed and dispatched alert owns a copy shaped like what
	// Get returns, so sinks never see caller buffers
	stored.ID = strings.Clone(stored.ID)
	stored.Payload = domainAlert.NormalizePayload(stored.Payload)

	if err := s.create(ctx, &stored); err != nil {
		return "", err
	}

	prometheus.AlertsPublishedTotal.WithLabelValues(string(stored.AlertType)).Inc()
	fields := logrus.Fields{
		"alert_id":   stored.ID,
		"alert_type": stored.AlertType,
		"payload":    stored.Payload,
	}

	if err := s.repo.PushRecent(ctx, &stored, s.cfg.FeedSize); err != nil {
		prometheus.StoreDegradedTotal.WithLabelValues("alert_feed").Inc()
		s.logger.WithFields(fields).WithError(err).Warn("alert stored but not added to the recent feed")
		return stored.ID, fmt.Errorf("failed to add alert to recent feed: %w", err)
	}

	s.logger.WithFields(fields).Warn("security alert published")
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(stored)
	}
	return stored.ID, nil
}

func (s *store) create(ctx context.Context, a *domainAlert.SecurityAlert) error {
	if a.ID != "" {
		return s.repo.Create(ctx, a, s.cfg.TTL)
	}
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		a.ID = domainAlert.NewID(s.uuidProvider)
		err := s.repo.Create(ctx, a, s.cfg.TTL)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicateAlertID) {
			return err
		}
		s.logger.WithField("alert_id", a.ID).Debug("generated alert id collided, regenerating")
	}
	return fmt.Errorf("%w: no free id after %d attempts", domain.ErrDuplicateAlertID, maxIDAttempts)
}

func (s *store) Get(ctx context.Context, id string) (*domainAlert.SecurityAlert, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *store) Recent(ctx context.Context, limit int) ([]domainAlert.SecurityAlert, error) {
	if limit <= 0 || limit > s.cfg.FeedSize {
		limit = s.cfg.FeedSize
	}
	return s.repo.ListRecent(ctx, limit)
}
