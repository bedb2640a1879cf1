package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/app/rapid"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	domainActivity "github.com/NeuralTrust/TrustSentinel/pkg/domain/activity"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

type Config struct {
	LedgerSize int
	LedgerTTL  time.Duration
}

func (c Config) Validate() error {
	if c.LedgerSize <= 0 {
		return domain.NewConfigError("activity.ledger_size", "must be positive")
	}
	if c.LedgerTTL <= 0 {
		return domain.NewConfigError("activity.ledger_ttl", "must be positive")
	}
	return nil
}

// Result reports what Record did. Callers on the request path are free to
// ignore it.
type Result struct {
	Recorded     bool
	LedgerLength int
	Alert        *alert.SecurityAlert
	Err          error
}

type Recorder interface {
	// Record appends evt to the session ledger and feeds the rapid request
	// detector. Params are stored as given; sensitive values must be filtered
	// by the caller.
	Record(ctx context.Context, sessionID string, evt domainActivity.Event) Result
	Ledger(ctx context.Context, sessionID string) ([]domainActivity.Event, error)
	Clear(ctx context.Context, sessionID string) error
}

type recorder struct {
	repo     domainActivity.Repository
	detector rapid.Detector
	cfg      Config
	logger   *logrus.Logger
}

func NewRecorder(
	repo domainActivity.Repository,
	detector rapid.Detector,
	cfg Config,
	logger *logrus.Logger,
) (Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &recorder{
		repo:     repo,
		detector: detector,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

func (r *recorder) Record(ctx context.Context, sessionID string, evt domainActivity.Event) Result {
	if sessionID == "" {
		return r.reject(evt, fmt.Errorf("%w: session id is required", domain.ErrMalformedEvent))
	}
	if err := evt.Validate(); err != nil {
		return r.reject(evt, err)
	}

	var res Result
	length, err := r.repo.Append(ctx, sessionID, evt, r.cfg.LedgerSize, r.cfg.LedgerTTL)
	if err != nil {
		prometheus.ActivityRecordedTotal.WithLabelValues("failed").Inc()
		prometheus.StoreDegradedTotal.WithLabelValues("activity_record").Inc()
		r.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"path":       evt.Path,
		}).WithError(err).Warn("failed to record activity")
		res.Err = err
	} else {
		prometheus.ActivityRecordedTotal.WithLabelValues("recorded").Inc()
		res.Recorded = true
		res.LedgerLength = length
	}

	if r.detector != nil {
		actorKey := sessionID
		if evt.Actor != "" {
			actorKey = evt.Actor
		}
		res.Alert = r.detector.Observe(ctx, actorKey, evt)
	}
	return res
}

func (r *recorder) reject(evt domainActivity.Event, err error) Result {
	prometheus.ActivityRecordedTotal.WithLabelValues("rejected").Inc()
	r.logger.WithFields(logrus.Fields{
		"path":   evt.Path,
		"method": evt.Method,
		"ip":     evt.IP,
	}).WithError(err).Warn("rejected malformed activity event")
	return Result{Err: err}
}

func (r *recorder) Ledger(ctx context.Context, sessionID string) ([]domainActivity.Event, error) {
	return r.repo.List(ctx, sessionID)
}

func (r *recorder) Clear(ctx context.Context, sessionID string) error {
	if err := r.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear activity for session %s: %w", sessionID, err)
	}
	return nil
}
