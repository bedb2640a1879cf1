package rapid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appAlert "github.com/NeuralTrust/TrustSentinel/pkg/app/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/activity"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/prometheus"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/store"
	"github.com/NeuralTrust/TrustSentinel/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	WindowKeyPattern = "rapid:%s"
	detectorName     = "rapid"
)

type Config struct {
	Window    time.Duration
	Threshold int
}

func (c Config) Validate() error {
	if c.Window <= 0 {
		return domain.NewConfigError("rapid.window", "must be positive")
	}
	if c.Threshold <= 0 {
		return domain.NewConfigError("rapid.threshold", "must be positive")
	}
	return nil
}

type Detector interface {
	// Observe counts one request for actorKey and returns the alert raised
	// when this observation opened a rapid request episode.
	Observe(ctx context.Context, actorKey string, evt activity.Event) *alert.SecurityAlert
	Count(ctx context.Context, actorKey string) (int, error)
}

// windowRecord holds the actor's bucketed request counts and whether the
// current episode was already reported. Both change in one store update.
type windowRecord struct {
	Buckets []utils.Bucket `json:"buckets"`
	Alerted bool           `json:"alerted"`
}

type detector struct {
	store  store.Store
	alerts appAlert.Store
	cfg    Config
	window utils.SlidingWindow
	logger *logrus.Logger
	clock  utils.Clock
}

func NewDetector(
	s store.Store,
	alerts appAlert.Store,
	cfg Config,
	logger *logrus.Logger,
	clock utils.Clock,
) (Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &detector{
		store:  s,
		alerts: alerts,
		cfg:    cfg,
		window: utils.NewSlidingWindow(cfg.Window),
		logger: logger,
		clock:  utils.ClockOrDefault(clock),
	}, nil
}

func (d *detector) Observe(ctx context.Context, actorKey string, evt activity.Event) *alert.SecurityAlert {
	if actorKey == "" {
		return nil
	}
	defer prometheus.ObserveDetectorLatency(detectorName, time.Now())

	now := d.clock()
	var (
		count int
		fire  bool
	)
	_, err := d.store.Update(ctx, fmt.Sprintf(WindowKeyPattern, actorKey), d.window.TTL(),
		func(current []byte, found bool) ([]byte, error) {
			rec := decodeWindow(current, found)
			rec.Buckets, count = d.window.Add(rec.Buckets, now, 1)
			fire = false
			if count >= d.cfg.Threshold {
				if !rec.Alerted {
					rec.Alerted = true
					fire = true
				}
			} else {
				rec.Alerted = false
			}
			return json.Marshal(rec)
		})
	if err != nil {
		prometheus.StoreDegradedTotal.WithLabelValues("rapid_observe").Inc()
		d.logger.WithFields(logrus.Fields{
			"actor": actorKey,
			"path":  evt.Path,
		}).WithError(err).Warn("rapid pattern detector skipped observation")
		return nil
	}
	if !fire {
		return nil
	}

	a := alert.NewSecurityAlert(alert.TypeRapidRequestPattern, map[string]any{
		alert.PayloadActor:       actorKey,
		alert.PayloadCount:       int64(count),
		alert.PayloadWindowStart: utils.WindowStart(now, d.cfg.Window).UTC().Format(time.RFC3339Nano),
	}, now)
	id, err := d.alerts.Publish(ctx, a)
	if err != nil && id == "" {
		d.logger.WithField("actor", actorKey).WithError(err).Error("failed to publish rapid request alert")
		return nil
	}
	a.ID = id
	return a
}

func (d *detector) Count(ctx context.Context, actorKey string) (int, error) {
	data, err := d.store.Get(ctx, fmt.Sprintf(WindowKeyPattern, actorKey))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	rec := decodeWindow(data, true)
	return d.window.Count(rec.Buckets, d.clock()), nil
}

func decodeWindow(data []byte, found bool) windowRecord {
	var rec windowRecord
	if !found {
		return rec
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return windowRecord{}
	}
	return rec
}
