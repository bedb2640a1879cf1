package dataaccess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	appAlert "github.com/NeuralTrust/TrustSentinel/pkg/app/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/prometheus"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/store"
	"github.com/NeuralTrust/TrustSentinel/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Key parts are query-escaped so a ':' inside an actor id or tag cannot
// make two counters share a key.
const (
	CounterKeyPattern       = "data_access:%s"
	TaggedCounterKeyPattern = "data_access:%s:%s"
	detectorName            = "data_access"
)

type Config struct {
	Period    time.Duration
	Threshold int64
}

func (c Config) Validate() error {
	if c.Period <= 0 {
		return domain.NewConfigError("data_access.period", "must be positive")
	}
	if c.Threshold <= 0 {
		return domain.NewConfigError("data_access.threshold", "must be positive")
	}
	return nil
}

type Monitor interface {
	// Record adds unitCount to the actor's volume for the current period and
	// returns the new total. It returns 0 when the store is unavailable.
	Record(ctx context.Context, actorID string, unitCount int64, resourceTag string) int64
	Total(ctx context.Context, actorID string, resourceTag string) (int64, error)
}

// counterRecord is the cumulative volume of one period. A period starts with
// the first access recorded after the previous one ended.
type counterRecord struct {
	PeriodStart time.Time `json:"period_start"`
	Total       int64     `json:"total"`
	Alerted     bool      `json:"alerted"`
}

func (r counterRecord) current(now time.Time, period time.Duration) bool {
	return !r.PeriodStart.IsZero() && now.Before(r.PeriodStart.Add(period))
}

type monitor struct {
	store  store.Store
	alerts appAlert.Store
	cfg    Config
	logger *logrus.Logger
	clock  utils.Clock
}

func NewMonitor(
	s store.Store,
	alerts appAlert.Store,
	cfg Config,
	logger *logrus.Logger,
	clock utils.Clock,
) (Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &monitor{
		store:  s,
		alerts: alerts,
		cfg:    cfg,
		logger: logger,
		clock:  utils.ClockOrDefault(clock),
	}, nil
}

func counterKey(actorID, resourceTag string) string {
	if resourceTag == "" {
		return fmt.Sprintf(CounterKeyPattern, url.QueryEscape(actorID))
	}
	return fmt.Sprintf(TaggedCounterKeyPattern, url.QueryEscape(actorID), url.QueryEscape(resourceTag))
}

func (m *monitor) Record(ctx context.Context, actorID string, unitCount int64, resourceTag string) int64 {
	if actorID == "" {
		return 0
	}
	if unitCount <= 0 {
		total, err := m.Total(ctx, actorID, resourceTag)
		if err != nil {
			return 0
		}
		return total
	}
	defer prometheus.ObserveDetectorLatency(detectorName, time.Now())

	now := m.clock()
	var (
		total int64
		fire  bool
	)
	_, err := m.store.Update(ctx, counterKey(actorID, resourceTag), m.cfg.Period,
		func(current []byte, found bool) ([]byte, error) {
			rec := decodeCounter(current, found)
			if !rec.current(now, m.cfg.Period) {
				rec = counterRecord{PeriodStart: now}
			}
			before := rec.Total
			rec.Total += unitCount
			total = rec.Total
			fire = false
			if before < m.cfg.Threshold && rec.Total >= m.cfg.Threshold && !rec.Alerted {
				rec.Alerted = true
				fire = true
			}
			return json.Marshal(rec)
		})
	if err != nil {
		prometheus.StoreDegradedTotal.WithLabelValues("data_access_record").Inc()
		m.logger.WithFields(logrus.Fields{
			"actor":        actorID,
			"resource_tag": resourceTag,
			"units":        unitCount,
		}).WithError(err).Warn("failed to record data access volume")
		return 0
	}

	if fire {
		a := alert.NewSecurityAlert(alert.TypeExcessiveDataAccess, map[string]any{
			alert.PayloadActor:       actorID,
			alert.PayloadResourceTag: resourceTag,
			alert.PayloadTotal:       total,
		}, now)
		if id, err := m.alerts.Publish(ctx, a); err != nil && id == "" {
			m.logger.WithField("actor", actorID).WithError(err).Error("failed to publish data access alert")
		}
	}
	return total
}

func (m *monitor) Total(ctx context.Context, actorID string, resourceTag string) (int64, error) {
	data, err := m.store.Get(ctx, counterKey(actorID, resourceTag))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	rec := decodeCounter(data, true)
	if !rec.current(m.clock(), m.cfg.Period) {
		return 0, nil
	}
	return rec.Total, nil
}

func decodeCounter(data []byte, found bool) counterRecord {
	var rec counterRecord
	if !found {
		return rec
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return counterRecord{}
	}
	return rec
}
