package bruteforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	appAlert "github.com/NeuralTrust/TrustSentinel/pkg/app/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/prometheus"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/store"
	"github.com/NeuralTrust/TrustSentinel/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	AttemptsKeyPattern = "bruteforce:%s:attempts"
	BlockedKeyPattern  = "bruteforce:%s:blocked"
	detectorName       = "bruteforce"
)

type Config struct {
	Window    time.Duration
	Threshold int
	BlockTTL  time.Duration
	// FailClosed makes IsBlocked report true when the store cannot answer.
	FailClosed bool
}

func (c Config) Validate() error {
	if c.Window <= 0 {
		return domain.NewConfigError("bruteforce.window", "must be positive")
	}
	if c.Threshold <= 0 {
		return domain.NewConfigError("bruteforce.threshold", "must be positive")
	}
	if c.BlockTTL <= 0 {
		return domain.NewConfigError("bruteforce.block_ttl", "must be positive")
	}
	return nil
}

type Guard interface {
	// RecordFailure registers a failed authentication from ip and returns the
	// number of failures in the trailing window, or 0 if it could not be
	// recorded.
	RecordFailure(ctx context.Context, ip string) int
	IsBlocked(ctx context.Context, ip string) bool
	CheckBruteForceAttempts(ctx context.Context, ip string) int
	// Reset clears the failure history and any block for ip.
	Reset(ctx context.Context, ip string) error
}

type attemptsRecord struct {
	Buckets []utils.Bucket `json:"buckets"`
	Alerted bool           `json:"alerted"`
}

type guard struct {
	store  store.Store
	alerts appAlert.Store
	cfg    Config
	window utils.SlidingWindow
	logger *logrus.Logger
	clock  utils.Clock
}

func NewGuard(
	s store.Store,
	alerts appAlert.Store,
	cfg Config,
	logger *logrus.Logger,
	clock utils.Clock,
) (Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &guard{
		store:  s,
		alerts: alerts,
		cfg:    cfg,
		window: utils.NewSlidingWindow(cfg.Window),
		logger: logger,
		clock:  utils.ClockOrDefault(clock),
	}, nil
}

func (g *guard) RecordFailure(ctx context.Context, ip string) int {
	if ip == "" {
		return 0
	}
	defer prometheus.ObserveDetectorLatency(detectorName, time.Now())

	now := g.clock()
	var (
		count int
		fire  bool
	)
	_, err := g.store.Update(ctx, fmt.Sprintf(AttemptsKeyPattern, ip), g.window.TTL(),
		func(current []byte, found bool) ([]byte, error) {
			rec := decodeAttempts(current, found)
			rec.Buckets, count = g.window.Add(rec.Buckets, now, 1)
			fire = false
			if count >= g.cfg.Threshold {
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
		prometheus.StoreDegradedTotal.WithLabelValues("bruteforce_record").Inc()
		g.logger.WithField("origin", ip).WithError(err).Warn("failed to record authentication failure")
		return 0
	}

	if count < g.cfg.Threshold {
		return count
	}

	// every failure at or above the threshold extends the block
	if err := g.store.Set(ctx, fmt.Sprintf(BlockedKeyPattern, ip), []byte(strconv.Itoa(count)), g.cfg.BlockTTL); err != nil {
		prometheus.StoreDegradedTotal.WithLabelValues("bruteforce_block").Inc()
		g.logger.WithField("origin", ip).WithError(err).Error("failed to block origin")
	}

	if fire {
		prometheus.OriginsBlockedTotal.Inc()
		g.logger.WithFields(logrus.Fields{
			"origin":    ip,
			"failures":  count,
			"block_ttl": g.cfg.BlockTTL.String(),
		}).Warn("origin blocked after repeated authentication failures")

		a := alert.NewSecurityAlert(alert.TypeBruteForceDetected, map[string]any{
			alert.PayloadOrigin: ip,
			alert.PayloadCount:  int64(count),
		}, now)
		if id, err := g.alerts.Publish(ctx, a); err != nil && id == "" {
			g.logger.WithField("origin", ip).WithError(err).Error("failed to publish brute force alert")
		}
	}
	return count
}

func (g *guard) IsBlocked(ctx context.Context, ip string) bool {
	if ip == "" {
		return false
	}
	blocked, err := g.store.Exists(ctx, fmt.Sprintf(BlockedKeyPattern, ip))
	if err != nil {
		prometheus.StoreDegradedTotal.WithLabelValues("bruteforce_check").Inc()
		g.logger.WithFields(logrus.Fields{
			"origin":      ip,
			"fail_closed": g.cfg.FailClosed,
		}).WithError(err).Warn("could not check origin block")
		return g.cfg.FailClosed
	}
	return blocked
}

func (g *guard) CheckBruteForceAttempts(ctx context.Context, ip string) int {
	if ip == "" {
		return 0
	}
	data, err := g.store.Get(ctx, fmt.Sprintf(AttemptsKeyPattern, ip))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			prometheus.StoreDegradedTotal.WithLabelValues("bruteforce_attempts").Inc()
			g.logger.WithField("origin", ip).WithError(err).Warn("could not read authentication failures")
		}
		return 0
	}
	rec := decodeAttempts(data, true)
	return g.window.Count(rec.Buckets, g.clock())
}

func (g *guard) Reset(ctx context.Context, ip string) error {
	if err := g.store.Delete(ctx,
		fmt.Sprintf(AttemptsKeyPattern, ip),
		fmt.Sprintf(BlockedKeyPattern, ip),
	); err != nil {
		return fmt.Errorf("failed to reset origin %s: %w", ip, err)
	}
	g.logger.WithField("origin", ip).Info("brute force history reset")
	return nil
}

func decodeAttempts(data []byte, found bool) attemptsRecord {
	var rec attemptsRecord
	if !found {
		return rec
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return attemptsRecord{}
	}
	return rec
}
