package bruteforce_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	appAlert "github.com/NeuralTrust/TrustSentinel/pkg/app/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/app/bruteforce"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/repository"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/store"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/store/storetest"
	"github.com/NeuralTrust/TrustSentinel/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const origin = "203.0.113.9"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func defaultConfig() bruteforce.Config {
	return bruteforce.Config{
		Window:    15 * time.Minute,
		Threshold: 5,
		BlockTTL:  time.Hour,
	}
}

func newGuard(t *testing.T, kv store.Store, clock *storetest.Clock, cfg bruteforce.Config) (bruteforce.Guard, appAlert.Store) {
	t.Helper()
	alerts, err := appAlert.NewStore(
		repository.NewAlertRepository(kv),
		appAlert.Config{TTL: 24 * time.Hour, FeedSize: 100},
		quietLogger(),
		appAlert.WithClock(clock.Now),
	)
	require.NoError(t, err)
	g, err := bruteforce.NewGuard(kv, alerts, cfg, quietLogger(), clock.Now)
	require.NoError(t, err)
	return g, alerts
}

func TestNewGuard_ValidatesConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.BlockTTL = 0
	_, err := bruteforce.NewGuard(store.NewMemoryStore(), nil, cfg, quietLogger(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	cfg = defaultConfig()
	cfg.Threshold = 0
	_, err = bruteforce.NewGuard(store.NewMemoryStore(), nil, cfg, quietLogger(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestGuard_BlocksAtThresholdAndAlertsOnce(t *testing.T) {
	clock := storetest.NewClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	g, alerts := newGuard(t, storetest.NewMemory(clock), clock, defaultConfig())
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		assert.Equal(t, i, g.RecordFailure(ctx, origin))
		assert.False(t, g.IsBlocked(ctx, origin), "not blocked before the threshold")
		clock.Advance(10 * time.Second)
	}

	assert.Equal(t, 5, g.RecordFailure(ctx, origin))
	assert.True(t, g.IsBlocked(ctx, origin))

	assert.Equal(t, 6, g.RecordFailure(ctx, origin))
	assert.True(t, g.IsBlocked(ctx, origin))
	assert.Equal(t, 6, g.CheckBruteForceAttempts(ctx, origin))

	recent, err := alerts.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, alert.TypeBruteForceDetected, recent[0].AlertType)
	assert.Equal(t, origin, recent[0].Payload[alert.PayloadOrigin])
	assert.EqualValues(t, 5, recent[0].Payload[alert.PayloadCount])
}

func TestGuard_BlockExpires(t *testing.T) {
	clock := storetest.NewClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	g, _ := newGuard(t, storetest.NewMemory(clock), clock, defaultConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		g.RecordFailure(ctx, origin)
	}
	require.True(t, g.IsBlocked(ctx, origin))

	clock.Advance(61 * time.Minute)
	assert.False(t, g.IsBlocked(ctx, origin))
	assert.Zero(t, g.CheckBruteForceAttempts(ctx, origin))
}

func TestGuard_FailuresOutsideWindowDoNotCount(t *testing.T) {
	clock := storetest.NewClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	g, _ := newGuard(t, storetest.NewMemory(clock), clock, defaultConfig())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		g.RecordFailure(ctx, origin)
		clock.Advance(5 * time.Minute)
	}
	// the first failure has left the 15 minute window
	assert.Equal(t, 4, g.RecordFailure(ctx, origin))
	assert.False(t, g.IsBlocked(ctx, origin))
}

func TestGuard_OriginsAreIndependent(t *testing.T) {
	clock := storetest.NewClock(time.Now())
	g, _ := newGuard(t, storetest.NewMemory(clock), clock, defaultConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		g.RecordFailure(ctx, origin)
	}
	assert.True(t, g.IsBlocked(ctx, origin))
	assert.False(t, g.IsBlocked(ctx, "198.51.100.1"))
	assert.Zero(t, g.CheckBruteForceAttempts(ctx, "198.51.100.1"))
}

func TestGuard_Reset(t *testing.T) {
	clock := storetest.NewClock(time.Now())
	g, alerts := newGuard(t, storetest.NewMemory(clock), clock, defaultConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		g.RecordFailure(ctx, origin)
	}
	require.NoError(t, g.Reset(ctx, origin))

	assert.False(t, g.IsBlocked(ctx, origin))
	assert.Zero(t, g.CheckBruteForceAttempts(ctx, origin))

	// a fresh episode alerts again
	for i := 0; i < 5; i++ {
		g.RecordFailure(ctx, origin)
	}
	recent, err := alerts.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestGuard_ConcurrentFailuresAreAllCounted(t *testing.T) {
	clock := storetest.NewClock(time.Now())
	g, alerts := newGuard(t, storetest.NewMemory(clock), clock, defaultConfig())
	ctx := context.Background()

	var eg errgroup.Group
	for i := 0; i < 40; i++ {
		eg.Go(func() error {
			g.RecordFailure(ctx, origin)
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, 40, g.CheckBruteForceAttempts(ctx, origin))
	recent, err := alerts.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestGuard_StoreUnavailable(t *testing.T) {
	clock := storetest.NewClock(time.Now())
	ctx := context.Background()

	open, _ := newGuard(t, storetest.Unavailable{}, clock, defaultConfig())
	assert.Zero(t, open.RecordFailure(ctx, origin))
	assert.False(t, open.IsBlocked(ctx, origin))
	assert.Zero(t, open.CheckBruteForceAttempts(ctx, origin))
	assert.ErrorIs(t, open.Reset(ctx, origin), domain.ErrStoreUnavailable)

	cfg := defaultConfig()
	cfg.FailClosed = true
	closed, _ := newGuard(t, storetest.Unavailable{}, clock, cfg)
	assert.True(t, closed.IsBlocked(ctx, origin))
}

func TestGuard_SustainedFailuresKeepRecordBounded(t *testing.T) {
	clock := storetest.NewClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	kv := storetest.NewMemory(clock)
	g, alerts := newGuard(t, kv, clock, defaultConfig())
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		g.RecordFailure(ctx, origin)
		clock.Advance(200 * time.Millisecond)
	}

	raw, err := kv.Get(ctx, fmt.Sprintf(bruteforce.AttemptsKeyPattern, origin))
	require.NoError(t, err)
	var rec struct {
		Buckets []json.RawMessage `json:"buckets"`
	}
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.LessOrEqual(t, len(rec.Buckets), utils.WindowBuckets+1)
	assert.Less(t, len(raw), 1024)

	// five failures a second over the 15 minute window
	count := g.CheckBruteForceAttempts(ctx, origin)
	assert.GreaterOrEqual(t, count, 4500)
	assert.LessOrEqual(t, count, 4950)

	recent, err := alerts.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
