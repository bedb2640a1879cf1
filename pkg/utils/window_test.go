package utils_test

import (
	"testing"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestSlidingWindow_AddAndCount(t *testing.T) {
	w := utils.NewSlidingWindow(10 * time.Second)
	now := time.Unix(1740730530, 0)

	var buckets []utils.Bucket
	var total int
	for i := 0; i < 5; i++ {
		buckets, total = w.Add(buckets, now.Add(time.Duration(i)*time.Second), 1)
	}
	assert.Equal(t, 5, total)
	assert.Len(t, buckets, 5)

	buckets, total = w.Add(buckets, now.Add(4*time.Second), 3)
	assert.Equal(t, 8, total)
	assert.Len(t, buckets, 5)

	assert.Equal(t, 8, w.Count(buckets, now.Add(10*time.Second)))
	assert.Equal(t, 7, w.Count(buckets, now.Add(11*time.Second)))
	assert.Zero(t, w.Count(buckets, now.Add(15*time.Second)))
}

func TestSlidingWindow_DropsExpiredBuckets(t *testing.T) {
	w := utils.NewSlidingWindow(10 * time.Second)
	now := time.Unix(1740730530, 0)

	buckets, _ := w.Add(nil, now, 4)
	buckets, total := w.Add(buckets, now.Add(11*time.Second), 1)

	assert.Equal(t, 1, total)
	assert.Len(t, buckets, 1)
}

func TestSlidingWindow_StaysBounded(t *testing.T) {
	w := utils.NewSlidingWindow(time.Minute)
	now := time.Unix(1740730500, 0)

	var buckets []utils.Bucket
	var total int
	for i := 0; i < 10000; i++ {
		buckets, total = w.Add(buckets, now.Add(time.Duration(i)*100*time.Millisecond), 1)
		assert.LessOrEqual(t, len(buckets), utils.WindowBuckets+1)
	}
	// ten events a second over a minute, plus the partial oldest bucket
	assert.GreaterOrEqual(t, total, 600)
	assert.LessOrEqual(t, total, 660)
}

func TestSlidingWindow_TTL(t *testing.T) {
	w := utils.NewSlidingWindow(15 * time.Minute)
	assert.Equal(t, 15*time.Minute+90*time.Second, w.TTL())
}

func TestClockOrDefault(t *testing.T) {
	fixed := time.Unix(100, 0)
	assert.Equal(t, fixed, utils.ClockOrDefault(func() time.Time { return fixed })())
	assert.NotNil(t, utils.ClockOrDefault(nil))
}
