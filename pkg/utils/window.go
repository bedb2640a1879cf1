package utils

import "time"

// WindowBuckets is the number of slots a sliding window is split into.
const WindowBuckets = 10

// Clock returns the current time. Components take one so tests can pin time.
type Clock func() time.Time

func ClockOrDefault(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// WindowStart is the oldest instant still inside a trailing window ending at now.
func WindowStart(now time.Time, window time.Duration) time.Time {
	return now.Add(-window)
}

// Bucket counts the events that landed in one slot of a sliding window.
// Start is the slot's aligned start in unix nanoseconds.
type Bucket struct {
	Start int64 `json:"s"`
	Count int   `json:"c"`
}

// SlidingWindow counts events over a trailing window at bucket resolution.
// A bucket stays live while any part of it overlaps the window, so a pruned
// record never holds more than WindowBuckets+1 entries.
type SlidingWindow struct {
	window time.Duration
	width  time.Duration
}

func NewSlidingWindow(window time.Duration) SlidingWindow {
	width := window / WindowBuckets
	if width <= 0 {
		width = 1
	}
	return SlidingWindow{window: window, width: width}
}

// TTL covers the oldest bucket that can still overlap the window.
func (w SlidingWindow) TTL() time.Duration {
	return w.window + w.width
}

func (w SlidingWindow) slot(now time.Time) int64 {
	n, width := now.UnixNano(), int64(w.width)
	start := n - n%width
	if n%width < 0 {
		start -= width
	}
	return start
}

func (w SlidingWindow) live(b Bucket, now time.Time) bool {
	return b.Start+int64(w.width) > WindowStart(now, w.window).UnixNano()
}

// Add drops expired buckets, records n events at now and returns the
// updated buckets with the live total. It reuses the input slice.
func (w SlidingWindow) Add(buckets []Bucket, now time.Time, n int) ([]Bucket, int) {
	start := w.slot(now)
	kept := buckets[:0]
	total := 0
	added := false
	for _, b := range buckets {
		if !w.live(b, now) {
			continue
		}
		if b.Start == start {
			b.Count += n
			added = true
		}
		kept = append(kept, b)
		total += b.Count
	}
	if !added {
		kept = append(kept, Bucket{Start: start, Count: n})
		total += n
	}
	return kept, total
}

func (w SlidingWindow) Count(buckets []Bucket, now time.Time) int {
	total := 0
	for _, b := range buckets {
		if w.live(b, now) {
			total += b.Count
		}
	}
	return total
}
