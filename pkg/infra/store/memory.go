package store

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/utils"
)

const stripeCount = 64

// TTLEntry represents a value held by the memory store
type TTLEntry struct {
	Value     []byte
	ExpiresAt time.Time
}

func (e *TTLEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

type MemoryOption func(*MemoryStore)

func WithClock(clock utils.Clock) MemoryOption {
	return func(s *MemoryStore) {
		s.clock = utils.ClockOrDefault(clock)
	}
}

// MemoryStore is a process-local Store. Writers to the same key are
// serialized by a striped lock, so Update is atomic per key while unrelated
// keys proceed in parallel. Expired entries are dropped lazily on access and
// by Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]*TTLEntry
	listMu  sync.RWMutex
	lists   map[string][][]byte
	stripes [stripeCount]sync.Mutex
	clock   utils.Clock
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		data:  make(map[string]*TTLEntry),
		lists: make(map[string][][]byte),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, found := s.load(key)
	if !found {
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()
	s.put(key, value, ttl)
	return nil
}

func (s *MemoryStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()
	if _, found := s.load(key); found {
		return false, nil
	}
	s.put(key, value, ttl)
	return true, nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, found := s.load(key)
	return found, nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range keys {
		lock := s.lockFor(key)
		lock.Lock()
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		lock.Unlock()

		s.listMu.Lock()
		delete(s.lists, key)
		s.listMu.Unlock()
	}
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	current, found := s.load(key)
	next, err := fn(current, found)
	if err != nil {
		return nil, err
	}
	if next == nil {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return nil, nil
	}
	s.put(key, next, ttl)
	return next, nil
}

func (s *MemoryStore) PushCapped(ctx context.Context, key string, value []byte, capacity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if capacity <= 0 {
		return nil
	}
	s.listMu.Lock()
	defer s.listMu.Unlock()

	items := s.lists[key]
	next := make([][]byte, 0, min(len(items)+1, capacity))
	next = append(next, append([]byte(nil), value...))
	for _, item := range items {
		if len(next) >= capacity {
			break
		}
		next = append(next, item)
	}
	s.lists[key] = next
	return nil
}

func (s *MemoryStore) Range(ctx context.Context, key string, limit int) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.listMu.RLock()
	defer s.listMu.RUnlock()

	items := s.lists[key]
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	out := make([][]byte, limit)
	copy(out, items[:limit])
	return out, nil
}

// Sweep removes every expired entry and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.data {
		if e.expired(now) {
			delete(s.data, key)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired entries every interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

func (s *MemoryStore) load(key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok || e.expired(s.clock()) {
		return nil, false
	}
	return append([]byte(nil), e.Value...), true
}

func (s *MemoryStore) put(key string, value []byte, ttl time.Duration) {
	e := &TTLEntry{Value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.ExpiresAt = s.clock().Add(ttl)
	}
	s.mu.Lock()
	s.data[key] = e
	s.mu.Unlock()
}

func (s *MemoryStore) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.stripes[h.Sum32()%stripeCount]
}
