// Package storetest provides store doubles for tests of components built on
// store.Store.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/store"
)

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewMemory returns an in-memory store driven by clock.
func NewMemory(clock *Clock) *store.MemoryStore {
	return store.NewMemoryStore(store.WithClock(clock.Now))
}

// Unavailable fails every operation with domain.ErrStoreUnavailable.
type Unavailable struct{}

var _ store.Store = Unavailable{}

func (Unavailable) Get(context.Context, string) ([]byte, error) {
	return nil, domain.ErrStoreUnavailable
}

func (Unavailable) Set(context.Context, string, []byte, time.Duration) error {
	return domain.ErrStoreUnavailable
}

func (Unavailable) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, domain.ErrStoreUnavailable
}

func (Unavailable) Exists(context.Context, string) (bool, error) {
	return false, domain.ErrStoreUnavailable
}

func (Unavailable) Delete(context.Context, ...string) error {
	return domain.ErrStoreUnavailable
}

func (Unavailable) Update(context.Context, string, time.Duration, store.UpdateFunc) ([]byte, error) {
	return nil, domain.ErrStoreUnavailable
}

func (Unavailable) PushCapped(context.Context, string, []byte, int) error {
	return domain.ErrStoreUnavailable
}

func (Unavailable) Range(context.Context, string, int) ([][]byte, error) {
	return nil, domain.ErrStoreUnavailable
}
