package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/resilience"
)

type breakerStore struct {
	next    Store
	breaker resilience.CircuitBreaker
}

// WithCircuitBreaker short-circuits calls to next while its backend keeps
// failing, so an unreachable store costs callers nothing but an error.
func WithCircuitBreaker(next Store, breaker resilience.CircuitBreaker) Store {
	return &breakerStore{next: next, breaker: breaker}
}

func (s *breakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.execute(func() error {
		var err error
		value, err = s.next.Get(ctx, key)
		return err
	})
	return value, err
}

func (s *breakerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.execute(func() error {
		return s.next.Set(ctx, key, value, ttl)
	})
}

func (s *breakerStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var ok bool
	err := s.execute(func() error {
		var err error
		ok, err = s.next.SetNX(ctx, key, value, ttl)
		return err
	})
	return ok, err
}

func (s *breakerStore) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := s.execute(func() error {
		var err error
		ok, err = s.next.Exists(ctx, key)
		return err
	})
	return ok, err
}

func (s *breakerStore) Delete(ctx context.Context, keys ...string) error {
	return s.execute(func() error {
		return s.next.Delete(ctx, keys...)
	})
}

func (s *breakerStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) ([]byte, error) {
	var value []byte
	err := s.execute(func() error {
		var err error
		value, err = s.next.Update(ctx, key, ttl, fn)
		return err
	})
	return value, err
}

func (s *breakerStore) PushCapped(ctx context.Context, key string, value []byte, capacity int) error {
	return s.execute(func() error {
		return s.next.PushCapped(ctx, key, value, capacity)
	})
}

func (s *breakerStore) Range(ctx context.Context, key string, limit int) ([][]byte, error) {
	var values [][]byte
	err := s.execute(func() error {
		var err error
		values, err = s.next.Range(ctx, key, limit)
		return err
	})
	return values, err
}

func (s *breakerStore) execute(fn func() error) error {
	err := s.breaker.Execute(fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, resilience.ErrOpen) && !errors.Is(err, domain.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}

// NewBreaker builds the breaker used in front of the shared store. Missing keys
// and write contention are normal outcomes and never trip it.
func NewBreaker(timeout time.Duration, maxFailures uint32) resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker("security-store", timeout, maxFailures, ErrNotFound, ErrConflict)
}
