package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrConflict = errors.New("too many concurrent writers for key")
)

// UpdateFunc receives the current value of a key (found is false when the key
// is absent or expired) and returns the value to write back. Returning a nil
// value deletes the key. The function may run more than once when a backend
// retries on contention, so it must not have side effects.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error

	// Update is an atomic read-modify-write of a single key. A positive ttl
	// is (re)applied on every write.
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) ([]byte, error)

	// PushCapped prepends value to the list at key and trims it to capacity,
	// dropping the oldest items. A non-positive capacity stores nothing.
	PushCapped(ctx context.Context, key string, value []byte, capacity int) error
	// Range returns up to limit items of the list at key, newest first.
	// A non-positive limit returns the whole list.
	Range(ctx context.Context, key string, limit int) ([][]byte, error)
}
