package activity

import (
	"context"
	"time"
)

type Repository interface {
	// Append adds evt to the session ledger, evicting the oldest entries so
	// at most capacity remain, and returns the resulting ledger length.
	Append(ctx context.Context, sessionID string, evt Event, capacity int, ttl time.Duration) (int, error)
	// List returns the session ledger in insertion order, newest last.
	List(ctx context.Context, sessionID string) ([]Event, error)
	Delete(ctx context.Context, sessionID string) error
}
