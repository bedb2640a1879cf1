package alert

import (
	"context"
	"time"
)

type Repository interface {
	// Create stores a under its id for ttl. It fails with
	// domain.ErrDuplicateAlertID when the id is taken and never overwrites.
	Create(ctx context.Context, a *SecurityAlert, ttl time.Duration) error
	FindByID(ctx context.Context, id string) (*SecurityAlert, error)
	PushRecent(ctx context.Context, a *SecurityAlert, capacity int) error
	ListRecent(ctx context.Context, limit int) ([]SecurityAlert, error)
}
