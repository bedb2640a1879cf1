package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/domain/activity"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/store"
)

const (
	ActivityLedgerKeyPattern = "activity:session:%s"
)

type ActivityRepository struct {
	store store.Store
}

func NewActivityRepository(s store.Store) activity.Repository {
	return &ActivityRepository{
		store: s,
	}
}

func (r *ActivityRepository) Append(
	ctx context.Context,
	sessionID string,
	evt activity.Event,
	capacity int,
	ttl time.Duration,
) (int, error) {
	key := fmt.Sprintf(ActivityLedgerKeyPattern, sessionID)
	var length int
	_, err := r.store.Update(ctx, key, ttl, func(current []byte, found bool) ([]byte, error) {
		var ledger []activity.Event
		if found {
			if err := json.Unmarshal(current, &ledger); err != nil {
				// a corrupt ledger is replaced rather than blocking new events
				ledger = nil
			}
		}
		ledger = append(ledger, evt)
		if overflow := len(ledger) - capacity; overflow > 0 {
			ledger = ledger[overflow:]
		}
		length = len(ledger)
		return json.Marshal(ledger)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to append activity: %w", err)
	}
	return length, nil
}

func (r *ActivityRepository) List(ctx context.Context, sessionID string) ([]activity.Event, error) {
	key := fmt.Sprintf(ActivityLedgerKeyPattern, sessionID)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []activity.Event{}, nil
		}
		return nil, err
	}
	var ledger []activity.Event
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity ledger: %w", err)
	}
	return ledger, nil
}

func (r *ActivityRepository) Delete(ctx context.Context, sessionID string) error {
	return r.store.Delete(ctx, fmt.Sprintf(ActivityLedgerKeyPattern, sessionID))
}
