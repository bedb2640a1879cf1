package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/store"
)

const (
	AlertKeyPattern = "alert:%s"
	RecentAlertsKey = "alerts:recent"
)

type AlertRepository struct {
	store store.Store
}

func NewAlertRepository(s store.Store) alert.Repository {
	return &AlertRepository{
		store: s,
	}
}

func (r *AlertRepository) Create(ctx context.Context, a *alert.SecurityAlert, ttl time.Duration) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	created, err := r.store.SetNX(ctx, fmt.Sprintf(AlertKeyPattern, a.ID), data, ttl)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAlertID, a.ID)
	}
	return nil
}

func (r *AlertRepository) FindByID(ctx context.Context, id string) (*alert.SecurityAlert, error) {
	data, err := r.store.Get(ctx, fmt.Sprintf(AlertKeyPattern, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAlertNotFound, id)
		}
		return nil, err
	}
	a, err := alert.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
	}
	return a, nil
}

func (r *AlertRepository) PushRecent(ctx context.Context, a *alert.SecurityAlert, capacity int) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	return r.store.PushCapped(ctx, RecentAlertsKey, data, capacity)
}

func (r *AlertRepository) ListRecent(ctx context.Context, limit int) ([]alert.SecurityAlert, error) {
	items, err := r.store.Range(ctx, RecentAlertsKey, limit)
	if err != nil {
		return nil, err
	}
	alerts := make([]alert.SecurityAlert, 0, len(items))
	for _, item := range items {
		a, err := alert.Decode(item)
		if err != nil {
			continue
		}
		alerts = append(alerts, *a)
	}
	return alerts, nil
}
