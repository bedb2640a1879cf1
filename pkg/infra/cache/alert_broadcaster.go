package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
	"github.com/go-redis/redis/v8"
	"github.com/mitchellh/mapstructure"
)

const (
	BroadcasterName       = "redis"
	DefaultAlertChannel   = "trustsentinel:alerts"
	AlertPublishedMessage = "alert.published"
)

// AlertMessage is the envelope published on the alert channel. AlertType is
// repeated at the top level so subscribers can filter without decoding the
// alert.
type AlertMessage struct {
	Type      string              `json:"type"`
	AlertType alert.Type          `json:"alert_type"`
	Alert     alert.SecurityAlert `json:"alert"`
}

type BroadcasterConfig struct {
	Channel string `mapstructure:"channel"`
}

// AlertBroadcaster fans published alerts out over Redis pub/sub so other
// processes sharing the alert feed can react without polling.
type AlertBroadcaster struct {
	client  *redis.Client
	channel string
}

func NewAlertBroadcaster(client *redis.Client) *AlertBroadcaster {
	return &AlertBroadcaster{
		client:  client,
		channel: DefaultAlertChannel,
	}
}

func (b *AlertBroadcaster) Name() string {
	return BroadcasterName
}

func (b *AlertBroadcaster) ValidateConfig(settings map[string]interface{}) error {
	var conf BroadcasterConfig
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return fmt.Errorf("invalid redis broadcast config: %w", err)
	}
	if b.client == nil {
		return errors.New("redis broadcast requires a redis client")
	}
	return nil
}

func (b *AlertBroadcaster) WithSettings(settings map[string]interface{}) (alert.Sink, error) {
	var conf BroadcasterConfig
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return nil, fmt.Errorf("invalid redis broadcast config: %w", err)
	}
	if conf.Channel == "" {
		conf.Channel = DefaultAlertChannel
	}
	return &AlertBroadcaster{
		client:  b.client,
		channel: conf.Channel,
	}, nil
}

func (b *AlertBroadcaster) Handle(ctx context.Context, a alert.SecurityAlert) error {
	data, err := json.Marshal(AlertMessage{
		Type:      AlertPublishedMessage,
		AlertType: a.AlertType,
		Alert:     a,
	})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Close is a no-op: the client is owned by the caller.
func (b *AlertBroadcaster) Close() {}
