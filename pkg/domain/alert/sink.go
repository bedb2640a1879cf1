package alert

import "context"

// Sink delivers published alerts to a downstream consumer. A configured sink
// is obtained from a base sink through WithSettings.
type Sink interface {
	Name() string
	ValidateConfig(settings map[string]interface{}) error
	WithSettings(settings map[string]interface{}) (Sink, error)
	Handle(ctx context.Context, a SecurityAlert) error
	Close()
}

type SinkConfig struct {
	Name     string                 `mapstructure:"name"`
	Settings map[string]interface{} `mapstructure:"settings"`
}
