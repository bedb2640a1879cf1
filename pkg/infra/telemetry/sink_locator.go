package telemetry

import (
	"fmt"

	"github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
)

type SinkLocator struct {
	sinks map[string]alert.Sink
}

func NewSinkLocator(opts ...SinkLocatorOption) *SinkLocator {
	sl := &SinkLocator{
		sinks: make(map[string]alert.Sink),
	}
	for _, opt := range opts {
		opt(sl)
	}
	return sl
}

func (p *SinkLocator) GetSink(cfg alert.SinkConfig) (alert.Sink, error) {
	base, ok := p.sinks[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("unknown sink: %s", cfg.Name)
	}
	if err := base.ValidateConfig(cfg.Settings); err != nil {
		return nil, err
	}
	sink, err := base.WithSettings(cfg.Settings)
	if err != nil {
		return nil, err
	}
	return sink, nil
}

// Build resolves every config into a ready sink. Sinks built before a
// failure are closed.
func (p *SinkLocator) Build(cfgs []alert.SinkConfig) ([]alert.Sink, error) {
	sinks := make([]alert.Sink, 0, len(cfgs))
	for _, cfg := range cfgs {
		sink, err := p.GetSink(cfg)
		if err != nil {
			for _, s := range sinks {
				s.Close()
			}
			return nil, fmt.Errorf("sink %s: %w", cfg.Name, err)
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

func (p *SinkLocator) ValidateSink(cfg alert.SinkConfig) error {
	base, ok := p.sinks[cfg.Name]
	if !ok {
		return fmt.Errorf("unknown sink: %s", cfg.Name)
	}
	return base.ValidateConfig(cfg.Settings)
}
