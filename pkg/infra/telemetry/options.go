package telemetry

import "github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"

// SinkLocatorOption is a function that configures a SinkLocator
type SinkLocatorOption func(*SinkLocator)

// WithSink registers a base sink with the given name
func WithSink(name string, sink alert.Sink) SinkLocatorOption {
	return func(sl *SinkLocator) {
		if sl.sinks == nil {
			sl.sinks = make(map[string]alert.Sink)
		}
		sl.sinks[name] = sink
	}
}
