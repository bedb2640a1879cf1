package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/domain/alert"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultQueueSize   = 1000
	defaultSinkTimeout = 5 * time.Second
)

type Dispatcher interface {
	Dispatch(a alert.SecurityAlert)
	StartWorkers(n int)
	Shutdown()
}

type DispatcherOption func(*worker)

func WithQueueSize(n int) DispatcherOption {
	return func(w *worker) {
		if n > 0 {
			w.taskChan = make(chan func(), n)
		}
	}
}

func WithSinkTimeout(d time.Duration) DispatcherOption {
	return func(w *worker) {
		if d > 0 {
			w.sinkTimeout = d
		}
	}
}

type worker struct {
	logger      *logrus.Logger
	sinks       []alert.Sink
	taskChan    chan func()
	sinkTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closed      atomic.Bool
	wg          sync.WaitGroup
}

// NewDispatcher delivers alerts to sinks off the publishing path. Tasks are
// dropped when the queue is full.
func NewDispatcher(logger *logrus.Logger, sinks []alert.Sink, opts ...DispatcherOption) Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{
		logger:      logger,
		sinks:       sinks,
		taskChan:    make(chan func(), defaultQueueSize),
		sinkTimeout: defaultSinkTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *worker) StartWorkers(n int) {
	if n <= 0 {
		n = 1
	}
	w.logger.WithField("workers", n).Info("starting alert sink workers")
	for i := 0; i < n; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case task, ok := <-w.taskChan:
					if !ok {
						return
					}
					task()
				case <-w.ctx.Done():
					return
				}
			}
		}()
	}
}

func (w *worker) Dispatch(a alert.SecurityAlert) {
	if len(w.sinks) == 0 {
		return
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed.Load() {
		return
	}
	select {
	case w.taskChan <- func() { w.deliver(a) }:
	default:
		w.logger.WithFields(logrus.Fields{
			"alert_id":   a.ID,
			"alert_type": a.AlertType,
		}).Warn("alert sink queue is full, dropping delivery")
	}
}

func (w *worker) deliver(a alert.SecurityAlert) {
	ctx, cancel := context.WithTimeout(w.ctx, w.sinkTimeout)
	defer cancel()

	var g errgroup.Group
	for _, sink := range w.sinks {
		sink := sink
		g.Go(func() error {
			if err := sink.Handle(ctx, a); err != nil {
				prometheus.AlertSinkFailuresTotal.WithLabelValues(sink.Name()).Inc()
				w.logger.WithFields(logrus.Fields{
					"sink":     sink.Name(),
					"alert_id": a.ID,
				}).WithError(err).Error("alert sink failed")
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.logger.WithField("alert_id", a.ID).Warn("alert delivered with sink failures")
	}
}

// Shutdown stops accepting alerts, lets workers drain queued deliveries and
// closes every sink.
func (w *worker) Shutdown() {
	w.mu.Lock()
	if !w.closed.CompareAndSwap(false, true) {
		w.mu.Unlock()
		return
	}
	close(w.taskChan)
	w.mu.Unlock()

	w.logger.Info("shutting down alert sink workers")
	w.wg.Wait()
	w.cancel()
	for _, sink := range w.sinks {
		sink.Close()
	}
	w.logger.Info("alert sink workers stopped")
}
