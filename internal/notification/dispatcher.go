package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DispatchMetrics receives delivery counters. Implemented by telemetry.Metrics.
type DispatchMetrics interface {
	RecordNotification(ctx context.Context, sink, outcome string)
	RecordNotificationDropped(ctx context.Context, event string)
}

// Dispatcher is the in-process Notifier. Enqueue never blocks: intents go
// onto a bounded queue that a fixed pool of workers drains into every sink.
type Dispatcher struct {
	queue   chan Intent
	sinks   []Sink
	workers int
	timeout time.Duration
	metrics DispatchMetrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	once   sync.Once
}

type DispatcherOption func(*Dispatcher)

// WithDeliveryTimeout bounds each sink call. Defaults to 10s.
func WithDeliveryTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.timeout = d }
}

func WithMetrics(m DispatchMetrics) DispatcherOption {
	return func(disp *Dispatcher) { disp.metrics = m }
}

func NewDispatcher(queueSize, workers int, sinks []Sink, opts ...DispatcherOption) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		queue:   make(chan Intent, queueSize),
		sinks:   sinks,
		workers: workers,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ Notifier = (*Dispatcher)(nil)

// Start launches the workers. They run until Close.
func (d *Dispatcher) Start() {
	d.once.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.run(i)
		}
		log.Info().Int("workers", d.workers).Int("queue_size", cap(d.queue)).Int("sinks", len(d.sinks)).Msg("notification dispatcher started")
	})
}

// Enqueue hands intent to the workers. It returns ErrQueueFull instead of
// waiting when the queue has no room.
func (d *Dispatcher) Enqueue(ctx context.Context, intent Intent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- intent:
		return nil
	default:
		if d.metrics != nil {
			d.metrics.RecordNotificationDropped(ctx, string(intent.Event))
		}
		log.Warn().
			Str("event", string(intent.Event)).
			Int64("user_id", intent.Recipient.UserID).
			Msg("notification queue full, dropping intent")
		return ErrQueueFull
	}
}

// Close stops accepting intents and waits for queued ones to be delivered
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("notification dispatcher drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(worker int) {
	defer d.wg.Done()
	for intent := range d.queue {
		d.deliver(intent, worker)
	}
}

// deliver fans one intent out to every sink. A failing sink does not stop
// the others.
func (d *Dispatcher) deliver(intent Intent, worker int) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := sink.Deliver(ctx, intent)
		cancel()

		outcome := "success"
		if err != nil {
			outcome = "error"
			log.Error().Err(err).
				Str("sink", sink.Name()).
				Str("event", string(intent.Event)).
				Str("intent_id", intent.ID).
				Int("worker", worker).
				Msg("notification delivery failed")
		}
		if d.metrics != nil {
			d.metrics.RecordNotification(context.Background(), sink.Name(), outcome)
		}
	}
}
