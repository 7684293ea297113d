// Package logqueue buffers log events and exposures and writes them to a
// sink from a single background worker. Producers never block: when the
// buffer is full the event is dropped and counted.
package logqueue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/telemetry"
)

// DefaultQueueSize is used when New is given a non-positive size.
const DefaultQueueSize = 1000

// writeTimeout bounds a single sink write.
const writeTimeout = 5 * time.Second

// Sink persists events. Write is only ever called from the queue worker.
type Sink interface {
	Write(ctx context.Context, event model.Event) error
	Close() error
}

// Clock interface for testable time operations
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// item is either an event or a flush marker.
type item struct {
	event   model.Event
	flushed chan struct{}
}

// Queue is an asynchronous, drop-when-full event log.
type Queue struct {
	sink   Sink
	clock  Clock
	logger zerolog.Logger

	mu     sync.RWMutex // guards closed against concurrent sends
	closed bool

	queue  chan item
	stopCh chan struct{}
	done   chan struct{}
}

// New creates a queue and starts its worker.
func New(sink Sink, clock Clock, logger zerolog.Logger, queueSize int) *Queue {
	if clock == nil {
		clock = SystemClock{}
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	q := &Queue{
		sink:   sink,
		clock:  clock,
		logger: logger.With().Str("component", "logqueue").Logger(),
		queue:  make(chan item, queueSize),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go q.worker()
	return q
}

// Log queues an event. A zero Time is stamped with the current time.
func (q *Queue) Log(event model.Event) {
	if event.Time.IsZero() {
		event.Time = q.clock.Now()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		telemetry.LogQueueDropped.Inc()
		q.logger.Warn().Str("event", event.EventName).Msg("queue closed, dropping event")
		return
	}

	select {
	case q.queue <- item{event: event}:
	default:
		telemetry.LogQueueDropped.Inc()
		q.logger.Warn().Str("event", event.EventName).Int("queue_size", cap(q.queue)).Msg("queue full, dropping event")
	}
}

// LogExposure queues the event form of an exposure.
func (q *Queue) LogExposure(x model.Exposure) {
	q.Log(x.Event())
}

// Flush blocks until every event queued before the call has been handed to
// the sink, or ctx is done. Flushing a closed queue is a no-op.
func (q *Queue) Flush(ctx context.Context) error {
	marker := item{flushed: make(chan struct{})}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return nil
	}
	select {
	case q.queue <- marker:
		q.mu.RUnlock()
	case <-ctx.Done():
		q.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-marker.flushed:
		return nil
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, waits for the worker to drain what is
// already queued and closes the sink.
//
// Close is safe to call multiple times - subsequent calls are no-ops.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.stopCh)
	q.mu.Unlock()

	<-q.done
	if q.sink == nil {
		return nil
	}
	return q.sink.Close()
}

func (q *Queue) worker() {
	defer close(q.done)

	for {
		select {
		case it := <-q.queue:
			q.handle(it)
		case <-q.stopCh:
			for {
				select {
				case it := <-q.queue:
					q.handle(it)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) handle(it item) {
	if it.flushed != nil {
		close(it.flushed)
		return
	}
	if q.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := q.sink.Write(ctx, it.event); err != nil {
		q.logger.Error().Err(err).Str("event", it.event.EventName).Msg("failed to write event")
		return
	}
	telemetry.LogQueueWritten.Inc()
}
