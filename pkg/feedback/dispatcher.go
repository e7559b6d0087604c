package feedback

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

// ErrDispatcherClosed is returned by Submit after Close.
var ErrDispatcherClosed = errors.New("feedback dispatcher closed")

// ErrQueueFull is returned by Submit when the event was dropped.
var ErrQueueFull = errors.New("feedback queue full")

// Dispatcher hands feedback events to a Handler on a fixed set of worker
// goroutines. Submit never blocks; events that do not fit in the queue are
// dropped and counted.
type Dispatcher[Req, Resp any] struct {
	handler Handler[Req, Resp]
	queue   chan Feedback[Req, Resp]
	wg      conc.WaitGroup
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts workers goroutines reading from a queue of queueSize.
// Non-positive values are raised to 1.
func NewDispatcher[Req, Resp any](handler Handler[Req, Resp], workers, queueSize int, logger zerolog.Logger) *Dispatcher[Req, Resp] {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	d := &Dispatcher[Req, Resp]{
		handler: handler,
		queue:   make(chan Feedback[Req, Resp], queueSize),
		logger:  logger,
		done:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		d.wg.Go(d.work)
	}
	return d
}

func (d *Dispatcher[Req, Resp]) work() {
	for fb := range d.queue {
		d.handler.HandleFeedback(context.Background(), fb)
		FeedbackProcessed.Inc()
	}
}

// Submit enqueues fb without blocking.
func (d *Dispatcher[Req, Resp]) Submit(fb Feedback[Req, Resp]) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- fb:
		return nil
	default:
		FeedbackDropped.Inc()
		d.logger.Warn().Int("queue_size", cap(d.queue)).Msg("Feedback queue full, dropping event")
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to be handled,
// or for ctx to be done.
func (d *Dispatcher[Req, Resp]) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
		go func() {
			d.wg.Wait()
			close(d.done)
		}()
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
