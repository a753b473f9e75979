package events

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

// Dispatcher decouples publishing from the caller. Publish never blocks:
// when the buffer is full the batch is dropped and counted.
type Dispatcher struct {
	next    Publisher
	queue   chan []domain.Event
	logger  *slog.Logger
	dropped atomic.Int64
}

func NewDispatcher(next Publisher, buffer int, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		next:   next,
		queue:  make(chan []domain.Event, buffer),
		logger: logger,
	}
}

func (d *Dispatcher) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	select {
	case d.queue <- events:
	default:
		d.dropped.Add(int64(len(events)))
		d.logger.WarnContext(ctx, "event buffer full, dropping events", "count", len(events))
	}
	return nil
}

func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Start delivers queued batches until ctx is done, then flushes whatever
// is still buffered.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("event dispatcher started", "buffer", cap(d.queue))

	for {
		select {
		case <-ctx.Done():
			d.flush()
			d.logger.Info("event dispatcher stopped")
			return
		case batch := <-d.queue:
			d.deliver(ctx, batch)
		}
	}
}

func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case batch := <-d.queue:
			d.deliver(ctx, batch)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, batch []domain.Event) {
	if err := d.next.Publish(ctx, batch); err != nil {
		d.logger.Error("failed to publish events", "count", len(batch), "error", err)
	}
}
