// Package eventlog implements the "Decision/reinforcement writers" row
// of §5's concurrency table: a bounded queue feeding a single writer
// goroutine that batches into the Persistence Gateway, draining with a
// timeout on shutdown, batching by count or ticker, with the
// scanner-goroutine role played here by whatever component calls
// Append (Debate Dispatcher, Intent Classifier, Scheduler Engine).
package eventlog

import (
	"context"
	"log/slog"
	"time"

	"autonomy-core/internal/store"
)

const (
	batchSize     = 50
	flushInterval = time.Second
	drainTimeout  = 5 * time.Second
)

// entry is a queued item, tagged by kind so a single channel can carry
// both DecisionEvent and ReinforcementEvent without a second queue.
type entry struct {
	decision      *store.DecisionEvent
	reinforcement *store.ReinforcementEvent
}

// Sink is the subset of the Gateway the writer needs.
type Sink interface {
	AppendDecision(ctx context.Context, ev store.DecisionEvent) error
	AppendReinforcement(ctx context.Context, ev store.ReinforcementEvent) error
}

// Writer is the bounded-queue event log writer.
type Writer struct {
	sink  Sink
	log   *slog.Logger
	queue chan entry
	done  chan struct{}
}

// New builds a Writer with a queue of the given max size
// (HER_WORKFLOW_EVENT_QUEUE_MAX_SIZE, default 5000).
func New(sink Sink, log *slog.Logger, maxQueueSize int) *Writer {
	if maxQueueSize <= 0 {
		maxQueueSize = 5000
	}
	return &Writer{
		sink:  sink,
		log:   log,
		queue: make(chan entry, maxQueueSize),
		done:  make(chan struct{}),
	}
}

// AppendDecision enqueues a DecisionEvent, dropping and logging if the
// queue is full rather than blocking the caller.
func (w *Writer) AppendDecision(ev store.DecisionEvent) {
	select {
	case w.queue <- entry{decision: &ev}:
	default:
		w.log.Warn("event log queue full, dropping decision event", "event_type", ev.EventType)
	}
}

// AppendReinforcement enqueues a ReinforcementEvent, same drop policy.
func (w *Writer) AppendReinforcement(ev store.ReinforcementEvent) {
	select {
	case w.queue <- entry{reinforcement: &ev}:
	default:
		w.log.Warn("event log queue full, dropping reinforcement event", "user_id", ev.UserID)
	}
}

// Run drains the queue in count-or-ticker batches until ctx is
// cancelled, then drains whatever remains for up to drainTimeout.
func (w *Writer) Run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	defer close(w.done)

	batch := make([]entry, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.flush(context.Background(), batch)
		batch = batch[:0]
	}

	for {
		select {
		case e := <-w.queue:
			batch = append(batch, e)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			w.drain(flush)
			return
		}
	}
}

// drain flushes remaining queued items (including anything already
// batched) for up to drainTimeout before giving up, per §5's
// "best-effort, 5s" shutdown contract.
func (w *Writer) drain(flush func()) {
	flush()
	deadline := time.After(drainTimeout)
	for {
		select {
		case e := <-w.queue:
			w.flush(context.Background(), []entry{e})
		case <-deadline:
			return
		default:
			if len(w.queue) == 0 {
				return
			}
		}
	}
}

func (w *Writer) flush(ctx context.Context, batch []entry) {
	for _, e := range batch {
		switch {
		case e.decision != nil:
			if err := w.sink.AppendDecision(ctx, *e.decision); err != nil {
				w.log.Error("append decision event failed", "err", err)
			}
		case e.reinforcement != nil:
			if err := w.sink.AppendReinforcement(ctx, *e.reinforcement); err != nil {
				w.log.Error("append reinforcement event failed", "err", err)
			}
		}
	}
}

// Wait blocks until Run has fully exited (used by shutdown sequencing).
func (w *Writer) Wait() { <-w.done }

// Gateway wraps a store.Gateway so AppendDecision/AppendReinforcement go
// through a Writer's bounded queue instead of blocking the caller on a
// synchronous write, while every other Gateway method passes straight
// through to the wrapped store. Debate and the Scheduler take this as
// their store.Gateway so the "buffered writer with bounded queue"
// concurrency shape actually sits between them and Postgres.
type Gateway struct {
	store.Gateway
	writer *Writer
}

// NewGateway builds a Gateway. writer's Sink must be inner, or another
// store.Gateway that eventually reaches the same rows, so events queued
// here still land where the rest of inner's methods write.
func NewGateway(inner store.Gateway, writer *Writer) *Gateway {
	return &Gateway{Gateway: inner, writer: writer}
}

// AppendDecision enqueues ev and returns immediately; queue-full drops
// are logged by the Writer, not surfaced as an error here, matching
// §5's "best-effort" framing for this write path.
func (g *Gateway) AppendDecision(ctx context.Context, ev store.DecisionEvent) error {
	g.writer.AppendDecision(ev)
	return nil
}

// AppendReinforcement enqueues ev, same drop policy as AppendDecision.
func (g *Gateway) AppendReinforcement(ctx context.Context, ev store.ReinforcementEvent) error {
	g.writer.AppendReinforcement(ev)
	return nil
}
