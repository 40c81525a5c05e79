package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// AsyncOptions configures the buffer in front of a slow handler.
type AsyncOptions struct {
	BufferSize   int           // default 1024
	FlushTimeout time.Duration // default 5s, used when Shutdown gets no deadline
}

func (o AsyncOptions) withDefaults() AsyncOptions {
	if o.BufferSize <= 0 {
		o.BufferSize = 1024
	}
	if o.FlushTimeout <= 0 {
		o.FlushTimeout = 5 * time.Second
	}
	return o
}

type pending struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// queue is shared by an AsyncHandler and every handler derived from it.
type queue struct {
	records chan pending
	timeout time.Duration
	closed  atomic.Bool
	dropped atomic.Uint64
	done    sync.WaitGroup
}

func (q *queue) drain() {
	defer q.done.Done()
	for p := range q.records {
		_ = p.handler.Handle(p.ctx, p.record)
	}
}

// AsyncHandler hands records to a background goroutine so remote log
// shipping never blocks a chat reply. Records are dropped when the buffer
// is full.
type AsyncHandler struct {
	q       *queue
	handler slog.Handler
}

// NewAsyncHandler starts the background goroutine for handler.
func NewAsyncHandler(handler slog.Handler, opts AsyncOptions) *AsyncHandler {
	opts = opts.withDefaults()
	q := &queue{
		records: make(chan pending, opts.BufferSize),
		timeout: opts.FlushTimeout,
	}
	q.done.Add(1)
	go q.drain()
	return &AsyncHandler{q: q, handler: handler}
}

// Enabled reports whether the underlying handler is enabled for the given level.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle enqueues a clone of r. It never returns an error.
func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.q.closed.Load() {
		return nil
	}
	// Detach from request cancellation; the record outlives the request.
	p := pending{ctx: context.WithoutCancel(ctx), record: r.Clone(), handler: h.handler}
	select {
	case h.q.records <- p:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler sharing the same queue.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{q: h.q, handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a handler sharing the same queue.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{q: h.q, handler: h.handler.WithGroup(name)}
}

// Dropped returns how many records were discarded because the buffer was full.
func (h *AsyncHandler) Dropped() uint64 {
	return h.q.dropped.Load()
}

// Shutdown stops accepting records and waits for the queue to drain.
// Calling it more than once is safe.
func (h *AsyncHandler) Shutdown(ctx context.Context) error {
	if h == nil || h.q == nil || h.q.closed.Swap(true) {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.q.timeout)
		defer cancel()
	}
	close(h.q.records)

	finished := make(chan struct{})
	go func() {
		h.q.done.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
