package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type queued struct {
	span  trace.SpanContext
	event Event
}

// Dispatcher hands pipeline events to a sink on a single background goroutine
// so request latency never includes sink I/O.
//
// The request context is not carried across: it is usually cancelled by the
// time the sink runs. Only its span context travels with the event, so sinks
// can correlate events with the request trace through [SpanContextFromEmit].
type Dispatcher struct {
	cfg       Config
	sink      Sink
	ch        chan queued
	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	dropped     atomic.Uint64
	dropMu      sync.Mutex
	droppedByEv map[string]uint64
}

// NewDispatcher returns nil when cfg is disabled; a nil Dispatcher accepts
// and discards every call.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:         cfg,
		sink:        sink,
		ch:          make(chan queued, cfg.BufferSize),
		done:        make(chan struct{}),
		droppedByEv: make(map[string]uint64),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case item := <-d.ch:
			d.deliver(item)
		case <-d.done:
			for {
				select {
				case item := <-d.ch:
					d.deliver(item)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(item queued) {
	ctx := context.Background()
	if item.span.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, item.span)
	}
	d.sink.Emit(ctx, item.event)
}

// Emit queues event. With DropIfFull a full buffer drops the event and counts
// it under its event type; otherwise Emit blocks until there is room, ctx is
// done, or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	item := queued{span: trace.SpanContextFromContext(ctx), event: event}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- item:
		case <-d.done:
		default:
			d.drop(event.EventType)
		}
		return
	}

	select {
	case d.ch <- item:
	case <-ctx.Done():
		d.drop(event.EventType)
	case <-d.done:
	}
}

func (d *Dispatcher) drop(eventType string) {
	d.dropped.Add(1)
	d.dropMu.Lock()
	d.droppedByEv[eventType]++
	d.dropMu.Unlock()
}

// Close stops accepting events and blocks until queued ones are delivered.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the total number of events lost to backpressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType returns a copy of the drop counts keyed by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := make(map[string]uint64)
	if d == nil {
		return out
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	for k, v := range d.droppedByEv {
		out[k] = v
	}
	return out
}

// SpanContextFromEmit returns the span context of the request that emitted
// the event a sink is handling, if it was traced.
func SpanContextFromEmit(ctx context.Context) (trace.SpanContext, bool) {
	sc := trace.SpanContextFromContext(ctx)
	return sc, sc.IsValid()
}
