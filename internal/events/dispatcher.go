package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/narration-leads/internal/metrics"
	"github.com/JakeFAU/narration-leads/internal/telemetry"
)

// Config controls buffering for the Dispatcher.
//   - BufferSize: size of the internal channel (default 256).
//   - SinkTimeout: per-sink timeout for each delivery (default 10s).
//   - Logger: optional structured logger used for warnings.
//   - Tracer: optional; defaults to the module tracer.
type Config struct {
	BufferSize  int
	SinkTimeout time.Duration
	Logger      *zap.Logger
	Tracer      trace.Tracer
}

type queued struct {
	evt  Event
	span trace.SpanContext
}

const (
	defaultBufferSize  = 256
	defaultSinkTimeout = 10 * time.Second
	dropLogInterval    = 5 * time.Second
)

// Dispatcher queues events and fans each one out to every sink from a single
// background goroutine. Emit never blocks; a full buffer drops the event.
type Dispatcher struct {
	cfg     Config
	sinks   []Sink
	events  chan queued
	stopCh  chan struct{}
	doneCh  chan struct{}
	logger  *zap.Logger
	dropped atomic.Int64
	lastLog atomic.Int64
	closed  atomic.Bool

	closeOnce sync.Once
}

// NewDispatcher starts the delivery goroutine for sinks.
func NewDispatcher(cfg Config, sinks ...Sink) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.Tracer()
	}
	d := &Dispatcher{
		cfg:    cfg,
		events: make(chan queued, cfg.BufferSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: logger,
	}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	go d.run()
	return d
}

// Sinks lists the names of the registered sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Emit enqueues evt. Invalid events and events emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, evt Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		d.logger.Debug("discarding invalid lead event", zap.Error(err))
		return
	}
	select {
	case d.events <- queued{evt: evt, span: trace.SpanContextFromContext(ctx)}:
	default:
		d.dropped.Add(1)
		now := time.Now().UnixNano()
		last := d.lastLog.Load()
		if now-last >= dropLogInterval.Nanoseconds() && d.lastLog.CompareAndSwap(last, now) {
			d.logger.Warn("lead events dropped due to backpressure", zap.Int64("dropped", d.dropped.Swap(0)))
		}
	}
}

// Close stops accepting events, delivers what is queued and waits for the
// goroutine to exit or ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stopCh)
	})
	select {
	case <-d.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event dispatcher close wait: %w", ctx.Err())
	}
}

func (d *Dispatcher) run() {
	defer close(d.doneCh)
	for {
		select {
		case q := <-d.events:
			d.deliver(q)
		case <-d.stopCh:
			for {
				select {
				case q := <-d.events:
					d.deliver(q)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(q queued) {
	evt := q.evt
	parent := trace.ContextWithSpanContext(context.Background(), q.span)
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(parent, d.cfg.SinkTimeout)
		ctx, span := d.cfg.Tracer.Start(ctx, "lead.event.deliver",
			trace.WithSpanKind(trace.SpanKindProducer),
			trace.WithAttributes(
				attribute.String("sink", sink.Name()),
				attribute.String("event.type", evt.Type),
				attribute.String("lead.id", evt.ID),
			),
		)
		err := sink.Send(ctx, evt)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "delivery failed")
		}
		span.End()
		cancel()
		metrics.ObserveEvent(sink.Name(), err)
		if err != nil {
			d.logger.Warn("lead event delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("event_id", evt.ID),
				zap.Error(err),
			)
		}
	}
}
