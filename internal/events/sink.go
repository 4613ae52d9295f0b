package events

import "context"

// Sink delivers a single event somewhere. Implementations must honor ctx
// deadlines and may be invoked from the dispatcher goroutine only.
type Sink interface {
	Name() string
	Send(ctx context.Context, evt Event) error
}

// Emitter accepts events without blocking; Dispatcher satisfies it so the
// submission pipeline stays agnostic about delivery. Only the span of ctx is
// kept; its deadline and cancellation do not reach the sinks.
type Emitter interface {
	Emit(ctx context.Context, evt Event)
}

// Discard is an Emitter that drops everything.
type Discard struct{}

// Emit implements Emitter.
func (Discard) Emit(context.Context, Event) {}
