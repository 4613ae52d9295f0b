package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/narration-leads/internal/lead"
	"github.com/JakeFAU/narration-leads/internal/storage/memory"
)

var capturedAt = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)

func sampleEvent(id string) Event {
	return LeadCaptured(
		lead.Document{Collection: lead.CollectionEstimate, Kind: lead.KindEstimate, Email: "reader@example.com"},
		lead.Receipt{ID: id, CreatedAt: capturedAt},
		lead.OutcomeSuccess,
	)
}

type recordingSink struct {
	name string
	err  error

	mu     sync.Mutex
	events []Event
	traces []trace.TraceID
	block  chan struct{}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(ctx context.Context, evt Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	s.traces = append(s.traces, trace.SpanContextFromContext(ctx).TraceID())
	return s.err
}

func (s *recordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type recordingPublisher struct {
	msgs []Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg Message) (string, error) {
	p.msgs = append(p.msgs, msg)
	return "msg-1", p.err
}

func TestLeadCapturedValidates(t *testing.T) {
	t.Parallel()

	evt := sampleEvent("lead-1")
	require.NoError(t, evt.Validate())
	require.Equal(t, TypeLeadCaptured, evt.Type)
	require.Equal(t, "estimate", evt.Attributes()["kind"])

	require.Error(t, Event{}.Validate())
	require.Error(t, Event{Type: TypeLeadCaptured, ID: "x"}.Validate())
}

func TestDispatcherFansOutToEverySink(t *testing.T) {
	t.Parallel()

	ok := &recordingSink{name: "ok"}
	failing := &recordingSink{name: "failing", err: errors.New("topic gone")}
	core, logs := observer.New(zap.WarnLevel)
	d := NewDispatcher(Config{Logger: zap.New(core)}, ok, nil, failing)
	require.Equal(t, []string{"ok", "failing"}, d.Sinks())

	d.Emit(context.Background(), sampleEvent("lead-1"))
	d.Emit(context.Background(), sampleEvent("lead-2"))
	require.NoError(t, d.Close(context.Background()))

	require.Len(t, ok.Events(), 2)
	require.Len(t, failing.Events(), 2)
	require.Equal(t, 2, logs.FilterMessage("lead event delivery failed").Len())
}

func TestDispatcherDeliversUnderSubmissionTrace(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")
	sink := &recordingSink{name: "ok"}
	d := NewDispatcher(Config{Tracer: tracer}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	ctx, submit := tracer.Start(ctx, "lead.submit")
	d.Emit(ctx, sampleEvent("lead-1"))
	submit.End()
	cancel()
	require.NoError(t, d.Close(context.Background()))

	require.Len(t, sink.Events(), 1)
	sink.mu.Lock()
	require.Equal(t, submit.SpanContext().TraceID(), sink.traces[0])
	sink.mu.Unlock()

	var deliver sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if s.Name() == "lead.event.deliver" {
			deliver = s
		}
	}
	require.NotNil(t, deliver)
	require.Equal(t, submit.SpanContext().SpanID(), deliver.Parent().SpanID())
}

func TestDispatcherIgnoresInvalidAndClosed(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{name: "s"}
	d := NewDispatcher(Config{}, sink)
	d.Emit(context.Background(), Event{})
	require.NoError(t, d.Close(context.Background()))
	d.Emit(context.Background(), sampleEvent("late"))
	require.NoError(t, d.Close(context.Background()))
	require.Empty(t, sink.Events())
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{name: "slow", block: make(chan struct{})}
	d := NewDispatcher(Config{BufferSize: 1}, sink)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			d.Emit(context.Background(), sampleEvent("lead"))
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked")
	}
	close(sink.block)
	require.NoError(t, d.Close(context.Background()))
	require.Less(t, len(sink.Events()), 10)
}

func TestNilDispatcher(t *testing.T) {
	t.Parallel()

	var d *Dispatcher
	d.Emit(context.Background(), sampleEvent("x"))
	require.NoError(t, d.Close(context.Background()))
}

func TestPublisherSinkEncodesJSON(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	sink := NewPublisherSink("pubsub", pub)
	require.NoError(t, sink.Send(context.Background(), sampleEvent("lead-1")))
	require.Len(t, pub.msgs, 1)
	require.Equal(t, "lead.captured", pub.msgs[0].Attributes["type"])

	var decoded Event
	require.NoError(t, json.Unmarshal(pub.msgs[0].Data, &decoded))
	require.Equal(t, "lead-1", decoded.ID)
	require.True(t, capturedAt.Equal(decoded.CreatedAt))

	pub.err = errors.New("deadline")
	require.ErrorContains(t, sink.Send(context.Background(), sampleEvent("lead-2")), "publish event lead-2")
}

func TestArchiveSinkWritesDatedObject(t *testing.T) {
	t.Parallel()

	blobs := memory.NewBlobStore()
	sink := NewArchiveSink("archive", blobs, "leads")
	evt := sampleEvent("lead-9")
	require.Equal(t, "leads/2024/05/17/lead-9.json", sink.ObjectPath(evt))
	require.NoError(t, sink.Send(context.Background(), evt))

	body, ok := blobs.Object("leads/2024/05/17/lead-9.json")
	require.True(t, ok)
	require.Contains(t, string(body), `"outcome":"success"`)
}

func TestLogSinkOmitsEmail(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, NewLogSink(zap.New(core)).Send(context.Background(), sampleEvent("lead-1")))
	entries := logs.All()
	require.Len(t, entries, 1)
	_, hasEmail := entries[0].ContextMap()["email"]
	require.False(t, hasEmail)
}
