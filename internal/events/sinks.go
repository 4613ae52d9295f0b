package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/JakeFAU/narration-leads/internal/storage"
	"github.com/JakeFAU/narration-leads/internal/telemetry"
)

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Name implements Sink.
func (*LogSink) Name() string { return "log" }

// Send implements Sink. The email is omitted; logs are not a lead store.
func (s *LogSink) Send(_ context.Context, evt Event) error {
	s.logger.Info("lead event",
		zap.String("type", evt.Type),
		zap.String("id", evt.ID),
		zap.String("kind", string(evt.Kind)),
		zap.String("collection", evt.Collection),
		zap.String("outcome", string(evt.Outcome)),
		zap.Time("created_at", evt.CreatedAt),
	)
	return nil
}

// Message is the transport-neutral form handed to a Publisher.
type Message struct {
	Data       []byte
	Attributes map[string]string
}

// Publisher sends a message to a topic and returns the server-assigned id.
type Publisher interface {
	Publish(ctx context.Context, msg Message) (string, error)
}

// PublisherSink encodes events as JSON messages.
type PublisherSink struct {
	name string
	pub  Publisher
}

// NewPublisherSink names the sink after its transport (for metrics).
func NewPublisherSink(name string, pub Publisher) *PublisherSink {
	return &PublisherSink{name: name, pub: pub}
}

// Name implements Sink.
func (s *PublisherSink) Name() string { return s.name }

// Send implements Sink. The trace context of ctx travels in the message
// attributes so subscribers can continue the submission's trace.
func (s *PublisherSink) Send(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	attrs := evt.Attributes()
	telemetry.Inject(ctx, attrs)
	if _, err := s.pub.Publish(ctx, Message{Data: data, Attributes: attrs}); err != nil {
		return fmt.Errorf("publish event %s: %w", evt.ID, err)
	}
	return nil
}

// ArchiveSink writes one JSON object per event under prefix/yyyy/mm/dd/id.json.
type ArchiveSink struct {
	name   string
	blobs  storage.BlobStore
	prefix string
}

// NewArchiveSink stores events in blobs under prefix.
func NewArchiveSink(name string, blobs storage.BlobStore, prefix string) *ArchiveSink {
	return &ArchiveSink{name: name, blobs: blobs, prefix: prefix}
}

// Name implements Sink.
func (s *ArchiveSink) Name() string { return s.name }

// ObjectPath returns where evt is archived.
func (s *ArchiveSink) ObjectPath(evt Event) string {
	return path.Join(s.prefix, evt.CreatedAt.UTC().Format("2006/01/02"), evt.ID+".json")
}

// Send implements Sink.
func (s *ArchiveSink) Send(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := s.blobs.PutObject(ctx, s.ObjectPath(evt), "application/json", bytes.NewReader(data)); err != nil {
		return fmt.Errorf("archive event %s: %w", evt.ID, err)
	}
	return nil
}
