// Package memory contains an in-memory event publisher that keeps the most
// recent lead events for operators in development.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/JakeFAU/narration-leads/internal/events"
)

// Publisher keeps the last capacity published messages. A capacity of zero
// or less keeps everything.
type Publisher struct {
	mu       sync.RWMutex
	capacity int
	seq      int
	messages []events.Message
}

// New returns a memory Publisher holding at most capacity messages.
func New(capacity int) *Publisher {
	return &Publisher{capacity: capacity}
}

// Publish records a copy of msg, evicting the oldest message when full, and
// returns a pseudo ID.
func (p *Publisher) Publish(ctx context.Context, msg events.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	stored := events.Message{
		Data:       append([]byte(nil), msg.Data...),
		Attributes: maps.Clone(msg.Attributes),
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.messages = append(p.messages, stored)
	if p.capacity > 0 && len(p.messages) > p.capacity {
		p.messages = append(p.messages[:0:0], p.messages[len(p.messages)-p.capacity:]...)
	}
	return fmt.Sprintf("memory-%d", p.seq), nil
}

// Messages returns the retained messages, oldest first.
func (p *Publisher) Messages() []events.Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]events.Message, len(p.messages))
	copy(out, p.messages)
	return out
}
