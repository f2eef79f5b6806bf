// Package audit publishes the engine's transition audit records onto a
// message bus.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

var _ ports.AuditLog = (*Publisher)(nil)

// DefaultTopic is the topic audit records are published to.
const DefaultTopic = "tournament.audit"

// Publisher delivers audit records through a watermill publisher. Records
// deduplicate on their transition identifier, so a retried engine operation
// still yields exactly one published record; the message UUID carries the
// transition identifier so downstream consumers can deduplicate across
// process restarts as well.
type Publisher struct {
	publisher message.Publisher
	topic     string

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewPublisher creates a Publisher on the given bus. An empty topic selects
// DefaultTopic.
func NewPublisher(publisher message.Publisher, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		publisher: publisher,
		topic:     topic,
		seen:      make(map[string]struct{}),
	}
}

// Record publishes the audit record unless its transition identifier was
// already delivered.
func (p *Publisher) Record(_ context.Context, record domain.AuditRecord) error {
	p.mu.Lock()
	if _, dup := p.seen[record.TransitionID]; dup {
		p.mu.Unlock()
		return nil
	}
	p.seen[record.TransitionID] = struct{}{}
	p.mu.Unlock()

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	msg := message.NewMessage(record.TransitionID, payload)
	msg.Metadata.Set("transition", record.Transition)
	msg.Metadata.Set("actor", record.Actor)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		// Allow a retry to publish again.
		p.mu.Lock()
		delete(p.seen, record.TransitionID)
		p.mu.Unlock()
		return fmt.Errorf("publish audit record: %w", err)
	}
	return nil
}
