// Package notify publishes change summaries for delivery collaborators.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

var _ ports.Notifier = (*Publisher)(nil)

// DefaultTopic is the topic change summaries are published to.
const DefaultTopic = "tournament.changes"

// Publisher delivers change summaries through a watermill publisher.
// Delivery to participants (email, push) is a downstream consumer's concern.
type Publisher struct {
	publisher message.Publisher
	topic     string
}

// NewPublisher creates a Publisher on the given bus. An empty topic selects
// DefaultTopic.
func NewPublisher(publisher message.Publisher, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{publisher: publisher, topic: topic}
}

// Notify publishes the change summary.
func (p *Publisher) Notify(_ context.Context, summary domain.ChangeSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal change summary: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("kind", summary.Kind)
	msg.Metadata.Set("round_id", string(summary.RoundID))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish change summary: %w", err)
	}
	return nil
}
