// Package memory keeps school notifications in process. It backs
// pubsub.dry_run, where messages are encoded and logged but never sent.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Message is one encoded notification.
type Message struct {
	ID    string
	Topic string
	Data  []byte
}

// Publisher records notifications in publish order.
type Publisher struct {
	logger *zap.Logger

	mu       sync.Mutex
	messages []Message
}

// New returns a Publisher that logs every message at debug level.
func New(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{logger: logger}
}

// Publish encodes payload the way the Pub/Sub publisher does and records it.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	p.mu.Lock()
	id := fmt.Sprintf("dry-run-%d", len(p.messages)+1)
	p.messages = append(p.messages, Message{ID: id, Topic: topic, Data: data})
	p.mu.Unlock()

	p.logger.Debug("notification not sent (dry run)",
		zap.String("topic", topic), zap.String("message_id", id), zap.ByteString("data", data))
	return id, nil
}

// Messages returns a copy of the recorded notifications.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// Len reports how many notifications were recorded.
func (p *Publisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}
