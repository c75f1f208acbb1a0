package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// NoopSender logs messages without delivering them. It keeps what it was
// given so development and tests can inspect it.
type NoopSender struct {
	mu   sync.Mutex
	sent []Message
}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs the message but does not deliver it.
func (s *NoopSender) Send(_ context.Context, msg Message) (Receipt, error) {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	slog.Info("noop_email_send", "to", msg.To, "subject", msg.Subject)
	return Receipt{
		ID:       fmt.Sprintf("noop-%d", time.Now().UnixNano()),
		Accepted: time.Now(),
	}, nil
}

// SendAll sends each message through Send.
func (s *NoopSender) SendAll(ctx context.Context, msgs []Message) ([]Receipt, error) {
	receipts := make([]Receipt, 0, len(msgs))
	for _, msg := range msgs {
		r, _ := s.Send(ctx, msg)
		receipts = append(receipts, r)
	}
	return receipts, nil
}

// Sent returns a copy of every message seen so far.
func (s *NoopSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
