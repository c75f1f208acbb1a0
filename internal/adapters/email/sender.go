package email

import (
	"context"
	"time"
)

// Message is one outgoing email to a single recipient. The sender supplies
// the From and Reply-To addresses.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string            // plain-text alternative; may be empty
	Tags    map[string]string // provider tags such as registration_id
}

// Receipt is the provider's acknowledgement of one message.
type Receipt struct {
	ID       string
	Accepted time.Time
}

// Sender delivers messages through an external provider.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
	// SendAll delivers msgs in one provider call where possible.
	// POST: receipts are in message order
	SendAll(ctx context.Context, msgs []Message) ([]Receipt, error)
}
