package email

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/resend/resend-go/v2"
)

// maxBatch is the Resend batch API limit per call.
const maxBatch = 100

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client  *resend.Client
	from    string
	replyTo string
}

// NewResendSender creates a sender that mails from one address.
// PRE: apiKey is a valid Resend API key; from is a valid sender address
func NewResendSender(apiKey, from, replyTo string) *ResendSender {
	return &ResendSender{
		client:  resend.NewClient(apiKey),
		from:    from,
		replyTo: replyTo,
	}
}

func (s *ResendSender) params(msg Message) *resend.SendEmailRequest {
	p := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: s.replyTo,
	}
	names := make([]string, 0, len(msg.Tags))
	for name := range msg.Tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.Tags = append(p.Tags, resend.Tag{Name: name, Value: msg.Tags[name]})
	}
	return p
}

// Send sends a single message via Resend.
// PRE: msg.To and msg.Subject are set
func (s *ResendSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, s.params(msg))
	if err != nil {
		slog.Error("resend_send_failed", "error", err, "subject", msg.Subject)
		return Receipt{}, fmt.Errorf("resend send failed: %w", err)
	}

	slog.Info("resend_sent", "message_id", sent.Id, "subject", msg.Subject)
	return Receipt{ID: sent.Id, Accepted: time.Now()}, nil
}

// SendAll sends msgs through the batch API in chunks of maxBatch.
// POST: on error the receipts of earlier chunks are returned
func (s *ResendSender) SendAll(ctx context.Context, msgs []Message) ([]Receipt, error) {
	var receipts []Receipt
	for start := 0; start < len(msgs); start += maxBatch {
		chunk := msgs[start:min(start+maxBatch, len(msgs))]

		batch := make([]*resend.SendEmailRequest, 0, len(chunk))
		for _, msg := range chunk {
			batch = append(batch, s.params(msg))
		}

		resp, err := s.client.Batch.SendWithContext(ctx, batch)
		if err != nil {
			slog.Error("resend_batch_failed", "error", err, "batch_size", len(chunk))
			return receipts, fmt.Errorf("resend batch send failed: %w", err)
		}
		for _, item := range resp.Data {
			receipts = append(receipts, Receipt{ID: item.Id, Accepted: time.Now()})
		}
		slog.Info("resend_batch_sent", "count", len(chunk), "total_sent", len(receipts))
	}
	return receipts, nil
}
