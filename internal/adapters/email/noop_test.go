package email

import (
	"context"
	"testing"
)

func TestNoopSender_RecordsMessages(t *testing.T) {
	s := NewNoopSender()
	ctx := context.Background()

	if _, err := s.Send(ctx, Message{To: "a@example.org", Subject: "one"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	receipts, err := s.SendAll(ctx, []Message{
		{To: "b@example.org", Subject: "two"},
		{To: "c@example.org", Subject: "three"},
	})
	if err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	if len(receipts) != 2 || receipts[0].ID == "" {
		t.Errorf("receipts = %+v", receipts)
	}

	sent := s.Sent()
	if len(sent) != 3 || sent[2].Subject != "three" {
		t.Errorf("sent = %+v", sent)
	}
}

func TestResendSender_Params(t *testing.T) {
	s := NewResendSender("re_test", "Camp <noreply@example.org>", "office@example.org")

	p := s.params(Message{
		To: "a@example.org", Subject: "hi", HTML: "<p>hi</p>", Text: "hi",
		Tags: map[string]string{"registration_id": "r1", "category": "Youth"},
	})
	if p.From != "Camp <noreply@example.org>" || p.ReplyTo != "office@example.org" {
		t.Errorf("sender addresses not applied: from=%q replyTo=%q", p.From, p.ReplyTo)
	}
	if len(p.To) != 1 || p.To[0] != "a@example.org" || p.Text != "hi" {
		t.Errorf("params = %+v", p)
	}
	if len(p.Tags) != 2 || p.Tags[0].Name != "category" || p.Tags[1].Value != "r1" {
		t.Errorf("tags = %+v, want sorted by name", p.Tags)
	}
}

func TestResendSender_EmptyBatch(t *testing.T) {
	s := NewResendSender("re_test", "noreply@example.org", "")
	receipts, err := s.SendAll(context.Background(), nil)
	if err != nil || len(receipts) != 0 {
		t.Errorf("SendAll(nil) = %v, %v", receipts, err)
	}
}
