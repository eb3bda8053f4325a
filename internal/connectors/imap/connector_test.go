package imap

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
)

func TestToFetched(t *testing.T) {
	msg := &imap.Message{
		Uid:          42,
		InternalDate: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		Envelope: &imap.Envelope{
			Subject: "Iade listesi",
			From: []*imap.Address{
				{PersonalName: "Depo", MailboxName: "depo", HostName: "example.com"},
				{MailboxName: "kargo", HostName: "example.com"},
			},
		},
	}

	got := toFetched(msg, []byte("raw"))
	if got.MessageID != "imap-42" {
		t.Fatalf("messageId=%q", got.MessageID)
	}
	if got.From != "Depo <depo@example.com>, kargo@example.com" {
		t.Fatalf("from=%q", got.From)
	}
	if got.ReceivedAt != "2026-10-17T09:00:00Z" {
		t.Fatalf("receivedAt=%q", got.ReceivedAt)
	}
}
