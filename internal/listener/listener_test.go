package listener

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"iadetakip/internal"
	"iadetakip/internal/config"
	"iadetakip/internal/connectors"
	"iadetakip/internal/pipeline"
	"iadetakip/internal/storage"
)

type stubConnector struct {
	messages []internal.FetchedMailMessage
}

func (s stubConnector) FetchInbox(context.Context, string, int) ([]internal.FetchedMailMessage, error) {
	return s.messages, nil
}

func returnsMail(body string) []byte {
	return []byte(strings.Join([]string{
		"From: depo@example.com",
		"Subject: Iade listesi",
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		body,
		"",
	}, "\r\n"))
}

func TestRunCycleImportsReturnsMail(t *testing.T) {
	db := storage.NewTestDB(t)
	cfg := config.Config{
		RawMailDir:             t.TempDir(),
		MailListenerProvider:   "imap",
		MailListenerLabel:      "INBOX",
		MailListenerFetchMax:   10,
		ReturnsSubjectKeywords: pipeline.DefaultReturnKeywords,
	}

	svc := NewService(cfg, pipeline.NewImportService(db))
	svc.connect = func(context.Context, string) (connectors.MailConnector, error) {
		return stubConnector{messages: []internal.FetchedMailMessage{
			{MessageID: "a", Raw: returnsMail("<table><tr><th>Barkod</th><th>Isim</th></tr><tr><td>0001234567</td><td>Ali</td></tr></table>")},
		}}, nil
	}

	res, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 || res.Written != 1 {
		t.Fatalf("res=%+v", res)
	}

	items, _ := db.ListExpected(context.Background())
	if len(items) != 1 || items[0].Barcode != "1234567" {
		t.Fatalf("items=%+v", items)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Config{MailListenerIntervalSec: 3600}
	svc := NewService(cfg, nil)
	svc.connect = func(context.Context, string) (connectors.MailConnector, error) {
		return nil, fmt.Errorf("offline")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("err=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewConnectorUnknownProvider(t *testing.T) {
	if _, err := NewConnector(context.Background(), config.Config{}, "pop3"); err == nil {
		t.Fatal("expected error")
	}
}
