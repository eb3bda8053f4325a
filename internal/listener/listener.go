package listener

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"iadetakip/internal/config"
	"iadetakip/internal/connectors"
	gmailconnector "iadetakip/internal/connectors/gmail"
	imapconnector "iadetakip/internal/connectors/imap"
)

// Service polls one mailbox and imports returns lists as they arrive.
type Service struct {
	cfg      config.Config
	importer connectors.MailImporter

	// connect is swapped in tests.
	connect func(ctx context.Context, provider string) (connectors.MailConnector, error)
}

func NewService(cfg config.Config, importer connectors.MailImporter) *Service {
	s := &Service{cfg: cfg, importer: importer}
	s.connect = func(ctx context.Context, provider string) (connectors.MailConnector, error) {
		return NewConnector(ctx, cfg, provider)
	}
	return s
}

// NewConnector builds the mail connector for provider ("gmail" or "imap").
func NewConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", provider)
	}
}

// Run repeats a fetch cycle every MailListenerIntervalSec until ctx ends.
// Cycle errors are logged and the loop goes on.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	for {
		if _, err := s.RunCycle(ctx); err != nil {
			slog.Error("listener cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) (connectors.FetchResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	conn, err := s.connect(ctx, provider)
	if err != nil {
		return connectors.FetchResult{}, err
	}

	fetch := connectors.NewFetchService(s.cfg.RawMailDir, conn, s.importer, s.cfg.ReturnsSubjectKeywords)
	res, err := fetch.FetchAndImport(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return res, err
	}

	slog.Info("listener cycle done",
		"provider", provider,
		"fetched", res.Fetched,
		"new", res.New,
		"imported", res.Imported,
		"written", res.Written,
		"ignored", res.Ignored,
		"failed", res.Failed,
	)
	return res, nil
}
