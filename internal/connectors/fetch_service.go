package connectors

import (
	"context"
	"errors"
	"log/slog"

	"iadetakip/internal"
	"iadetakip/internal/pipeline"
)

// MailImporter imports the returns list carried by one raw message.
type MailImporter interface {
	ImportMail(ctx context.Context, raw []byte, keywords []string) (internal.ImportResult, pipeline.DetectResult, error)
}

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
	importer  MailImporter
	keywords  []string
}

type FetchResult struct {
	Fetched  int
	New      int
	Imported int
	Written  int
	Ignored  int
	Failed   int
}

func NewFetchService(rawMailDir string, connector MailConnector, importer MailImporter, keywords []string) *FetchService {
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(rawMailDir),
		importer:  importer,
		keywords:  keywords,
	}
}

// FetchAndImport fetches up to max messages and imports the ones not seen
// before. A message whose import fails on a store error is forgotten so
// the next run retries it; a message with no usable rows is kept as seen.
func (s *FetchService) FetchAndImport(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		stored, err := s.store.Store(msg)
		if err != nil {
			return res, err
		}
		if !stored.New {
			continue
		}
		res.New++

		imported, detect, err := s.importer.ImportMail(ctx, msg.Raw, s.keywords)
		switch {
		case errors.Is(err, pipeline.ErrNoValidRows), errors.Is(err, pipeline.ErrUnsupportedFormat):
			slog.Warn("mail has no importable rows", "messageId", msg.MessageID, "subject", msg.Subject, "error", err)
			res.Ignored++
		case err != nil:
			slog.Error("mail import failed", "messageId", msg.MessageID, "error", err)
			if ferr := s.store.Forget(stored); ferr != nil {
				slog.Error("forgetting mail", "path", stored.RawPath, "error", ferr)
			}
			res.Failed++
		case !detect.IsReturnList || imported.BatchID == "":
			slog.Debug("mail is not a returns list", "messageId", msg.MessageID, "score", detect.Score)
			res.Ignored++
		default:
			slog.Info("mail imported", "messageId", msg.MessageID, "batch", imported.BatchID, "written", imported.Written)
			res.Imported++
			res.Written += imported.Written
		}
	}
	return res, nil
}
