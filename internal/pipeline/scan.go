package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"iadetakip/internal"
	"iadetakip/internal/storage"
)

type ScanService struct {
	store storage.Store
	now   func() time.Time
}

func NewScanService(store storage.Store) *ScanService {
	return &ScanService{store: store, now: time.Now}
}

// Ingest records one detected or typed code as received. ok is false
// when the code normalizes to nothing; no write happens then. Scanning
// the same parcel again only refreshes its timestamp.
func (s *ScanService) Ingest(ctx context.Context, raw string) (internal.ReceivedItem, bool, error) {
	code := NormalizeBarcode(raw)
	if code == "" {
		slog.Debug("scan ignored", "raw", raw)
		return internal.ReceivedItem{}, false, nil
	}

	item := internal.ReceivedItem{Barcode: code, AddedAt: s.now()}
	if err := s.store.UpsertReceived(ctx, []internal.ReceivedItem{item}); err != nil {
		return item, false, fmt.Errorf("recording scan %s: %w", code, err)
	}
	slog.Info("scan recorded", "barcode", code)
	return item, true, nil
}
