package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"iadetakip/internal/storage"
)

// SyncService copies both tables from one store into another, typically
// the hosted tables into a local SQLite backup.
type SyncService struct {
	src storage.Store
	dst storage.Store
}

type MirrorResult struct {
	Expected int
	Received int
}

func NewSyncService(src, dst storage.Store) *SyncService {
	return &SyncService{src: src, dst: dst}
}

// Mirror replaces the destination contents with a snapshot of the source.
// The source is read completely before the destination is touched.
func (s *SyncService) Mirror(ctx context.Context) (MirrorResult, error) {
	start := time.Now()

	expected, err := s.src.ListExpected(ctx)
	if err != nil {
		return MirrorResult{}, fmt.Errorf("reading expected: %w", err)
	}
	received, err := s.src.ListReceived(ctx)
	if err != nil {
		return MirrorResult{}, fmt.Errorf("reading received: %w", err)
	}

	if err := s.dst.ClearExpected(ctx); err != nil {
		return MirrorResult{}, err
	}
	if err := s.dst.ClearReceived(ctx); err != nil {
		return MirrorResult{}, err
	}
	if err := s.dst.UpsertExpected(ctx, expected); err != nil {
		return MirrorResult{}, err
	}
	if err := s.dst.UpsertReceived(ctx, received); err != nil {
		return MirrorResult{}, err
	}

	res := MirrorResult{Expected: len(expected), Received: len(received)}
	slog.Info("mirror done", "expected", res.Expected, "received", res.Received, "ms", time.Since(start).Milliseconds())
	return res, nil
}
