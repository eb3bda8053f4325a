package backend

import (
	"context"
	"testing"
	"time"

	"iadetakip/internal"
	"iadetakip/internal/storage"
)

func TestMirrorReplacesDestination(t *testing.T) {
	ctx := context.Background()
	src := storage.NewTestDB(t)
	dst := storage.NewTestDB(t)
	now := time.Now()

	if err := src.UpsertExpected(ctx, []internal.ExpectedItem{{Barcode: "1", AddedAt: now}, {Barcode: "2", AddedAt: now}}); err != nil {
		t.Fatal(err)
	}
	if err := src.UpsertReceived(ctx, []internal.ReceivedItem{{Barcode: "1", AddedAt: now}}); err != nil {
		t.Fatal(err)
	}
	if err := dst.UpsertExpected(ctx, []internal.ExpectedItem{{Barcode: "stale", AddedAt: now}}); err != nil {
		t.Fatal(err)
	}

	res, err := NewSyncService(src, dst).Mirror(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Expected != 2 || res.Received != 1 {
		t.Fatalf("res=%+v", res)
	}

	got, _ := dst.ListExpected(ctx)
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	for _, it := range got {
		if it.Barcode == "stale" {
			t.Fatal("stale row survived mirror")
		}
	}
}

func TestMirrorStopsOnSourceError(t *testing.T) {
	dst := storage.NewTestDB(t)
	ctx := context.Background()
	if err := dst.UpsertReceived(ctx, []internal.ReceivedItem{{Barcode: "5", AddedAt: time.Now()}}); err != nil {
		t.Fatal(err)
	}

	_, err := NewSyncService(storage.Disabled{Missing: []string{"SUPABASE_URL"}}, dst).Mirror(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	got, _ := dst.ListReceived(ctx)
	if len(got) != 1 {
		t.Fatalf("destination touched: len=%d", len(got))
	}
}
