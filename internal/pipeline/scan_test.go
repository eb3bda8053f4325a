package pipeline

import (
	"context"
	"testing"
	"time"

	"iadetakip/internal/storage"
)

func TestScanDoubleScanKeepsOneRecord(t *testing.T) {
	db := storage.NewTestDB(t)
	svc := NewScanService(db)
	ctx := context.Background()

	t1 := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	svc.now = func() time.Time { return t1 }
	if _, ok, err := svc.Ingest(ctx, "000123"); err != nil || !ok {
		t.Fatalf("first scan ok=%v err=%v", ok, err)
	}
	svc.now = func() time.Time { return t2 }
	item, ok, err := svc.Ingest(ctx, "123")
	if err != nil || !ok {
		t.Fatalf("second scan ok=%v err=%v", ok, err)
	}
	if item.Barcode != "123" {
		t.Fatalf("barcode=%q", item.Barcode)
	}

	items, _ := db.ListReceived(ctx)
	if len(items) != 1 || !items[0].AddedAt.Equal(t2) {
		t.Fatalf("items=%+v", items)
	}
}

func TestScanInvalidCodeNoWrite(t *testing.T) {
	db := storage.NewTestDB(t)
	svc := NewScanService(db)

	_, ok, err := svc.Ingest(context.Background(), "  --  ")
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	items, _ := db.ListReceived(context.Background())
	if len(items) != 0 {
		t.Fatalf("len=%d", len(items))
	}
}
