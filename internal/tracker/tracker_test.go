package tracker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"iadetakip/internal"
	"iadetakip/internal/pipeline"
	"iadetakip/internal/storage"
)

func newTracker(t *testing.T) (*Tracker, *storage.DB) {
	t.Helper()
	db := storage.NewTestDB(t)
	return New(db), db
}

func importCSV(t *testing.T, tr *Tracker, body string) internal.ImportResult {
	t.Helper()
	res, err := tr.Import(context.Background(), []pipeline.InputFile{{Name: "liste.csv", Content: []byte(body)}})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	return res
}

func TestTrackerImportScanMissing(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	importCSV(t, tr, "BARKOD;ISIM\n000123;A\n456;B\n")
	if got := tr.Stats(); got.Expected != 2 || got.Missing != 2 {
		t.Fatalf("stats=%+v", got)
	}

	if _, ok, err := tr.Scan(ctx, "123"); err != nil || !ok {
		t.Fatalf("scan ok=%v err=%v", ok, err)
	}

	missing := tr.Missing()
	if len(missing) != 1 || missing[0].Name != "B" {
		t.Fatalf("missing=%+v", missing)
	}
	if s := tr.Status(); !strings.HasPrefix(s, "Okundu: 123") {
		t.Fatalf("status=%q", s)
	}
}

func TestTrackerScanUnexpectedCode(t *testing.T) {
	tr, _ := newTracker(t)
	if _, _, err := tr.Scan(context.Background(), "999"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(tr.Status(), "beklenen listede yok") {
		t.Fatalf("status=%q", tr.Status())
	}
	if len(tr.Received()) != 1 {
		t.Fatalf("received=%d", len(tr.Received()))
	}
}

func TestTrackerScanInvalid(t *testing.T) {
	tr, _ := newTracker(t)
	_, ok, err := tr.Scan(context.Background(), "abc")
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !strings.HasPrefix(tr.Status(), "Geçersiz barkod") {
		t.Fatalf("status=%q", tr.Status())
	}
}

func TestTrackerDeleteMatchesLegacySpelling(t *testing.T) {
	tr, db := newTracker(t)
	ctx := context.Background()

	now := time.Now()
	if err := db.UpsertExpected(ctx, []internal.ExpectedItem{
		{Barcode: "000777", AddedAt: now},
		{Barcode: "888", AddedAt: now},
	}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	n, err := tr.DeleteExpected(ctx, "777")
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	got := tr.Expected()
	if len(got) != 1 || got[0].Barcode != "888" {
		t.Fatalf("expected=%+v", got)
	}

	if _, err := tr.DeleteExpected(ctx, "", "x"); !errors.Is(err, ErrNoBarcodes) {
		t.Fatalf("err=%v", err)
	}
}

func TestTrackerDeleteCountsOnlyStoredCodes(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	importCSV(t, tr, "BARKOD\n1\n2\n")
	if _, _, err := tr.Scan(ctx, "1"); err != nil {
		t.Fatal(err)
	}

	n, err := tr.DeleteExpected(ctx, "999")
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if tr.Status() != "0 beklenen kayıt silindi" {
		t.Fatalf("status=%q", tr.Status())
	}

	n, err = tr.DeleteReceived(ctx, "001", "1", "5")
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if got := tr.Stats(); got.Expected != 2 || got.Received != 0 {
		t.Fatalf("stats=%+v", got)
	}
}

func TestTrackerClear(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	importCSV(t, tr, "BARKOD\n1\n2\n")
	if _, _, err := tr.Scan(ctx, "1"); err != nil {
		t.Fatal(err)
	}

	if err := tr.ClearReceived(ctx); err != nil {
		t.Fatal(err)
	}
	if s := tr.Stats(); s.Expected != 2 || s.Received != 0 {
		t.Fatalf("stats=%+v", s)
	}

	if _, _, err := tr.Scan(ctx, "2"); err != nil {
		t.Fatal(err)
	}
	if err := tr.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	if s := tr.Stats(); s != (internal.Stats{}) {
		t.Fatalf("stats=%+v", s)
	}
}

func TestTrackerDisabledStore(t *testing.T) {
	tr := New(storage.Disabled{Missing: []string{"SUPABASE_URL", "SUPABASE_ANON_KEY"}})
	ctx := context.Background()

	want := tr.Status()
	if !strings.Contains(want, "SUPABASE_URL") {
		t.Fatalf("status=%q", want)
	}

	if err := tr.Refresh(ctx); !errors.Is(err, storage.ErrNotConfigured) {
		t.Fatalf("refresh err=%v", err)
	}
	if _, _, err := tr.Scan(ctx, "123"); !errors.Is(err, storage.ErrNotConfigured) {
		t.Fatalf("scan err=%v", err)
	}
	if err := tr.ClearAll(ctx); !errors.Is(err, storage.ErrNotConfigured) {
		t.Fatalf("clear err=%v", err)
	}
	if tr.Status() != want {
		t.Fatalf("status changed to %q", tr.Status())
	}
}

func TestTrackerExportMissing(t *testing.T) {
	tr, _ := newTracker(t)
	importCSV(t, tr, "BARKOD;ISIM\n10;A\n20;B\n")
	if _, _, err := tr.Scan(context.Background(), "10"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := tr.ExportMissing(&buf); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, _ := f.GetRows(pipeline.MissingSheet)
	if len(rows) != 2 || rows[1][0] != "20" {
		t.Fatalf("rows=%v", rows)
	}
}
