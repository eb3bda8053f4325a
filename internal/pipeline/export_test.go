package pipeline

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"iadetakip/internal"
)

func TestExportMissingXLSX(t *testing.T) {
	added := time.Date(2026, 10, 1, 9, 30, 0, 0, time.Local)
	items := []internal.MissingItem{
		{ExpectedItem: internal.ExpectedItem{Barcode: "8690123456789012", Name: "Ayşe", Phone: "0532", AddedAt: added}, DaysPending: 17},
		{ExpectedItem: internal.ExpectedItem{Barcode: "456", Name: "Mehmet"}, DaysPending: 0},
	}

	var buf bytes.Buffer
	if err := ExportMissingXLSX(&buf, items); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(MissingSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len=%d", len(rows))
	}
	if rows[0][0] != "BARKOD_NO" || rows[0][3] != "KAC_GUNDUR_GELMEDI" {
		t.Fatalf("header=%v", rows[0])
	}
	if rows[1][0] != "8690123456789012" || rows[1][3] != "17" || rows[1][4] != "2026-10-01 09:30:00" {
		t.Fatalf("row1=%v", rows[1])
	}
	if rows[2][1] != "Mehmet" {
		t.Fatalf("row2=%v", rows[2])
	}
}

func TestExportReceivedToFile(t *testing.T) {
	day := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "out", ReceivedFileName(day))
	if filepath.Base(path) != "Gelen_Iadeler_2026-10-18.xlsx" {
		t.Fatalf("name=%s", filepath.Base(path))
	}

	items := []internal.ReceivedItem{{Barcode: "123", AddedAt: day}}
	err := ExportToFile(path, func(w io.Writer) error { return ExportReceivedXLSX(w, items) })
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(ReceivedSheet)
	if len(rows) != 2 || rows[1][0] != "123" {
		t.Fatalf("rows=%v", rows)
	}
}

func TestMissingFileName(t *testing.T) {
	got := MissingFileName(time.Date(2026, 1, 2, 23, 0, 0, 0, time.UTC))
	if got != "Eksik_Iadeler_2026-01-02.xlsx" {
		t.Fatalf("got %s", got)
	}
}
