package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"iadetakip/internal"
)

const (
	MissingSheet  = "EksikIadeler"
	ReceivedSheet = "GelenIadeler"

	exportTimeLayout = "2006-01-02 15:04:05"
)

var (
	missingHeaders  = []string{"BARKOD_NO", "ALICI_ISIM", "ALICI_TELEFON", "KAC_GUNDUR_GELMEDI", "ILK_YUKLEME_TARIHI"}
	receivedHeaders = []string{"BARKOD_NO", "OKUNDUGU_TARIH"}
)

// MissingFileName is the download name for the missing export on day.
func MissingFileName(day time.Time) string {
	return "Eksik_Iadeler_" + day.Format("2006-01-02") + ".xlsx"
}

func ReceivedFileName(day time.Time) string {
	return "Gelen_Iadeler_" + day.Format("2006-01-02") + ".xlsx"
}

// ExportMissingXLSX writes the missing set as one sheet. Barcodes stay
// strings so long codes keep every digit.
func ExportMissingXLSX(w io.Writer, items []internal.MissingItem) error {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{it.Barcode, it.Name, it.Phone, it.DaysPending, formatExportTime(it.AddedAt)})
	}
	return writeSheet(w, MissingSheet, missingHeaders, rows)
}

func ExportReceivedXLSX(w io.Writer, items []internal.ReceivedItem) error {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{it.Barcode, formatExportTime(it.AddedAt)})
	}
	return writeSheet(w, ReceivedSheet, receivedHeaders, rows)
}

// ExportToFile creates outputPath (and its directory) and runs write on it.
func ExportToFile(outputPath string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeSheet(w io.Writer, sheet string, headers []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func formatExportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(exportTimeLayout)
}
