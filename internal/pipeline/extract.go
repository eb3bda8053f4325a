package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"iadetakip/internal"
	"iadetakip/internal/util"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

const headerScanRows = 5

// InputFile is one uploaded or attached file. With HeaderRequired set,
// only tables under a header with a barcode column are read.
type InputFile struct {
	Name           string
	Content        []byte
	HeaderRequired bool
}

// ParsedFile holds the rows of one file that carried a valid barcode.
type ParsedFile struct {
	Rows    []internal.ImportRow
	Skipped int
}

type table struct {
	Name string
	Rows [][]string
}

func ExtractRows(file InputFile) (ParsedFile, error) {
	source, err := detectFormat(file)
	if err != nil {
		return ParsedFile{}, err
	}

	switch source {
	case internal.SourceXLSX:
		tables, err := parseXLSX(file.Content)
		if err != nil {
			return ParsedFile{}, fmt.Errorf("reading %s: %w", file.Name, err)
		}
		return mapTables(source, file, tables), nil
	case internal.SourceCSV:
		tables, err := parseCSV(file.Content)
		if err != nil {
			return ParsedFile{}, fmt.Errorf("reading %s: %w", file.Name, err)
		}
		return mapTables(source, file, tables), nil
	case internal.SourceHTMLTable:
		tables, err := parseHTMLTables(file.Content)
		if err != nil {
			return ParsedFile{}, fmt.Errorf("reading %s: %w", file.Name, err)
		}
		return mapTables(source, file, tables), nil
	case internal.SourcePDF:
		rows, err := parsePDF(file.Name, file.Content)
		if err != nil {
			return ParsedFile{}, fmt.Errorf("reading %s: %w", file.Name, err)
		}
		return ParsedFile{Rows: rows}, nil
	default:
		return ParsedFile{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, file.Name)
	}
}

// IsImportable reports whether name/content is a format ExtractRows reads.
func IsImportable(file InputFile) bool {
	_, err := detectFormat(file)
	return err == nil
}

func detectFormat(file InputFile) (internal.RowSource, error) {
	content := file.Content
	ext := strings.ToLower(filepath.Ext(file.Name))

	switch {
	case bytes.HasPrefix(content, []byte("PK\x03\x04")):
		return internal.SourceXLSX, nil
	case bytes.HasPrefix(content, []byte("%PDF")):
		return internal.SourcePDF, nil
	case bytes.HasPrefix(content, []byte{0xD0, 0xCF, 0x11, 0xE0}):
		return "", fmt.Errorf("%w: %s is a legacy binary xls, save it as xlsx", ErrUnsupportedFormat, file.Name)
	}

	head := content
	if len(head) > 4096 {
		head = head[:4096]
	}
	if bytes.Contains(bytes.ToLower(head), []byte("<table")) || bytes.Contains(bytes.ToLower(head), []byte("<html")) {
		return internal.SourceHTMLTable, nil
	}

	switch ext {
	case ".csv", ".txt", ".tsv":
		return internal.SourceCSV, nil
	case ".xls", ".htm", ".html":
		return internal.SourceHTMLTable, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, file.Name)
}

func parseXLSX(content []byte) ([]table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			continue
		}
		for i := range rows {
			for j := range rows[i] {
				rows[i][j] = plainNumber(rows[i][j])
			}
		}
		out = append(out, table{Name: sheet, Rows: rows})
	}
	return out, nil
}

func parseCSV(content []byte) ([]table, error) {
	content = bytes.TrimPrefix(content, []byte("\xEF\xBB\xBF"))

	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = sniffDelimiter(content)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
	return []table{{Name: "csv", Rows: rows}}, nil
}

func sniffDelimiter(content []byte) rune {
	firstLine := content
	if idx := bytes.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{';', ',', '\t'} {
		if n := bytes.Count(firstLine, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func parseHTMLTables(content []byte) ([]table, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var out []table
	doc.Find("table").Each(func(i int, tbl *goquery.Selection) {
		var rows [][]string
		tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.NormalizeSpaces(cell.Text()))
			})
			rows = append(rows, cells)
		})
		if len(rows) > 0 {
			out = append(out, table{Name: fmt.Sprintf("table%d", i+1), Rows: rows})
		}
	})
	return out, nil
}

func parsePDF(name string, content []byte) ([]internal.ImportRow, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	var out []internal.ImportRow
	lineNo := 0
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			lineNo++
			code := scanDigitToken([]string{line}, nil)
			if code == "" {
				continue
			}
			out = append(out, internal.ImportRow{
				Barcode:   code,
				Source:    internal.SourcePDF,
				File:      name,
				Sheet:     fmt.Sprintf("page%d", i),
				RowNumber: lineNo,
			})
		}
	}
	return out, nil
}

// mapTables finds the header row of every table and maps the rows below it.
// A table without a recognizable header is read headerless (digit-token
// fallback) only when it is the first one and the file allows it.
func mapTables(source internal.RowSource, file InputFile, tables []table) ParsedFile {
	var out ParsedFile
	for ti, t := range tables {
		hm, start, ok := findHeader(t.Rows)
		if file.HeaderRequired && !(ok && hm.Matched(FieldBarcode)) {
			continue
		}
		if !ok {
			if ti > 0 {
				continue
			}
			hm, start = NewHeaderMap(nil), 0
		}

		for i := start; i < len(t.Rows); i++ {
			cells := normalizeCells(t.Rows[i])
			if isBlank(cells) {
				continue
			}
			row, ok := hm.MapRow(cells)
			if !ok {
				out.Skipped++
				continue
			}
			row.Source = source
			row.File = file.Name
			row.Sheet = t.Name
			row.RowNumber = i + 1
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// HasListTable reports whether html holds a table whose header names a
// barcode column.
func HasListTable(html string) bool {
	if !strings.Contains(strings.ToLower(html), "<table") {
		return false
	}
	tables, err := parseHTMLTables([]byte(html))
	if err != nil {
		return false
	}
	for _, t := range tables {
		if hm, _, ok := findHeader(t.Rows); ok && hm.Matched(FieldBarcode) {
			return true
		}
	}
	return false
}

func findHeader(rows [][]string) (HeaderMap, int, bool) {
	seen := 0
	for i, row := range rows {
		cells := normalizeCells(row)
		if isBlank(cells) {
			continue
		}
		if hm := NewHeaderMap(cells); hm.Recognized() {
			return hm, i + 1, true
		}
		seen++
		if seen >= headerScanRows {
			break
		}
	}
	return HeaderMap{}, 0, false
}

// plainNumber rewrites spreadsheet numerics such as "8.6901234567E+12" or
// "123456.0" into plain digits so barcodes survive normalization.
func plainNumber(cell string) string {
	s := strings.TrimSpace(cell)
	if s == "" || !strings.ContainsAny(s, ".eE") {
		return cell
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != float64(int64(f)) {
		return cell
	}
	return strconv.FormatInt(int64(f), 10)
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, util.NormalizeSpaces(c))
	}
	return out
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
