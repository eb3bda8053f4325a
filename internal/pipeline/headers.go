package pipeline

import (
	"strings"

	"iadetakip/internal"
	"iadetakip/internal/util"
)

type Field string

const (
	FieldBarcode Field = "barcode"
	FieldName    Field = "name"
	FieldPhone   Field = "phone"
)

// HeaderAliases lists accepted column headers per field, in priority order,
// already in NormalizeHeaderKey form.
var HeaderAliases = map[Field][]string{
	FieldBarcode: {"BARCODE", "BARKOD_NO", "BARKOD", "MUS_BARKOD_NO", "GONDERI_BARKOD", "TAKIP_NO"},
	FieldName:    {"ISIM", "ALICI_ISIM", "ALICI", "ALICI_ADI", "MUSTERI_ADI", "AD_SOYAD"},
	FieldPhone:   {"TELEFON", "ALICI_TELEFON", "GSM", "TEL", "CEP_TELEFONU"},
}

const (
	fuzzyHeaderThreshold = 0.75
	minDigitTokenLen     = 6
)

// HeaderMap holds, per field, the column indexes that carry it, ordered by
// alias priority.
type HeaderMap struct {
	Headers []string
	columns map[Field][]int
}

// NewHeaderMap resolves a header row against HeaderAliases.
func NewHeaderMap(headers []string) HeaderMap {
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = util.NormalizeHeaderKey(h)
	}

	hm := HeaderMap{Headers: headers, columns: map[Field][]int{}}
	for _, field := range []Field{FieldBarcode, FieldName, FieldPhone} {
		for _, alias := range HeaderAliases[field] {
			for i, key := range keys {
				if key == alias {
					hm.columns[field] = append(hm.columns[field], i)
				}
			}
		}
	}

	if len(hm.columns[FieldBarcode]) == 0 {
		if idx := fuzzyColumn(keys, HeaderAliases[FieldBarcode], hm.claimed()); idx >= 0 {
			hm.columns[FieldBarcode] = []int{idx}
		}
	}
	return hm
}

// Matched reports whether any header was recognized for field.
func (h HeaderMap) Matched(field Field) bool {
	return len(h.columns[field]) > 0
}

// Recognized reports whether the row looked like a header row at all.
func (h HeaderMap) Recognized() bool {
	return len(h.columns) > 0
}

// MapRow turns one data row into an ImportRow. ok is false when no
// valid barcode could be found.
func (h HeaderMap) MapRow(cells []string) (internal.ImportRow, bool) {
	row := internal.ImportRow{
		Name:  h.firstValue(FieldName, cells),
		Phone: h.firstValue(FieldPhone, cells),
	}

	if h.Matched(FieldBarcode) {
		for _, idx := range h.columns[FieldBarcode] {
			if code := NormalizeBarcode(cellAt(cells, idx)); code != "" {
				row.Barcode = code
				break
			}
		}
	} else {
		row.Barcode = scanDigitToken(cells, h.claimed())
	}

	return row, row.Barcode != ""
}

func (h HeaderMap) firstValue(field Field, cells []string) string {
	for _, idx := range h.columns[field] {
		if v := util.NormalizeSpaces(cellAt(cells, idx)); v != "" {
			return v
		}
	}
	return ""
}

func (h HeaderMap) claimed() map[int]struct{} {
	out := map[int]struct{}{}
	for _, cols := range h.columns {
		for _, idx := range cols {
			out[idx] = struct{}{}
		}
	}
	return out
}

func fuzzyColumn(keys []string, aliases []string, skip map[int]struct{}) int {
	best, bestIdx := 0.0, -1
	for i, key := range keys {
		if _, ok := skip[i]; ok || key == "" {
			continue
		}
		compactKey := strings.ReplaceAll(key, "_", "")
		for _, alias := range aliases {
			score := util.DiceCoefficient(compactKey, strings.ReplaceAll(alias, "_", ""))
			if score >= fuzzyHeaderThreshold && score > best {
				best, bestIdx = score, i
			}
		}
	}
	return bestIdx
}

// scanDigitToken finds the first purely numeric token of minDigitTokenLen
// or more characters, skipping columns already bound to a field.
func scanDigitToken(cells []string, skip map[int]struct{}) string {
	for i, cell := range cells {
		if _, ok := skip[i]; ok {
			continue
		}
		for _, tok := range util.DigitTokens(cell, minDigitTokenLen) {
			if code := NormalizeBarcode(tok); code != "" {
				return code
			}
		}
	}
	return ""
}

func cellAt(cells []string, idx int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	return ""
}
