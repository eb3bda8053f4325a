package pipeline

import (
	"strings"

	"iadetakip/internal/util"
)

// NormalizeBarcode returns the canonical form of a barcode: ASCII digits
// only, without leading zeros. "" means the input carries no barcode.
func NormalizeBarcode(raw string) string {
	return strings.TrimLeft(util.DigitsOnly(raw), "0")
}

// NormalizeBarcodes normalizes a list and drops invalid and duplicate values.
func NormalizeBarcodes(raw []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		code := NormalizeBarcode(r)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
