package pipeline

import (
	"sort"
	"time"

	"iadetakip/internal"
)

const day = 24 * time.Hour

// DaysPending is the number of whole days between addedAt and now.
func DaysPending(addedAt, now time.Time) int {
	if addedAt.IsZero() || now.Before(addedAt) {
		return 0
	}
	return int(now.Sub(addedAt) / day)
}

// ReceivedSet indexes received items by canonical barcode.
func ReceivedSet(received []internal.ReceivedItem) map[string]internal.ReceivedItem {
	set := make(map[string]internal.ReceivedItem, len(received))
	for _, r := range received {
		code := NormalizeBarcode(r.Barcode)
		if code == "" {
			continue
		}
		if prev, ok := set[code]; ok && prev.AddedAt.After(r.AddedAt) {
			continue
		}
		set[code] = r
	}
	return set
}

// Missing returns the expected items with no received item of equal
// canonical barcode, longest-pending first.
func Missing(expected []internal.ExpectedItem, received []internal.ReceivedItem, now time.Time) []internal.MissingItem {
	got := ReceivedSet(received)

	out := make([]internal.MissingItem, 0, len(expected))
	for _, e := range expected {
		code := NormalizeBarcode(e.Barcode)
		if code == "" {
			continue
		}
		if _, ok := got[code]; ok {
			continue
		}
		out = append(out, internal.MissingItem{ExpectedItem: e, DaysPending: DaysPending(e.AddedAt, now)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysPending > out[j].DaysPending
	})
	return out
}

// Summarize counts both collections and the missing set.
func Summarize(expected []internal.ExpectedItem, received []internal.ReceivedItem, now time.Time) internal.Stats {
	return internal.Stats{
		Expected: len(expected),
		Received: len(received),
		Missing:  len(Missing(expected, received, now)),
	}
}
