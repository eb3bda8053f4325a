package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"iadetakip/internal"
	"iadetakip/internal/pipeline"
	"iadetakip/internal/storage"
)

// ErrNoBarcodes is returned by the delete operations when none of the
// given values is a valid barcode.
var ErrNoBarcodes = errors.New("no valid barcodes given")

// Tracker keeps the last snapshot of both tables and a status line for
// the operator. Every mutation reloads both tables afterwards.
type Tracker struct {
	store   storage.Store
	imports *pipeline.ImportService
	scans   *pipeline.ScanService
	now     func() time.Time

	mu        sync.RWMutex
	expected  []internal.ExpectedItem
	received  []internal.ReceivedItem
	status    string
	refreshed time.Time
}

func New(store storage.Store) *Tracker {
	t := &Tracker{
		store:   store,
		imports: pipeline.NewImportService(store),
		scans:   pipeline.NewScanService(store),
		now:     time.Now,
		status:  "Hazır",
	}
	if d, ok := store.(storage.Disabled); ok {
		t.status = d.Reason()
	}
	return t
}

// Refresh reloads both tables wholesale.
func (t *Tracker) Refresh(ctx context.Context) error {
	expected, err := t.store.ListExpected(ctx)
	if err != nil {
		t.fail("Liste yüklenemedi", err)
		return err
	}
	received, err := t.store.ListReceived(ctx)
	if err != nil {
		t.fail("Liste yüklenemedi", err)
		return err
	}

	now := t.now()
	stats := pipeline.Summarize(expected, received, now)

	t.mu.Lock()
	t.expected = expected
	t.received = received
	t.refreshed = now
	t.status = fmt.Sprintf("%d beklenen, %d gelen, %d eksik", stats.Expected, stats.Received, stats.Missing)
	t.mu.Unlock()
	return nil
}

func (t *Tracker) Import(ctx context.Context, files []pipeline.InputFile) (internal.ImportResult, error) {
	res, err := t.imports.Import(ctx, files)
	if err != nil {
		t.fail("İçe aktarma başarısız", err)
		return res, err
	}
	t.after(ctx, fmt.Sprintf("%d kayıt içe aktarıldı (%d satır atlandı)", res.Written, res.Skipped))
	return res, nil
}

// Scan records one scanned or typed code. ok is false for a code with no
// digits; nothing is written then.
func (t *Tracker) Scan(ctx context.Context, raw string) (internal.ReceivedItem, bool, error) {
	item, ok, err := t.scans.Ingest(ctx, raw)
	if err != nil {
		t.fail("Okutma kaydedilemedi", err)
		return item, false, err
	}
	if !ok {
		t.setStatus(fmt.Sprintf("Geçersiz barkod: %q", raw))
		return item, false, nil
	}

	msg := "Okundu: " + item.Barcode
	if !t.isExpected(item.Barcode) {
		msg += " (beklenen listede yok)"
	}
	t.after(ctx, msg)
	return item, true, nil
}

func (t *Tracker) DeleteExpected(ctx context.Context, barcodes ...string) (int, error) {
	t.mu.RLock()
	stored := make([]string, 0, len(t.expected))
	for _, e := range t.expected {
		stored = append(stored, e.Barcode)
	}
	t.mu.RUnlock()

	targets, n := matchStored(stored, barcodes)
	if len(targets) == 0 {
		return 0, ErrNoBarcodes
	}
	if err := t.store.DeleteExpected(ctx, targets...); err != nil {
		t.fail("Silme başarısız", err)
		return 0, err
	}
	t.after(ctx, fmt.Sprintf("%d beklenen kayıt silindi", n))
	return n, nil
}

func (t *Tracker) DeleteReceived(ctx context.Context, barcodes ...string) (int, error) {
	t.mu.RLock()
	stored := make([]string, 0, len(t.received))
	for _, r := range t.received {
		stored = append(stored, r.Barcode)
	}
	t.mu.RUnlock()

	targets, n := matchStored(stored, barcodes)
	if len(targets) == 0 {
		return 0, ErrNoBarcodes
	}
	if err := t.store.DeleteReceived(ctx, targets...); err != nil {
		t.fail("Silme başarısız", err)
		return 0, err
	}
	t.after(ctx, fmt.Sprintf("%d gelen kayıt silindi", n))
	return n, nil
}

func (t *Tracker) ClearExpected(ctx context.Context) error {
	if err := t.store.ClearExpected(ctx); err != nil {
		t.fail("Temizleme başarısız", err)
		return err
	}
	t.after(ctx, "Beklenen liste temizlendi")
	return nil
}

func (t *Tracker) ClearReceived(ctx context.Context) error {
	if err := t.store.ClearReceived(ctx); err != nil {
		t.fail("Temizleme başarısız", err)
		return err
	}
	t.after(ctx, "Gelen liste temizlendi")
	return nil
}

func (t *Tracker) ClearAll(ctx context.Context) error {
	if err := t.store.ClearExpected(ctx); err != nil {
		t.fail("Temizleme başarısız", err)
		return err
	}
	if err := t.store.ClearReceived(ctx); err != nil {
		t.fail("Temizleme başarısız", err)
		return err
	}
	t.after(ctx, "Tüm veriler temizlendi")
	return nil
}

func (t *Tracker) Expected() []internal.ExpectedItem {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]internal.ExpectedItem(nil), t.expected...)
}

func (t *Tracker) Received() []internal.ReceivedItem {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]internal.ReceivedItem(nil), t.received...)
}

// Missing is recomputed from the snapshot on every call.
func (t *Tracker) Missing() []internal.MissingItem {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return pipeline.Missing(t.expected, t.received, t.now())
}

func (t *Tracker) Stats() internal.Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return pipeline.Summarize(t.expected, t.received, t.now())
}

func (t *Tracker) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// RefreshedAt is the time of the last successful refresh.
func (t *Tracker) RefreshedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.refreshed
}

func (t *Tracker) ExportMissing(w io.Writer) error {
	return pipeline.ExportMissingXLSX(w, t.Missing())
}

func (t *Tracker) ExportReceived(w io.Writer) error {
	return pipeline.ExportReceivedXLSX(w, t.Received())
}

func (t *Tracker) isExpected(code string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.expected {
		if pipeline.NormalizeBarcode(e.Barcode) == code {
			return true
		}
	}
	return false
}

// after refreshes following a successful mutation. A failed refresh
// leaves its own status; the mutation itself already succeeded.
func (t *Tracker) after(ctx context.Context, msg string) {
	if err := t.Refresh(ctx); err != nil {
		return
	}
	t.setStatus(msg)
}

func (t *Tracker) setStatus(msg string) {
	t.mu.Lock()
	t.status = msg
	t.mu.Unlock()
}

func (t *Tracker) fail(prefix string, err error) {
	if d, ok := t.store.(storage.Disabled); ok {
		t.setStatus(d.Reason())
		return
	}
	slog.Error(prefix, "error", err)
	t.setStatus(prefix + ": " + err.Error())
}

// matchStored returns the canonical form of every requested barcode plus
// any stored spelling of it, so rows written before normalization are
// removed too. found counts the requested codes present in stored.
func matchStored(stored []string, requested []string) (targets []string, found int) {
	codes := pipeline.NormalizeBarcodes(requested)
	if len(codes) == 0 {
		return nil, 0
	}
	want := map[string]bool{}
	for _, c := range codes {
		want[c] = false
	}

	targets = append([]string(nil), codes...)
	for _, s := range stored {
		code := pipeline.NormalizeBarcode(s)
		seen, ok := want[code]
		if !ok {
			continue
		}
		if !seen {
			want[code] = true
			found++
		}
		if s != code {
			targets = append(targets, s)
		}
	}
	return targets, found
}
