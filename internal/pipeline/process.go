package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"iadetakip/internal"
	"iadetakip/internal/storage"
)

// ErrNoValidRows is returned when none of the imported files carried a
// row with a valid barcode. Nothing is written in that case.
var ErrNoValidRows = errors.New("no rows with a valid barcode")

type ImportService struct {
	store storage.Store
	now   func() time.Time
}

func NewImportService(store storage.Store) *ImportService {
	return &ImportService{store: store, now: time.Now}
}

// Import reads every file, concatenates their rows and upserts them into
// the expected table in one call. A later row with the same barcode
// overwrites an earlier one.
func (s *ImportService) Import(ctx context.Context, files []InputFile) (internal.ImportResult, error) {
	res := internal.ImportResult{BatchID: uuid.NewString(), Files: len(files)}
	start := time.Now()

	var rows []internal.ImportRow
	for _, file := range files {
		parsed, err := ExtractRows(file)
		if err != nil {
			return res, err
		}
		rows = append(rows, parsed.Rows...)
		res.Skipped += parsed.Skipped
	}
	res.Rows = len(rows)

	if len(rows) == 0 {
		slog.Warn("import produced no rows", "batch", res.BatchID, "files", res.Files, "skipped", res.Skipped)
		return res, ErrNoValidRows
	}

	items := expectedFromRows(rows, s.now())
	if err := s.store.UpsertExpected(ctx, items); err != nil {
		return res, fmt.Errorf("upserting %d expected items: %w", len(items), err)
	}
	res.Written = len(items)

	slog.Info("import done",
		"batch", res.BatchID,
		"files", res.Files,
		"rows", res.Rows,
		"written", res.Written,
		"skipped", res.Skipped,
		"ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// ImportMail imports the returns list carried by a raw message. Messages
// that do not look like a returns list are left alone and reported as
// skipped through the detection result.
func (s *ImportService) ImportMail(ctx context.Context, raw []byte, keywords []string) (internal.ImportResult, DetectResult, error) {
	mail, err := ReadMail(raw)
	if err != nil {
		return internal.ImportResult{}, DetectResult{}, err
	}

	detect := DetectReturnList(mail.Subject, mail.Text, mail.HTML, mail.AttachmentNames, keywords)
	if !detect.IsReturnList || len(mail.Files) == 0 {
		return internal.ImportResult{}, detect, nil
	}

	res, err := s.Import(ctx, mail.Files)
	return res, detect, err
}

func expectedFromRows(rows []internal.ImportRow, now time.Time) []internal.ExpectedItem {
	index := map[string]int{}
	out := make([]internal.ExpectedItem, 0, len(rows))
	for _, r := range rows {
		item := internal.ExpectedItem{Barcode: r.Barcode, Name: r.Name, Phone: r.Phone, AddedAt: now}
		if i, ok := index[r.Barcode]; ok {
			out[i] = item
			continue
		}
		index[r.Barcode] = len(out)
		out = append(out, item)
	}
	return out
}
