package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"iadetakip/internal"
)

const (
	TableExpected = "expected"
	TableReceived = "received"
)

// ErrNotConfigured is returned by every operation of a store whose
// backend credentials are missing.
var ErrNotConfigured = errors.New("backend not configured")

// Store is the two-table backend: expected and received, both keyed by
// canonical barcode.
type Store interface {
	ListExpected(ctx context.Context) ([]internal.ExpectedItem, error)
	ListReceived(ctx context.Context) ([]internal.ReceivedItem, error)
	UpsertExpected(ctx context.Context, items []internal.ExpectedItem) error
	UpsertReceived(ctx context.Context, items []internal.ReceivedItem) error
	DeleteExpected(ctx context.Context, barcodes ...string) error
	DeleteReceived(ctx context.Context, barcodes ...string) error
	ClearExpected(ctx context.Context) error
	ClearReceived(ctx context.Context) error
	Close() error
}

// Disabled stands in for a store whose credentials are absent.
type Disabled struct {
	Missing []string
}

func (d Disabled) Reason() string {
	return fmt.Sprintf("backend not configured: set %s", strings.Join(d.Missing, " and "))
}

func (d Disabled) err() error {
	return fmt.Errorf("%w: set %s", ErrNotConfigured, strings.Join(d.Missing, ", "))
}

func (d Disabled) ListExpected(context.Context) ([]internal.ExpectedItem, error) {
	return nil, d.err()
}

func (d Disabled) ListReceived(context.Context) ([]internal.ReceivedItem, error) {
	return nil, d.err()
}

func (d Disabled) UpsertExpected(context.Context, []internal.ExpectedItem) error { return d.err() }
func (d Disabled) UpsertReceived(context.Context, []internal.ReceivedItem) error { return d.err() }
func (d Disabled) DeleteExpected(context.Context, ...string) error { return d.err() }
func (d Disabled) DeleteReceived(context.Context, ...string) error { return d.err() }
func (d Disabled) ClearExpected(context.Context) error { return d.err() }
func (d Disabled) ClearReceived(context.Context) error { return d.err() }
func (d Disabled) Close() error { return nil }
