package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"iadetakip/internal"
)

const schema = `
CREATE TABLE IF NOT EXISTS expected (
  barcode TEXT PRIMARY KEY,
  isim TEXT NOT NULL DEFAULT '',
  telefon TEXT NOT NULL DEFAULT '',
  added_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS received (
  barcode TEXT PRIMARY KEY,
  added_at TEXT NOT NULL
);
`

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// DB is a Store on top of database/sql. SQLite and Postgres share the
// same schema; only placeholders differ.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

var _ Store = (*DB)(nil)

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		if d.dialect == dialectPostgres {
			parts[i] = fmt.Sprintf("$%d", start+i)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

func (d *DB) ListExpected(ctx context.Context) ([]internal.ExpectedItem, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT barcode, isim, telefon, added_at FROM expected ORDER BY added_at ASC, barcode ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing expected: %w", err)
	}
	defer rows.Close()

	var out []internal.ExpectedItem
	for rows.Next() {
		var item internal.ExpectedItem
		var addedAt string
		if err := rows.Scan(&item.Barcode, &item.Name, &item.Phone, &addedAt); err != nil {
			return nil, fmt.Errorf("scanning expected: %w", err)
		}
		item.AddedAt = parseTime(addedAt)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (d *DB) ListReceived(ctx context.Context) ([]internal.ReceivedItem, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT barcode, added_at FROM received ORDER BY added_at DESC, barcode ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing received: %w", err)
	}
	defer rows.Close()

	var out []internal.ReceivedItem
	for rows.Next() {
		var item internal.ReceivedItem
		var addedAt string
		if err := rows.Scan(&item.Barcode, &addedAt); err != nil {
			return nil, fmt.Errorf("scanning received: %w", err)
		}
		item.AddedAt = parseTime(addedAt)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (d *DB) UpsertExpected(ctx context.Context, items []internal.ExpectedItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO expected (barcode, isim, telefon, added_at) VALUES (`+d.placeholders(1, 4)+`)
ON CONFLICT(barcode) DO UPDATE SET
  isim=excluded.isim,
  telefon=excluded.telefon,
  added_at=excluded.added_at
`)
	if err != nil {
		return fmt.Errorf("upserting expected: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, item.Barcode, item.Name, item.Phone, formatTime(item.AddedAt)); err != nil {
			return fmt.Errorf("upserting expected %s: %w", item.Barcode, err)
		}
	}
	return tx.Commit()
}

func (d *DB) UpsertReceived(ctx context.Context, items []internal.ReceivedItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO received (barcode, added_at) VALUES (`+d.placeholders(1, 2)+`)
ON CONFLICT(barcode) DO UPDATE SET added_at=excluded.added_at
`)
	if err != nil {
		return fmt.Errorf("upserting received: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, item.Barcode, formatTime(item.AddedAt)); err != nil {
			return fmt.Errorf("upserting received %s: %w", item.Barcode, err)
		}
	}
	return tx.Commit()
}

func (d *DB) DeleteExpected(ctx context.Context, barcodes ...string) error {
	return d.deleteIn(ctx, TableExpected, barcodes)
}

func (d *DB) DeleteReceived(ctx context.Context, barcodes ...string) error {
	return d.deleteIn(ctx, TableReceived, barcodes)
}

func (d *DB) ClearExpected(ctx context.Context) error {
	if _, err := d.conn.ExecContext(ctx, `DELETE FROM expected`); err != nil {
		return fmt.Errorf("clearing expected: %w", err)
	}
	return nil
}

func (d *DB) ClearReceived(ctx context.Context) error {
	if _, err := d.conn.ExecContext(ctx, `DELETE FROM received`); err != nil {
		return fmt.Errorf("clearing received: %w", err)
	}
	return nil
}

func (d *DB) deleteIn(ctx context.Context, table string, barcodes []string) error {
	if len(barcodes) == 0 {
		return nil
	}
	args := make([]any, len(barcodes))
	for i, b := range barcodes {
		args[i] = b
	}
	query := `DELETE FROM ` + table + ` WHERE barcode IN (` + d.placeholders(1, len(barcodes)) + `)`
	if _, err := d.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
