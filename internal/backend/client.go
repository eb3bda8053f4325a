package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"iadetakip/internal"
	"iadetakip/internal/config"
	"iadetakip/internal/storage"
)

const maxReadAttempts = 5

// Client talks to hosted PostgREST-style tables. Reads retry on 429 and
// 5xx with backoff; writes are sent once and report the failure.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *RateLimiter

	// legacyReceived is set once the received table turns out to use
	// received_at instead of added_at.
	legacyReceived atomic.Bool
}

var _ storage.Store = (*Client)(nil)

// StatusError is a non-2xx answer from the hosted tables.
type StatusError struct {
	Op     string
	Table  string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status=%d body=%s", e.Op, e.Table, e.Status, e.Body)
}

type expectedRow struct {
	Barcode string `json:"barcode"`
	Isim    string `json:"isim"`
	Telefon string `json:"telefon"`
	AddedAt string `json:"added_at,omitempty"`
}

// Older received tables carry received_at instead of added_at.
type receivedRow struct {
	Barcode    string `json:"barcode"`
	AddedAt    string `json:"added_at,omitempty"`
	ReceivedAt string `json:"received_at,omitempty"`
}

func NewClient(cfg config.Config) *Client {
	timeout := time.Duration(cfg.BackendTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.SupabaseURL, "/"),
		apiKey:     cfg.SupabaseAnonKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    NewRateLimiter(cfg.BackendRPS),
	}
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) ListExpected(ctx context.Context) ([]internal.ExpectedItem, error) {
	var rows []expectedRow
	if err := c.list(ctx, storage.TableExpected, &rows); err != nil {
		return nil, err
	}
	out := make([]internal.ExpectedItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, internal.ExpectedItem{
			Barcode: r.Barcode,
			Name:    r.Isim,
			Phone:   r.Telefon,
			AddedAt: parseTimestamp(r.AddedAt),
		})
	}
	return out, nil
}

func (c *Client) ListReceived(ctx context.Context) ([]internal.ReceivedItem, error) {
	var rows []receivedRow
	if err := c.list(ctx, storage.TableReceived, &rows); err != nil {
		return nil, err
	}
	out := make([]internal.ReceivedItem, 0, len(rows))
	for _, r := range rows {
		ts := r.AddedAt
		if ts == "" && r.ReceivedAt != "" {
			ts = r.ReceivedAt
			c.legacyReceived.Store(true)
		}
		out = append(out, internal.ReceivedItem{Barcode: r.Barcode, AddedAt: parseTimestamp(ts)})
	}
	return out, nil
}

func (c *Client) UpsertExpected(ctx context.Context, items []internal.ExpectedItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]expectedRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, expectedRow{Barcode: it.Barcode, Isim: it.Name, Telefon: it.Phone, AddedAt: formatTimestamp(it.AddedAt)})
	}
	return c.upsert(ctx, storage.TableExpected, rows)
}

func (c *Client) UpsertReceived(ctx context.Context, items []internal.ReceivedItem) error {
	if len(items) == 0 {
		return nil
	}
	legacy := c.legacyReceived.Load()
	err := c.upsert(ctx, storage.TableReceived, receivedRows(items, legacy))
	if legacy || !missingColumn(err, "added_at") {
		return err
	}
	c.legacyReceived.Store(true)
	return c.upsert(ctx, storage.TableReceived, receivedRows(items, true))
}

func receivedRows(items []internal.ReceivedItem, legacy bool) []receivedRow {
	rows := make([]receivedRow, 0, len(items))
	for _, it := range items {
		row := receivedRow{Barcode: it.Barcode}
		if legacy {
			row.ReceivedAt = formatTimestamp(it.AddedAt)
		} else {
			row.AddedAt = formatTimestamp(it.AddedAt)
		}
		rows = append(rows, row)
	}
	return rows
}

// missingColumn reports a PostgREST rejection naming an unknown column.
func missingColumn(err error, column string) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadRequest {
		return false
	}
	return strings.Contains(statusErr.Body, "'"+column+"'") || strings.Contains(statusErr.Body, `\"`+column+`\"`)
}

func (c *Client) DeleteExpected(ctx context.Context, barcodes ...string) error {
	return c.deleteIn(ctx, storage.TableExpected, barcodes)
}

func (c *Client) DeleteReceived(ctx context.Context, barcodes ...string) error {
	return c.deleteIn(ctx, storage.TableReceived, barcodes)
}

func (c *Client) ClearExpected(ctx context.Context) error {
	return c.write(ctx, "clear", http.MethodDelete, storage.TableExpected, url.Values{"barcode": {"not.is.null"}}, nil, nil)
}

func (c *Client) ClearReceived(ctx context.Context) error {
	return c.write(ctx, "clear", http.MethodDelete, storage.TableReceived, url.Values{"barcode": {"not.is.null"}}, nil, nil)
}

func (c *Client) list(ctx context.Context, table string, out any) error {
	u := c.tableURL(table, url.Values{"select": {"*"}})

	var lastErr error
	for attempt := 1; attempt <= maxReadAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		c.authorize(req)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = &StatusError{Op: "list", Table: table, Status: resp.StatusCode, Body: string(body)}
			if isRetryableStatus(resp.StatusCode) && attempt < maxReadAttempts {
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return err
				}
				continue
			}
			return lastErr
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding %s: %w", table, err)
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("backend request failed")
	}
	return lastErr
}

func (c *Client) upsert(ctx context.Context, table string, rows any) error {
	blob, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	header := http.Header{"Prefer": {"resolution=merge-duplicates,return=minimal"}}
	return c.write(ctx, "upsert", http.MethodPost, table, url.Values{"on_conflict": {"barcode"}}, header, blob)
}

func (c *Client) deleteIn(ctx context.Context, table string, barcodes []string) error {
	var codes []string
	for _, b := range barcodes {
		if b = strings.TrimSpace(b); b != "" {
			codes = append(codes, quoteFilterValue(b))
		}
	}
	if len(codes) == 0 {
		return nil
	}
	filter := "in.(" + strings.Join(codes, ",") + ")"
	return c.write(ctx, "delete", http.MethodDelete, table, url.Values{"barcode": {filter}}, nil, nil)
}

func (c *Client) write(ctx context.Context, op, method, table string, query url.Values, header http.Header, body []byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.tableURL(table, query), reader)
	if err != nil {
		return err
	}
	c.authorize(req)
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Op: op, Table: table, Status: resp.StatusCode, Body: string(msg)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) tableURL(table string, query url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp accepts the timestamp shapes hosted tables return, with
// or without zone. Unparseable values become the zero time.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// quoteFilterValue double-quotes one in.(...) list value so reserved
// characters such as , . : ( ) stay inside it.
func quoteFilterValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}
