package internal

import "time"

type RowSource string

const (
	SourceXLSX      RowSource = "xlsx"
	SourceCSV       RowSource = "csv"
	SourceHTMLTable RowSource = "html_table"
	SourcePDF       RowSource = "pdf"
)

// ExpectedItem is a parcel return the operator is waiting for.
type ExpectedItem struct {
	Barcode string    `json:"barcode"`
	Name    string    `json:"isim"`
	Phone   string    `json:"telefon"`
	AddedAt time.Time `json:"added_at"`
}

// ReceivedItem is a parcel that has physically arrived.
type ReceivedItem struct {
	Barcode string    `json:"barcode"`
	AddedAt time.Time `json:"added_at"`
}

// MissingItem is an expected item with no received counterpart.
type MissingItem struct {
	ExpectedItem
	DaysPending int `json:"days_pending"`
}

// ImportRow is one spreadsheet row after header mapping.
type ImportRow struct {
	Barcode   string
	Name      string
	Phone     string
	Source    RowSource
	File      string
	Sheet     string
	RowNumber int
}

// ImportResult counts one import batch. Rows is every row with a valid
// barcode, Written the distinct barcodes upserted from them.
type ImportResult struct {
	BatchID string `json:"batchId"`
	Files   int    `json:"files"`
	Rows    int    `json:"rows"`
	Written int    `json:"written"`
	Skipped int    `json:"skipped"`
}

type Stats struct {
	Expected int `json:"expected"`
	Received int `json:"received"`
	Missing  int `json:"missing"`
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
