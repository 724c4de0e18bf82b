package discovery

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// csvRow is the flat export shape. Column names match Entry's JSON names.
type csvRow struct {
	ID                  string `csv:"id"`
	PartNumber          string `csv:"part_number"`
	InvoiceNumber       string `csv:"invoice_number"`
	InvoiceDate         string `csv:"invoice_date"`
	DiscoveredPrice     string `csv:"discovered_price"`
	AuthorizedPrice     string `csv:"authorized_price"`
	ActionTaken         string `csv:"action_taken"`
	UserDecision        string `csv:"user_decision"`
	DiscoveryDate       string `csv:"discovery_date"`
	ProcessingSessionID string `csv:"processing_session_id"`
	Notes               string `csv:"notes"`
}

const invoiceDateLayout = "2006-01-02"

// ExportCSV writes entries with a header row. Absent values are empty cells.
func ExportCSV(w io.Writer, entries []Entry) error {
	rows := make([]*csvRow, len(entries))
	for i, e := range entries {
		rows[i] = &csvRow{
			ID:                  e.ID,
			PartNumber:          e.PartNumber,
			InvoiceNumber:       deref(e.InvoiceNumber),
			DiscoveredPrice:     decimalString(e.DiscoveredPrice),
			AuthorizedPrice:     decimalString(e.AuthorizedPrice),
			ActionTaken:         string(e.ActionTaken),
			UserDecision:        deref(e.UserDecision),
			DiscoveryDate:       e.DiscoveryDate.UTC().Format(time.RFC3339),
			ProcessingSessionID: e.ProcessingSessionID,
			Notes:               deref(e.Notes),
		}
		if e.InvoiceDate != nil {
			rows[i].InvoiceDate = e.InvoiceDate.Format(invoiceDateLayout)
		}
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write discovery csv: %w", err)
	}
	return nil
}

// ImportCSV reads entries written by ExportCSV.
func ImportCSV(r io.Reader) ([]Entry, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read discovery csv: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		e, err := row.entry()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (row *csvRow) entry() (Entry, error) {
	action, err := ParseAction(row.ActionTaken)
	if err != nil {
		return Entry{}, err
	}

	discovered, err := parseOptionalDecimal(row.DiscoveredPrice)
	if err != nil {
		return Entry{}, fmt.Errorf("discovered_price: %w", err)
	}
	authorized, err := parseOptionalDecimal(row.AuthorizedPrice)
	if err != nil {
		return Entry{}, fmt.Errorf("authorized_price: %w", err)
	}

	discoveryDate, err := time.Parse(time.RFC3339, row.DiscoveryDate)
	if err != nil {
		return Entry{}, fmt.Errorf("discovery_date: %w", err)
	}

	e := Entry{
		ID:                  row.ID,
		PartNumber:          row.PartNumber,
		InvoiceNumber:       optional(row.InvoiceNumber),
		DiscoveredPrice:     discovered,
		AuthorizedPrice:     authorized,
		ActionTaken:         action,
		UserDecision:        optional(row.UserDecision),
		DiscoveryDate:       discoveryDate,
		ProcessingSessionID: row.ProcessingSessionID,
		Notes:               optional(row.Notes),
	}

	if row.InvoiceDate != "" {
		d, err := time.Parse(invoiceDateLayout, row.InvoiceDate)
		if err != nil {
			return Entry{}, fmt.Errorf("invoice_date: %w", err)
		}
		e.InvoiceDate = &d
	}

	return e, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func parseOptionalDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	return parseDecimalText(&s)
}
