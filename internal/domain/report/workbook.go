// Package report writes the review workbook for a processed batch.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/audit"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/money"
)

// Sheet names.
const (
	SheetSummary   = "Summary"
	SheetFiles     = "Files"
	SheetResults   = "Results"
	SheetDiscovery = "Discovery"
)

var (
	filesHeader = []any{
		"File", "Invoice", "Status", "Line Items", "Diagnostics", "Discoveries", "Duration (ms)", "Error",
	}
	resultsHeader = []any{
		"File", "Invoice", "Line", "Wearer", "Item Code", "Description", "Size", "Type",
		"Qty", "Rate", "Expected", "Variance", "Status", "Issue", "Severity",
	}
	discoveryHeader = []any{
		"Part Number", "Occurrences", "Min Price", "Avg Price", "Max Price", "Invoices",
	}
)

// WriteWorkbook writes batch as an XLSX workbook. The Results sheet lists
// only lines that need review: failures and unknown parts.
func WriteWorkbook(w io.Writer, batch *audit.BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	b := &builder{file: f}
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{SheetFiles, SheetResults, SheetDiscovery} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	b.headerStyle = bold

	b.summary(batch)
	b.files(batch.Files)
	b.results(batch.Files)
	b.discovery(batch)
	if b.err != nil {
		return b.err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// builder keeps the first error so sheet writers stay linear.
type builder struct {
	file        *excelize.File
	headerStyle int
	err         error
}

func (b *builder) row(sheet string, n int, values []any) {
	if b.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		b.err = err
		return
	}
	if err := b.file.SetSheetRow(sheet, cell, &values); err != nil {
		b.err = fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
}

func (b *builder) header(sheet string, values []any) {
	b.row(sheet, 1, values)
	if b.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(values), 1)
	if err != nil {
		b.err = err
		return
	}
	if err := b.file.SetCellStyle(sheet, "A1", last, b.headerStyle); err != nil {
		b.err = fmt.Errorf("style %s header: %w", sheet, err)
	}
}

func (b *builder) summary(batch *audit.BatchResult) {
	t := batch.Totals
	rows := [][]any{
		{"Session", batch.SessionID},
		{"Files", t.Files},
		{"Completed", t.Completed},
		{"Failed", t.Failed},
		{"Cancelled", t.Cancelled},
		{"Line Items", t.LineItems},
		{"Passed", t.Passed},
		{"Failures", t.Failures},
		{"Unknown Parts", t.Unknown},
		{"Critical", t.Critical},
		{"Warnings", t.Warnings},
		{"Diagnostics", t.Diagnostics},
		{"Billed Total", money.NewFromDecimal(t.BilledTotal, money.USD).Display()},
		{"Overcharge Total", money.NewFromDecimal(t.OverchargeTotal, money.USD).Display()},
		{"Unknown Parts Billed", money.SumDisplay(unknownTotals(batch.Files))},
	}
	for i, r := range rows {
		b.row(SheetSummary, i+1, r)
	}
	if b.err == nil {
		b.err = b.file.SetColWidth(SheetSummary, "A", "B", 20)
	}
}

// unknownTotals lists the billed totals of unknown-part lines in completed
// files.
func unknownTotals(files []audit.FileResult) []decimal.Decimal {
	var totals []decimal.Decimal
	for _, f := range files {
		if f.Status != audit.StatusCompleted {
			continue
		}
		for _, r := range f.Results {
			if r.Status == invoice.StatusUnknown {
				totals = append(totals, r.LineItem.Total)
			}
		}
	}
	return totals
}

func (b *builder) files(files []audit.FileResult) {
	b.header(SheetFiles, filesHeader)
	for i, f := range files {
		errText := ""
		if f.Err != nil {
			errText = f.Err.Error()
		}
		b.row(SheetFiles, i+2, []any{
			f.Name,
			deref(f.InvoiceNumber),
			string(f.Status),
			len(f.Results),
			len(f.Diagnostics),
			f.Discoveries,
			f.Duration.Milliseconds(),
			errText,
		})
	}
}

func (b *builder) results(files []audit.FileResult) {
	b.header(SheetResults, resultsHeader)

	n := 2
	for _, f := range files {
		for _, r := range f.Results {
			if r.Status == invoice.StatusPass {
				continue
			}
			li := r.LineItem
			b.row(SheetResults, n, []any{
				f.Name,
				deref(f.InvoiceNumber),
				li.LineNumber,
				li.WearerName,
				li.ItemCode,
				li.Description,
				li.Size,
				li.ItemType,
				li.Quantity,
				li.Rate.InexactFloat64(),
				optionalFloat(r.ExpectedPrice),
				variance(r),
				string(r.Status),
				string(r.IssueType),
				string(r.Severity),
			})
			n++
		}
	}

	if n > 2 && b.err == nil {
		last, _ := excelize.CoordinatesToCellName(len(resultsHeader), n-1)
		if err := b.file.AutoFilter(SheetResults, "A1:"+last, nil); err != nil {
			b.err = fmt.Errorf("results filter: %w", err)
		}
	}
}

func (b *builder) discovery(batch *audit.BatchResult) {
	b.header(SheetDiscovery, discoveryHeader)
	for i, s := range batch.Discoveries {
		b.row(SheetDiscovery, i+2, []any{
			s.PartNumber,
			s.Occurrences,
			optionalFloat(s.MinPrice),
			optionalFloat(s.AvgPrice),
			optionalFloat(s.MaxPrice),
			strings.Join(s.Invoices, ", "),
		})
	}
}

func variance(r invoice.ValidationResult) any {
	v, ok := r.Variance()
	if !ok {
		return nil
	}
	return v.InexactFloat64()
}

func optionalFloat(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.InexactFloat64()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

