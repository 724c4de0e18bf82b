package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/audit"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/discovery"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
)

func result(code string, rate string, status invoice.Status, issue invoice.IssueType, severity invoice.Severity, expected *decimal.Decimal) invoice.ValidationResult {
	r := decimal.RequireFromString(rate)
	item := invoice.NewLineItem(code, 2, r, r.Mul(decimal.NewFromInt(2)))
	item.WearerName = "BILL LANGFORD"
	item.LineNumber = 7
	return invoice.ValidationResult{
		LineItem:      item,
		Status:        status,
		IssueType:     issue,
		ExpectedPrice: expected,
		ActualPrice:   r,
		Severity:      severity,
	}
}

func sampleBatch() *audit.BatchResult {
	authorized := decimal.RequireFromString("0.30")
	invoiceNumber := "4471902"
	minPrice := decimal.RequireFromString("0.45")

	return &audit.BatchResult{
		SessionID: "session-1",
		Files: []audit.FileResult{
			{
				Name:          "a.txt",
				InvoiceNumber: &invoiceNumber,
				Status:        audit.StatusCompleted,
				Results: []invoice.ValidationResult{
					result("GP0171NAVY", "0.30", invoice.StatusPass, invoice.IssueNone, invoice.SeverityInformational, &authorized),
					result("GP0171NAVY", "0.35", invoice.StatusFail, invoice.IssueRateHigh, invoice.SeverityCritical, &authorized),
					result("ZZ0001RED", "0.45", invoice.StatusUnknown, invoice.IssuePartNotFound, invoice.SeverityWarning, nil),
				},
				Discoveries: 1,
			},
			{
				Name:   "b.txt",
				Status: audit.StatusFailed,
				Err:    errors.New("lookup part GP0171NAVY: connection refused"),
			},
		},
		Totals: audit.Totals{
			Files:           2,
			Completed:       1,
			Failed:          1,
			LineItems:       3,
			Passed:          1,
			Failures:        1,
			Unknown:         1,
			Critical:        1,
			Warnings:        1,
			BilledTotal:     decimal.RequireFromString("2.20"),
			OverchargeTotal: decimal.RequireFromString("0.10"),
		},
		Discoveries: []discovery.PartSummary{
			{
				PartNumber:  "ZZ0001RED",
				Occurrences: 2,
				MinPrice:    &minPrice,
				AvgPrice:    &minPrice,
				MaxPrice:    &minPrice,
				Invoices:    []string{"4471902", "4471903"},
			},
		},
	}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, sampleBatch()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetFiles, SheetResults, SheetDiscovery}, f.GetSheetList())

	t.Run("summary", func(t *testing.T) {
		rows, err := f.GetRows(SheetSummary)
		require.NoError(t, err)
		require.Len(t, rows, 15)
		assert.Equal(t, []string{"Session", "session-1"}, rows[0])
		assert.Equal(t, []string{"Failed", "1"}, rows[3])
		assert.Equal(t, []string{"Billed Total", "$2.20"}, rows[12])
		assert.Equal(t, []string{"Overcharge Total", "$0.10"}, rows[13])
		assert.Equal(t, []string{"Unknown Parts Billed", "$0.90"}, rows[14])
	})

	t.Run("files", func(t *testing.T) {
		rows, err := f.GetRows(SheetFiles)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "Duration (ms)", rows[0][6])
		assert.Equal(t, []string{"a.txt", "4471902", "completed", "3", "0", "1", "0"}, rows[1])
		assert.Equal(t, "failed", rows[2][2])
		assert.Equal(t, "lookup part GP0171NAVY: connection refused", rows[2][7])
	})

	t.Run("results skip passing lines", func(t *testing.T) {
		rows, err := f.GetRows(SheetResults)
		require.NoError(t, err)
		require.Len(t, rows, 3)

		high := rows[1]
		assert.Equal(t, "a.txt", high[0])
		assert.Equal(t, "7", high[2])
		assert.Equal(t, "BILL LANGFORD", high[3])
		assert.Equal(t, "GP0171NAVY", high[4])
		assert.Equal(t, "2", high[8])
		assert.Equal(t, []string{"fail", "rate_high", "critical"}, high[12:15])

		unknown := rows[2]
		assert.Equal(t, "ZZ0001RED", unknown[4])
		assert.Empty(t, unknown[10])
		assert.Empty(t, unknown[11])
		assert.Equal(t, []string{"unknown", "part_not_found", "warning"}, unknown[12:15])
	})

	t.Run("discovery", func(t *testing.T) {
		rows, err := f.GetRows(SheetDiscovery)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "ZZ0001RED", rows[1][0])
		assert.Equal(t, "2", rows[1][1])
		assert.Equal(t, "4471902, 4471903", rows[1][5])
	})
}

func TestWriteWorkbook_EmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, &audit.BatchResult{SessionID: "s"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetResults)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "$0.00", mustCell(t, f, SheetSummary, "B13"))
	assert.Equal(t, "$0.00", mustCell(t, f, SheetSummary, "B15"))
}

func mustCell(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell)
	require.NoError(t, err)
	return v
}
