package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/discovery"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/report"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/config"
)

const invoiceText = "INVOICE NUMBER 4471902\nINVOICE DATE 03/01/2024\n" +
	"WEARER# WEARER NAME ITEM DESCRIPTION SIZE TYPE BILL QTY RATE TOTAL\n" +
	"8 BILL LANGFORD GP0171NAVY PANT WORK DURAPRES COTTON 32X32 Rent 1 0.300 0.30\n" +
	"\fPAGE 2\n" +
	"9 ANA SILVA GP0171NAVX PANT WORK DURAPRES COTTON 34X30 Rent 2 0.350 0.70\n" +
	"SUBTOTAL 1.00\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	input := filepath.Join(dir, "in")
	require.NoError(t, os.Mkdir(input, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(input, "4471902.txt"), []byte(invoiceText), 0644))

	partsCSV := filepath.Join(dir, "parts.csv")
	require.NoError(t, os.WriteFile(partsCSV, []byte("part_number,authorized_price\nGP0171NAVY,0.30\n"), 0644))

	return &config.Config{
		Parts: config.PartsConfig{CSVPath: partsCSV},
		Validation: config.ValidationConfig{
			Mode:           invoice.ModePartsBased,
			PricePrecision: invoice.DefaultPricePrecision,
		},
		Batch: config.BatchConfig{
			InputDir:    input,
			Workers:     2,
			FileTimeout: time.Minute,
		},
		Discovery: config.DiscoveryConfig{
			Suggestions:     true,
			SuggestionLimit: 3,
			ExportName:      "discovery_log.csv",
		},
		Observability: config.ObservabilityConfig{MetricsEnabled: true},
		Report:        config.ReportConfig{OutputPath: filepath.Join(dir, "out", "review.xlsx")},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessInputs(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	deps, err := InitDependencies(ctx, cfg, discardLogger())
	require.NoError(t, err)
	defer deps.Cleanup()

	require.NoError(t, processInputs(ctx, deps))

	f, err := excelize.OpenFile(cfg.Report.OutputPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.SheetDiscovery)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "GP0171NAVX", rows[1][0])
	assert.Equal(t, "4471902", rows[1][5])

	exported, err := os.Open(filepath.Join(filepath.Dir(cfg.Report.OutputPath), "discovery_log.csv"))
	require.NoError(t, err)
	defer exported.Close()

	entries, err := discovery.ImportCSV(exported)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "GP0171NAVX", entries[0].PartNumber)
	assert.Equal(t, "4471902", *entries[0].InvoiceNumber)
	assert.Contains(t, *entries[0].Notes, "similar: GP0171NAVY")
}

func TestProcessInputs_UnreadableFile(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	require.NoError(t, os.Symlink(filepath.Join(cfg.Batch.InputDir, "missing.txt"), filepath.Join(cfg.Batch.InputDir, "0broken.txt")))

	deps, err := InitDependencies(ctx, cfg, discardLogger())
	require.NoError(t, err)
	defer deps.Cleanup()

	require.NoError(t, processInputs(ctx, deps))

	f, err := excelize.OpenFile(cfg.Report.OutputPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.SheetFiles)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "0broken.txt", rows[1][0])
	assert.Equal(t, "failed", rows[1][2])
	assert.Equal(t, "4471902.txt", rows[2][0])
	assert.Equal(t, "completed", rows[2][2])

	assert.FileExists(t, filepath.Join(filepath.Dir(cfg.Report.OutputPath), "discovery_log.csv"))
}

func TestMetricsServer(t *testing.T) {
	cfg := testConfig(t)
	deps, err := InitDependencies(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer deps.Cleanup()

	require.NoError(t, processInputs(context.Background(), deps))
	srv := newMetricsServer(0, deps)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `invoice_audit_files_total{status="completed"} 1`), body)
	assert.Contains(t, body, "invoice_audit_parts_discovered_total 1")
}

func TestRootCmd(t *testing.T) {
	cfg := testConfig(t)
	t.Setenv("DATABASE_ENABLED", "false")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("PUSH_TOKENS", "")
	t.Setenv("PARTS_CSV", cfg.Parts.CSVPath)
	t.Setenv("DISCOVERY_EXPORT_NAME", "discovery_log.csv")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "run", args: []string{"run", "--input", cfg.Batch.InputDir, "--output", cfg.Report.OutputPath, "--workers", "1"}},
		{name: "bad mode", args: []string{"run", "--mode", "fuzzy"}},
		{name: "export without database", args: []string{"export", "--session", "s-1", "--input", cfg.Batch.InputDir}, wantErr: errNoDatabase},
		{name: "prune without database", args: []string{"prune", "--input", cfg.Batch.InputDir}, wantErr: errNoDatabase},
		{name: "export needs session", args: []string{"export"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newRootCmd()
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs(tt.args)

			err := cmd.ExecuteContext(context.Background())
			switch {
			case tt.name == "run":
				require.NoError(t, err)
				assert.FileExists(t, cfg.Report.OutputPath)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.Error(t, err)
			}
		})
	}
}
