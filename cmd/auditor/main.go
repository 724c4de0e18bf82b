// Command auditor validates a directory of extracted invoice text against
// the parts database and writes a review workbook and discovery log export.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/audit"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/discovery"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/report"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/config"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/money"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/push"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("auditor stopped", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	deps, err := InitDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	var server *http.Server
	if deps.Registry != nil {
		server = newMetricsServer(cfg.Observability.MetricsPort, deps)
		go func() {
			logger.Info("metrics server starting", slog.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", slog.Any("error", err))
			}
		}()
	}

	if deps.Scheduler != nil {
		if err := deps.Scheduler.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	if err := processInputs(ctx, deps); err != nil {
		return err
	}

	if cfg.Batch.KeepRunning && ctx.Err() == nil {
		logger.Info("batch done, waiting for shutdown signal")
		<-ctx.Done()
	}
	logger.Info("shutting down...")
	return nil
}

// processInputs runs one batch over the input directory and writes outputs.
func processInputs(ctx context.Context, deps *Dependencies) error {
	logger := deps.Logger

	files, err := deps.Input.List(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("no invoice files found", slog.String("input_dir", deps.Config.Batch.InputDir))
		return nil
	}

	docs := make([]audit.Document, 0, len(files))
	for _, f := range files {
		doc, err := deps.Input.ReadDocument(ctx, f.Name)
		if err != nil {
			// reported as a failed file; the rest of the batch still runs
			logger.Warn("invoice unreadable", slog.String("file", f.Name), slog.Any("error", err))
			docs = append(docs, audit.Document{Name: f.Name, ReadErr: err})
			continue
		}
		docs = append(docs, audit.Document{
			Name:          doc.Name,
			Pages:         doc.Pages,
			InvoiceNumber: doc.InvoiceNumber,
			InvoiceDate:   doc.InvoiceDate,
		})
	}

	sessionID := uuid.NewString()
	batch, err := deps.Processor.ProcessBatch(ctx, sessionID, docs)
	if err != nil {
		return err
	}

	logger.Info("batch totals",
		slog.String("session_id", sessionID),
		slog.Int("files", batch.Totals.Files),
		slog.Int("line_items", batch.Totals.LineItems),
		slog.Int("failures", batch.Totals.Failures),
		slog.Int("unknown", batch.Totals.Unknown),
		slog.String("billed", money.NewFromDecimal(batch.Totals.BilledTotal, money.USD).Display()),
		slog.String("overcharge", money.NewFromDecimal(batch.Totals.OverchargeTotal, money.USD).Display()),
	)

	// outputs are written even after cancellation so partial work is reviewable
	outCtx := context.WithoutCancel(ctx)

	var workbook bytes.Buffer
	if err := report.WriteWorkbook(&workbook, batch); err != nil {
		return err
	}
	info, err := deps.Output.Save(outCtx, filepath.Base(deps.Config.Report.OutputPath), &workbook)
	if err != nil {
		return err
	}
	logger.Info("review workbook written", slog.String("path", info.Path))

	var export bytes.Buffer
	if err := discovery.ExportCSV(&export, deps.Aggregator.Entries(sessionID)); err != nil {
		return err
	}
	info, err = deps.Output.Save(outCtx, deps.Config.Discovery.ExportName, &export)
	if err != nil {
		return err
	}
	logger.Info("discovery log exported",
		slog.String("path", info.Path),
		slog.Int("parts", len(batch.Discoveries)),
	)

	alert := push.Alert{
		SessionID:  sessionID,
		Files:      batch.Totals.Files,
		Failed:     batch.Totals.Failed,
		Critical:   batch.Totals.Critical,
		Unknown:    batch.Totals.Unknown,
		Overcharge: money.NewFromDecimal(batch.Totals.OverchargeTotal, money.USD).Display(),
	}
	// a failed notification does not fail the run
	for channel, n := range deps.notifiers() {
		if err := n.NotifyBatch(outCtx, alert); err != nil {
			logger.Warn("batch notification failed", slog.String("channel", channel), slog.Any("error", err))
		}
	}

	return nil
}

// notifier is one batch alert channel.
type notifier interface {
	NotifyBatch(ctx context.Context, alert push.Alert) error
}

func (d *Dependencies) notifiers() map[string]notifier {
	channels := make(map[string]notifier, 2)
	if d.Push != nil {
		channels["push"] = d.Push
	}
	if d.Email != nil {
		channels["email"] = d.Email
	}
	return channels
}

func newMetricsServer(port int, deps *Dependencies) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.DB != nil {
			if err := deps.DB.Pool.Ping(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
