// Package audit runs the parse, validate and discover pipeline over a batch of
// invoice documents on a bounded worker pool.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/discovery"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice/parser"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice/validation"
)

const tracerName = "github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/audit"

// Document is one invoice's extracted text.
type Document struct {
	Name          string
	Pages         []string
	InvoiceNumber *string
	InvoiceDate   *time.Time

	// ReadErr is set when the document could not be loaded. The file is
	// reported failed without being parsed.
	ReadErr error
}

// FileStatus is the final state of one document in a batch.
type FileStatus string

const (
	StatusCompleted FileStatus = "completed"
	StatusFailed    FileStatus = "failed"
	StatusCancelled FileStatus = "cancelled"
)

// FileResult is the outcome for one document.
type FileResult struct {
	Name          string
	InvoiceNumber *string
	Status        FileStatus
	Results       []invoice.ValidationResult
	Diagnostics   []invoice.Diagnostic
	HeaderLines   int
	Discoveries   int
	Duration      time.Duration
	Err           error

	entryIDs []string
}

// Totals summarize completed files only.
type Totals struct {
	Files     int
	Completed int
	Failed    int
	Cancelled int

	LineItems   int
	Passed      int
	Failures    int
	Unknown     int
	Critical    int
	Warnings    int
	Diagnostics int

	BilledTotal     decimal.Decimal
	OverchargeTotal decimal.Decimal
}

// BatchResult is available once every submitted file has finished.
// Discoveries summarize the entries recorded by completed files, the same
// files Totals count.
type BatchResult struct {
	SessionID   string
	Files       []FileResult
	Totals      Totals
	Discoveries []discovery.PartSummary
}

// Config configures a Processor.
type Config struct {
	Workers     int           // Concurrent files (default: GOMAXPROCS)
	FileTimeout time.Duration // Per-file limit (default: 2m)
	Validation  invoice.ValidationConfiguration
	Parser      parser.ParserConfig
}

// Processor validates batches of invoice documents.
type Processor struct {
	config     Config
	lookup     validation.PartLookup
	aggregator *discovery.Aggregator
	metrics    *Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewProcessor checks the configuration up front so a bad validation mode
// fails before any file is read. lookup may be nil in threshold mode.
func NewProcessor(
	cfg Config,
	lookup validation.PartLookup,
	aggregator *discovery.Aggregator,
	logger *slog.Logger,
) (*Processor, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := validation.NewEngine(cfg.Validation, lookup, logger); err != nil {
		return nil, err
	}
	if _, err := parser.NewParser(cfg.Parser); err != nil {
		return nil, fmt.Errorf("parser config: %w", err)
	}

	return &Processor{
		config:     cfg,
		lookup:     lookup,
		aggregator: aggregator,
		tracer:     otel.Tracer(tracerName),
		logger:     logger,
	}, nil
}

// WithMetrics attaches Prometheus collectors.
func (p *Processor) WithMetrics(m *Metrics) *Processor {
	p.metrics = m
	return p
}

// WithTracer overrides the global OpenTelemetry tracer.
func (p *Processor) WithTracer(t trace.Tracer) *Processor {
	p.tracer = t
	return p
}

// ProcessBatch processes docs with at most Config.Workers files in flight.
// Cancelling ctx stops new files from starting; files already started run to
// completion or their own timeout, and the rest are reported as cancelled.
// Totals and discovery summaries are computed after every worker returns.
func (p *Processor) ProcessBatch(ctx context.Context, sessionID string, docs []Document) (*BatchResult, error) {
	if sessionID == "" {
		return nil, errors.New("process batch: session id is required")
	}

	files := make([]FileResult, len(docs))
	slots := make(chan struct{}, p.config.Workers)
	var g errgroup.Group

	p.logger.Info("batch started",
		slog.String("session_id", sessionID),
		slog.Int("files", len(docs)),
		slog.Int("workers", p.config.Workers),
	)

	submitted := 0
submit:
	for i, doc := range docs {
		select {
		case <-ctx.Done():
			break submit
		case slots <- struct{}{}:
		}
		// a slot may free up in the same instant the batch is cancelled
		if ctx.Err() != nil {
			<-slots
			break
		}

		g.Go(func() error {
			defer func() { <-slots }()
			// started files are not interrupted by batch cancellation
			files[i] = p.ProcessFile(context.WithoutCancel(ctx), sessionID, doc)
			return nil
		})
		submitted++
	}

	_ = g.Wait()

	for i := submitted; i < len(docs); i++ {
		files[i] = FileResult{
			Name:          docs[i].Name,
			InvoiceNumber: docs[i].InvoiceNumber,
			Status:        StatusCancelled,
			Err:           context.Cause(ctx),
		}
		p.metrics.observe(files[i])
	}

	batch := &BatchResult{
		SessionID: sessionID,
		Files:     files,
		Totals:    computeTotals(files),
	}
	if p.aggregator != nil {
		batch.Discoveries = discovery.Summarize(completedEntries(p.aggregator.Entries(sessionID), files))
	}

	p.logger.Info("batch finished",
		slog.String("session_id", sessionID),
		slog.Int("completed", batch.Totals.Completed),
		slog.Int("failed", batch.Totals.Failed),
		slog.Int("cancelled", batch.Totals.Cancelled),
		slog.Int("discovered_parts", len(batch.Discoveries)),
	)

	return batch, nil
}

// ProcessFile parses, validates and records discoveries for one document
// within Config.FileTimeout. Failures are reported in the result, not returned.
func (p *Processor) ProcessFile(ctx context.Context, sessionID string, doc Document) FileResult {
	start := time.Now()
	p.metrics.workerStarted()
	defer p.metrics.workerDone()

	ctx, cancel := context.WithTimeout(ctx, p.config.FileTimeout)
	defer cancel()

	ctx, span := p.tracer.Start(ctx, "audit.process_file", trace.WithAttributes(
		attribute.String("file.name", doc.Name),
		attribute.String("session.id", sessionID),
		attribute.Int("file.pages", len(doc.Pages)),
	))
	defer span.End()

	fr := FileResult{Name: doc.Name, InvoiceNumber: doc.InvoiceNumber}
	err := p.run(ctx, sessionID, doc, &fr)
	fr.Duration = time.Since(start)

	logger := p.logger.With(slog.String("file", doc.Name), slog.String("session_id", sessionID))
	if err != nil {
		fr.Status = StatusFailed
		fr.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.failure(invoice.KindOf(err))
		logger.Error("file failed", slog.Any("error", err), slog.Duration("duration", fr.Duration))
	} else {
		fr.Status = StatusCompleted
		span.SetAttributes(
			attribute.Int("file.line_items", len(fr.Results)),
			attribute.Int("file.diagnostics", len(fr.Diagnostics)),
		)
		logger.Info("file processed",
			slog.Int("line_items", len(fr.Results)),
			slog.Int("diagnostics", len(fr.Diagnostics)),
			slog.Int("header_lines", fr.HeaderLines),
			slog.Int("discoveries", fr.Discoveries),
			slog.Duration("duration", fr.Duration),
		)
	}

	p.metrics.observe(fr)
	return fr
}

func (p *Processor) run(ctx context.Context, sessionID string, doc Document, fr *FileResult) error {
	if doc.ReadErr != nil {
		return doc.ReadErr
	}

	// parser and engine are local to this file
	prs, err := parser.NewParser(p.config.Parser)
	if err != nil {
		return err
	}
	engine, err := validation.NewEngine(p.config.Validation, p.lookup, p.logger)
	if err != nil {
		return err
	}

	diags := invoice.NewDiagnostics()
	items := prs.ParsePages(doc.Pages, diags)
	fr.Diagnostics = diags.Entries()
	fr.HeaderLines = diags.HeaderLines()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("parse %s: %w", doc.Name, err)
	}

	results, err := engine.Validate(ctx, items)
	if err != nil {
		return fmt.Errorf("validate %s: %w", doc.Name, err)
	}

	if p.aggregator != nil {
		for _, item := range validation.Unknown(results) {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("record discoveries for %s: %w", doc.Name, err)
			}
			entry, err := p.aggregator.Record(ctx, item, sessionID, doc.InvoiceNumber, doc.InvoiceDate)
			if err != nil {
				return err
			}
			fr.entryIDs = append(fr.entryIDs, entry.ID)
			fr.Discoveries++
		}
	}

	fr.Results = results
	return nil
}

// completedEntries keeps the entries recorded by completed files. Entries a
// failed file appended before failing stay in the log but not in the summary.
func completedEntries(entries []discovery.Entry, files []FileResult) []discovery.Entry {
	ids := make(map[string]struct{})
	for _, f := range files {
		if f.Status != StatusCompleted {
			continue
		}
		for _, id := range f.entryIDs {
			ids[id] = struct{}{}
		}
	}

	kept := make([]discovery.Entry, 0, len(ids))
	for _, e := range entries {
		if _, ok := ids[e.ID]; ok {
			kept = append(kept, e)
		}
	}
	return kept
}

func computeTotals(files []FileResult) Totals {
	t := Totals{Files: len(files)}

	for _, f := range files {
		switch f.Status {
		case StatusFailed:
			t.Failed++
			continue
		case StatusCancelled:
			t.Cancelled++
			continue
		}

		t.Completed++
		t.Diagnostics += len(f.Diagnostics)
		for _, r := range f.Results {
			t.LineItems++
			t.BilledTotal = t.BilledTotal.Add(r.LineItem.Total)

			switch r.Status {
			case invoice.StatusPass:
				t.Passed++
			case invoice.StatusFail:
				t.Failures++
			case invoice.StatusUnknown:
				t.Unknown++
			}

			switch r.Severity {
			case invoice.SeverityCritical:
				t.Critical++
			case invoice.SeverityWarning:
				t.Warnings++
			}

			if r.IssueType == invoice.IssueRateHigh {
				if v, ok := r.Variance(); ok {
					qty := decimal.NewFromInt(int64(r.LineItem.Quantity))
					t.OverchargeTotal = t.OverchargeTotal.Add(v.Mul(qty))
				}
			}
		}
	}

	return t
}
