// Package validation checks billed rates against authorized part prices or a
// flat threshold. The configured mode is resolved into a strategy and then
// into a validator chain before any item is looked at.
package validation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
)

// Engine validates line items under one configuration.
type Engine struct {
	config     invoice.ValidationConfiguration
	validators []Validator
	logger     *slog.Logger
}

// NewEngine resolves config into a validator chain. It fails with a
// validation configuration error before any item is processed. lookup may be
// nil in threshold mode and is never consulted there.
func NewEngine(config invoice.ValidationConfiguration, lookup PartLookup, logger *slog.Logger) (*Engine, error) {
	strategy, err := config.Strategy()
	if err != nil {
		return nil, err
	}

	validators, err := BuildValidators(strategy, lookup)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{config: config, validators: validators, logger: logger}, nil
}

// Validate is a convenience wrapper around NewEngine and Engine.Validate.
func Validate(
	ctx context.Context,
	items []invoice.LineItem,
	config invoice.ValidationConfiguration,
	lookup PartLookup,
) ([]invoice.ValidationResult, error) {
	engine, err := NewEngine(config, lookup, nil)
	if err != nil {
		return nil, err
	}
	return engine.Validate(ctx, items)
}

// Validators returns the names of the configured chain in order.
func (e *Engine) Validators() []string {
	names := make([]string, len(e.validators))
	for i, v := range e.validators {
		names[i] = v.Name()
	}
	return names
}

// Validate returns exactly one result per item, in item order. A lookup
// failure aborts the whole call.
func (e *Engine) Validate(ctx context.Context, items []invoice.LineItem) ([]invoice.ValidationResult, error) {
	results := make([]invoice.ValidationResult, 0, len(items))
	precision := e.config.Precision()

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		check := &Check{Item: item, Precision: precision}
		for _, v := range e.validators {
			if err := v.Apply(ctx, check); err != nil {
				e.logger.Error("validation failed",
					slog.String("validator", v.Name()),
					slog.String("item_code", item.ItemCode),
					slog.Int("line", int(item.LineNumber)),
					slog.Any("error", err),
				)
				return nil, err
			}
			if check.Result != nil {
				break
			}
		}

		if check.Result == nil {
			return nil, fmt.Errorf("no validator produced a result for %s at line %d", item.ItemCode, item.LineNumber)
		}
		results = append(results, *check.Result)
	}

	return results, nil
}

// Summary holds result counts for one validation pass.
type Summary struct {
	Total      int                       `json:"total"`
	ByStatus   map[invoice.Status]int    `json:"by_status"`
	ByIssue    map[invoice.IssueType]int `json:"by_issue"`
	BySeverity map[invoice.Severity]int  `json:"by_severity"`
}

// Summarize counts results.
func Summarize(results []invoice.ValidationResult) Summary {
	s := Summary{
		Total:      len(results),
		ByStatus:   make(map[invoice.Status]int),
		ByIssue:    make(map[invoice.IssueType]int),
		BySeverity: make(map[invoice.Severity]int),
	}
	for _, r := range results {
		s.ByStatus[r.Status]++
		s.ByIssue[r.IssueType]++
		s.BySeverity[r.Severity]++
	}
	return s
}

// Unknown returns the items whose part was not found, in result order.
func Unknown(results []invoice.ValidationResult) []invoice.LineItem {
	var items []invoice.LineItem
	for _, r := range results {
		if r.IssueType == invoice.IssuePartNotFound {
			items = append(items, r.LineItem)
		}
	}
	return items
}
