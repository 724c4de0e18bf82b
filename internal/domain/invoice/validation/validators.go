package validation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/money"
)

// PartLookup reads reference parts. A nil part with a nil error means the part
// is not in the database; an error means the lookup itself failed.
type PartLookup interface {
	LookupPart(ctx context.Context, partNumber string) (*invoice.Part, error)
}

// Check carries one line item through the validator chain. A validator that
// sets Result ends the chain for that item.
type Check struct {
	Item      invoice.LineItem
	Part      *invoice.Part
	Precision int32
	Result    *invoice.ValidationResult
}

// Validator is one step of a validation chain.
type Validator interface {
	Name() string
	Apply(ctx context.Context, c *Check) error
}

// BuildValidators is the only place a strategy becomes a chain. The threshold
// chain never holds the lookup.
func BuildValidators(strategy invoice.Strategy, lookup PartLookup) ([]Validator, error) {
	switch s := strategy.(type) {
	case invoice.ThresholdBased:
		return []Validator{&ThresholdValidator{threshold: s.Threshold}}, nil
	case invoice.PartsBased:
		if lookup == nil {
			return nil, &invoice.Error{
				Kind:   invoice.KindValidationConfiguration,
				Reason: "parts_based mode requires a part lookup",
			}
		}
		return []Validator{
			&PartsLookupValidator{lookup: lookup},
			&PriceComparisonValidator{},
		}, nil
	default:
		return nil, &invoice.Error{
			Kind:   invoice.KindValidationConfiguration,
			Reason: fmt.Sprintf("unsupported strategy %T", strategy),
		}
	}
}

// ThresholdValidator flags rates above one flat ceiling.
type ThresholdValidator struct {
	threshold decimal.Decimal
}

func (v *ThresholdValidator) Name() string { return "threshold" }

func (v *ThresholdValidator) Apply(_ context.Context, c *Check) error {
	threshold := v.threshold
	if money.ComparePrices(c.Item.Rate, threshold, c.Precision) > 0 {
		c.Result = result(c.Item, invoice.StatusFail, invoice.IssueRateHigh, invoice.SeverityCritical, &threshold)
		return nil
	}
	c.Result = result(c.Item, invoice.StatusPass, invoice.IssueNone, invoice.SeverityInformational, &threshold)
	return nil
}

// PartsLookupValidator resolves the item's part. Missing and inactive parts
// end the chain with an unknown result.
type PartsLookupValidator struct {
	lookup PartLookup
}

func (v *PartsLookupValidator) Name() string { return "parts_lookup" }

func (v *PartsLookupValidator) Apply(ctx context.Context, c *Check) error {
	part, err := v.lookup.LookupPart(ctx, c.Item.ItemCode)
	if err != nil {
		return fmt.Errorf("lookup part %s: %w", c.Item.ItemCode, err)
	}
	if part == nil || !part.IsActive {
		c.Result = result(c.Item, invoice.StatusUnknown, invoice.IssuePartNotFound, invoice.SeverityWarning, nil)
		return nil
	}
	c.Part = part
	return nil
}

// PriceComparisonValidator compares the billed rate to the authorized price.
type PriceComparisonValidator struct{}

func (v *PriceComparisonValidator) Name() string { return "price_comparison" }

func (v *PriceComparisonValidator) Apply(_ context.Context, c *Check) error {
	if c.Part == nil {
		return fmt.Errorf("price comparison for %s: part not resolved", c.Item.ItemCode)
	}

	expected := c.Part.AuthorizedPrice
	switch money.ComparePrices(c.Item.Rate, expected, c.Precision) {
	case 1:
		c.Result = result(c.Item, invoice.StatusFail, invoice.IssueRateHigh, invoice.SeverityCritical, &expected)
	case -1:
		c.Result = result(c.Item, invoice.StatusFail, invoice.IssueRateLow, invoice.SeverityWarning, &expected)
	default:
		c.Result = result(c.Item, invoice.StatusPass, invoice.IssueNone, invoice.SeverityInformational, &expected)
	}
	return nil
}

func result(
	item invoice.LineItem,
	status invoice.Status,
	issue invoice.IssueType,
	severity invoice.Severity,
	expected *decimal.Decimal,
) *invoice.ValidationResult {
	return &invoice.ValidationResult{
		LineItem:      item,
		Status:        status,
		IssueType:     issue,
		ExpectedPrice: expected,
		ActualPrice:   item.Rate,
		Severity:      severity,
	}
}
