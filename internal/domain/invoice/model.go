// Package invoice holds the data model shared by the parser, the validation
// engine and the discovery log: line items, parts, validation results,
// validation configuration, the error taxonomy and per-file diagnostics.
package invoice

import (
	"github.com/shopspring/decimal"
)

// Sentinel wearer values used by line items that are not tied to a wearer.
const (
	NoWearerNumber = "N/A"
	NoWearerName   = "NON-GARMENT"
)

// LineItem is one billed entry reconstructed from invoice text.
// Line items are produced by the parser and treated as values afterwards.
type LineItem struct {
	WearerNumber string          `json:"wearer_number,omitempty"`
	WearerName   string          `json:"wearer_name,omitempty"`
	ItemCode     string          `json:"item_code"`
	Description  string          `json:"description"`
	Size         string          `json:"size,omitempty"`
	ItemType     string          `json:"item_type"`
	Quantity     uint            `json:"quantity"`
	Rate         decimal.Decimal `json:"rate"`
	Total        decimal.Decimal `json:"total"`
	LineNumber   uint            `json:"line_number"`
	RawText      string          `json:"raw_text"`

	hasRate     bool
	hasQuantity bool
}

// NewLineItem builds a line item with rate and quantity marked present.
func NewLineItem(itemCode string, quantity uint, rate, total decimal.Decimal) LineItem {
	return LineItem{
		ItemCode:    itemCode,
		Quantity:    quantity,
		Rate:        rate,
		Total:       total,
		hasRate:     true,
		hasQuantity: true,
	}
}

// Valid reports whether the item has an item code, a rate and a quantity.
func (li LineItem) Valid() bool {
	return li.ItemCode != "" && li.hasRate && li.hasQuantity
}

// IsGarment reports whether the item is attached to a wearer.
func (li LineItem) IsGarment() bool {
	return li.WearerNumber != "" && li.WearerNumber != NoWearerNumber
}

// Part is a reference part owned by the parts database. The core only reads it.
type Part struct {
	PartNumber      string          `json:"part_number"`
	AuthorizedPrice decimal.Decimal `json:"authorized_price"`
	Description     *string         `json:"description,omitempty"`
	Category        *string         `json:"category,omitempty"`
	IsActive        bool            `json:"is_active"`
}

// Status is the outcome of validating one line item.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusUnknown Status = "unknown"
)

// IssueType classifies what went wrong with a line item, if anything.
type IssueType string

const (
	IssueNone         IssueType = "none"
	IssueRateHigh     IssueType = "rate_high"
	IssueRateLow      IssueType = "rate_low"
	IssuePartNotFound IssueType = "part_not_found"
)

// Severity ranks validation results for review.
type Severity string

const (
	SeverityCritical      Severity = "critical"
	SeverityWarning       Severity = "warning"
	SeverityInformational Severity = "informational"
)

// ValidationResult is the verdict for one line item. One is created per item
// per validation pass and never mutated.
type ValidationResult struct {
	LineItem      LineItem         `json:"line_item"`
	Status        Status           `json:"status"`
	IssueType     IssueType        `json:"issue_type"`
	ExpectedPrice *decimal.Decimal `json:"expected_price,omitempty"`
	ActualPrice   decimal.Decimal  `json:"actual_price"`
	Severity      Severity         `json:"severity"`
}

// Variance returns actual minus expected, or false when there is no expected price.
func (r ValidationResult) Variance() (decimal.Decimal, bool) {
	if r.ExpectedPrice == nil {
		return decimal.Zero, false
	}
	return r.ActualPrice.Sub(*r.ExpectedPrice), true
}
