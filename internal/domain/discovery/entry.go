// Package discovery records billed parts that are missing from the parts
// database and summarizes them per processing session for human review.
package discovery

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Action is what happened to a discovered part.
type Action string

const (
	ActionDiscovered    Action = "discovered"
	ActionAdded         Action = "added"
	ActionUpdated       Action = "updated"
	ActionSkipped       Action = "skipped"
	ActionPriceMismatch Action = "price_mismatch"
)

// ParseAction validates an action_taken value.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionDiscovered, ActionAdded, ActionUpdated, ActionSkipped, ActionPriceMismatch:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Entry is one append-only discovery log record. The JSON field names are
// read by export and report tooling and must not change.
type Entry struct {
	ID                  string           `json:"id"`
	PartNumber          string           `json:"part_number"`
	InvoiceNumber       *string          `json:"invoice_number"`
	InvoiceDate         *time.Time       `json:"invoice_date"`
	DiscoveredPrice     *decimal.Decimal `json:"discovered_price"`
	AuthorizedPrice     *decimal.Decimal `json:"authorized_price"`
	ActionTaken         Action           `json:"action_taken"`
	UserDecision        *string          `json:"user_decision"`
	DiscoveryDate       time.Time        `json:"discovery_date"`
	ProcessingSessionID string           `json:"processing_session_id"`
	Notes               *string          `json:"notes"`

	// LineNumber ties a discovered entry to its invoice line. It is not part
	// of the exported schema.
	LineNumber uint `json:"-"`
}

// PartSummary aggregates the discovered entries of one part in one session.
// Price statistics are nil when no occurrence carried a price.
type PartSummary struct {
	PartNumber  string           `json:"part_number"`
	Occurrences int              `json:"occurrences"`
	MinPrice    *decimal.Decimal `json:"min_price"`
	AvgPrice    *decimal.Decimal `json:"avg_price"`
	MaxPrice    *decimal.Decimal `json:"max_price"`
	Invoices    []string         `json:"invoices"`
}

// occurrenceKey identifies one line of one invoice within a session.
type occurrenceKey struct {
	session    string
	partNumber string
	invoice    string
	line       uint
}

func keyOf(e Entry) occurrenceKey {
	invoiceNumber := ""
	if e.InvoiceNumber != nil {
		invoiceNumber = *e.InvoiceNumber
	}
	return occurrenceKey{
		session:    e.ProcessingSessionID,
		partNumber: e.PartNumber,
		invoice:    invoiceNumber,
		line:       e.LineNumber,
	}
}
