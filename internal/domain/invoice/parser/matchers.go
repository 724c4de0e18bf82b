package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/money"
)

// LineMatcher turns one normalized line into a line item.
//
// TryParse returns ok=false when the line does not have the matcher's shape.
// When the shape matches but a numeric capture is malformed it returns ok=true
// and a data quality error; the line is then skipped and no later matcher runs.
type LineMatcher interface {
	Name() string
	TryParse(line string) (item invoice.LineItem, ok bool, err *invoice.Error)
}

// Garment item types and special charge types billed on wearer lines.
var (
	GarmentTypes       = []string{"Rent", "Ruin charge", "PREP CHARGE", "Loss Charge"}
	SpecialChargeTypes = []string{"NAME EMBL CHARGE", "PREP CHARGE"}
	NonGarmentTypes    = []string{"Rent", "X"}
)

const (
	wearerNumberExpr = `(\d+)`
	wearerNameExpr   = `([A-Z][A-Z'.\- ]*?)`
	// Item codes on wearer lines always carry a digit, which keeps a surname
	// from being taken as the code.
	garmentCodeExpr = `([A-Z0-9]*\d[A-Z0-9]*)`
	// Non-garment codes carry a letter so a bare wearer number never becomes a code.
	nonGarmentCodeExpr = `([A-Z0-9\-]*[A-Z][A-Z0-9\-]*)`
	// Only size-shaped tokens such as 32X32, 2XL or MR are taken as the size;
	// anything else stays in the description.
	sizeExpr     = `(\d+X\d+|\d*X{0,3}[SML]T?|[SML][SMLR])`
	quantityExpr = `(\S+)`
	rateExpr     = `([\d,]*\d\.\d{2,3})`
	totalExpr    = `(\S+)`
)

func alternation(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = regexp.QuoteMeta(v)
	}
	return "(" + strings.Join(quoted, "|") + ")"
}

// DefaultMatchers returns the cascade in precedence order: garment, special
// charge, non-garment.
func DefaultMatchers() []LineMatcher {
	return []LineMatcher{
		NewGarmentMatcher(),
		NewSpecialChargeMatcher(),
		NewNonGarmentMatcher(),
	}
}

type regexMatcher struct {
	name  string
	re    *regexp.Regexp
	build func(m []string) (invoice.LineItem, *invoice.Error)
}

func (r *regexMatcher) Name() string { return r.name }

func (r *regexMatcher) TryParse(line string) (invoice.LineItem, bool, *invoice.Error) {
	m := r.re.FindStringSubmatch(line)
	if m == nil {
		return invoice.LineItem{}, false, nil
	}
	item, err := r.build(m)
	if err != nil {
		return invoice.LineItem{}, true, err
	}
	return item, true, nil
}

// NewGarmentMatcher matches
// "<wearer#> <name> <code> <description> [size] <type> <qty> <rate> <total>".
func NewGarmentMatcher() LineMatcher {
	expr := `^` + wearerNumberExpr + `\s+` + wearerNameExpr + `\s+` + garmentCodeExpr +
		`\s+(.+?)(?:\s+` + sizeExpr + `)?\s+` + alternation(GarmentTypes) +
		`\s+` + quantityExpr + `\s+` + rateExpr + `\s+` + totalExpr + `$`

	return &regexMatcher{
		name: "garment",
		re:   regexp.MustCompile(expr),
		build: func(m []string) (invoice.LineItem, *invoice.Error) {
			qty, rate, total, err := parseNumbers(m[7], m[8], m[9])
			if err != nil {
				return invoice.LineItem{}, err
			}
			item := invoice.NewLineItem(m[3], qty, rate, total)
			item.WearerNumber = m[1]
			item.WearerName = strings.TrimSpace(m[2])
			item.Description = strings.TrimSpace(m[4])
			item.Size = m[5]
			item.ItemType = m[6]
			return item, nil
		},
	}
}

// NewSpecialChargeMatcher matches "<wearer#> <name> <charge type> <qty> <rate> <total>".
// The charge type doubles as the item code.
func NewSpecialChargeMatcher() LineMatcher {
	expr := `^` + wearerNumberExpr + `\s+` + wearerNameExpr + `\s+` + alternation(SpecialChargeTypes) +
		`\s+` + quantityExpr + `\s+` + rateExpr + `\s+` + totalExpr + `$`

	return &regexMatcher{
		name: "special_charge",
		re:   regexp.MustCompile(expr),
		build: func(m []string) (invoice.LineItem, *invoice.Error) {
			qty, rate, total, err := parseNumbers(m[4], m[5], m[6])
			if err != nil {
				return invoice.LineItem{}, err
			}
			item := invoice.NewLineItem(m[3], qty, rate, total)
			item.WearerNumber = m[1]
			item.WearerName = strings.TrimSpace(m[2])
			item.Description = m[3]
			item.ItemType = m[3]
			return item, nil
		},
	}
}

// NewNonGarmentMatcher matches "<code> <description> <Rent|X> <qty> <rate> <total>".
func NewNonGarmentMatcher() LineMatcher {
	expr := `^` + nonGarmentCodeExpr + `\s+(.+?)\s+` + alternation(NonGarmentTypes) +
		`\s+` + quantityExpr + `\s+` + rateExpr + `\s+` + totalExpr + `$`

	return &regexMatcher{
		name: "non_garment",
		re:   regexp.MustCompile(expr),
		build: func(m []string) (invoice.LineItem, *invoice.Error) {
			qty, rate, total, err := parseNumbers(m[4], m[5], m[6])
			if err != nil {
				return invoice.LineItem{}, err
			}
			item := invoice.NewLineItem(m[1], qty, rate, total)
			item.WearerNumber = invoice.NoWearerNumber
			item.WearerName = invoice.NoWearerName
			item.Description = strings.TrimSpace(m[2])
			item.ItemType = m[3]
			return item, nil
		},
	}
}

func parseNumbers(qtyStr, rateStr, totalStr string) (uint, decimal.Decimal, decimal.Decimal, *invoice.Error) {
	qty, err := strconv.ParseUint(strings.ReplaceAll(qtyStr, ",", ""), 10, 0)
	if err != nil {
		return 0, decimal.Zero, decimal.Zero, &invoice.Error{
			Kind:   invoice.KindDataQuality,
			Reason: fmt.Sprintf("invalid quantity %q", qtyStr),
		}
	}

	rate, err := money.ParsePrice(rateStr)
	if err != nil {
		return 0, decimal.Zero, decimal.Zero, &invoice.Error{
			Kind:   invoice.KindDataQuality,
			Reason: fmt.Sprintf("invalid rate %q", rateStr),
		}
	}

	total, err := money.ParsePrice(totalStr)
	if err != nil {
		return 0, decimal.Zero, decimal.Zero, &invoice.Error{
			Kind:   invoice.KindDataQuality,
			Reason: fmt.Sprintf("invalid total %q", totalStr),
		}
	}

	return uint(qty), rate, total, nil
}
