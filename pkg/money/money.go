// Package money provides exact price arithmetic for invoice rates using
// shopspring/decimal, plus currency display of totals via go-money.
// Rates are kept as decimals at their billed scale; comparisons happen at an
// explicit number of decimal places so binary floating point never enters.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// USD is the only currency invoices are billed in.
const USD = "USD"

// ErrEmptyAmount is returned when a price string is blank.
var ErrEmptyAmount = errors.New("empty amount")

// ParsePrice parses a billed amount such as "0.300", "1,234.50" or "$12.00".
// Thousands separators and a leading dollar sign are accepted. A trailing
// minus ("12.00-") or parentheses mark a credit and yield a negative value.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}

	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// RoundPrice rounds half away from zero to the given number of places.
func RoundPrice(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// ComparePrices compares a and b after rounding both to places.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
func ComparePrices(a, b decimal.Decimal, places int32) int {
	return RoundPrice(a, places).Cmp(RoundPrice(b, places))
}

// Money is a USD amount in cents, used for human-facing totals.
type Money struct {
	m *money.Money
}

// New creates Money from cents.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{m: money.New(amountCents, currencyCode)}
}

// NewFromDecimal converts a decimal amount to Money, rounding to the
// currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(USD)
		currencyCode = USD
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()

	return New(cents, currencyCode)
}

// Display formats for people, e.g. "$1,234.56".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return "$0.00"
	}
	return m.m.Display()
}

// SumDisplay totals decimal amounts and formats the result in USD.
func SumDisplay(amounts []decimal.Decimal) string {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return NewFromDecimal(total, USD).Display()
}
