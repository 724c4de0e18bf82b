// Package invoicetest generates realistic invoice text for tests using gofakeit.
package invoicetest

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// Generator produces garment and non-garment invoice lines.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator with a random seed.
func NewGenerator() *Generator {
	return &Generator{faker: gofakeit.New(0)}
}

// NewGeneratorWithSeed creates a generator with a fixed seed for reproducibility.
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Line is a generated invoice line together with the values it encodes.
type Line struct {
	Text         string
	WearerNumber string
	WearerName   string
	ItemCode     string
	Description  string
	Size         string
	ItemType     string
	Quantity     uint
	Rate         decimal.Decimal
	Total        decimal.Decimal
}

var garmentDescriptions = []string{
	"PANT WORK DURAPRES COTTON",
	"SHIRT WORK LS TWILL",
	"COVERALL ZIP FRONT",
	"JACKET HI VIS",
	"SHIRT POLO SS",
	"SHOP COAT LONG",
}

var colors = []string{"NAVY", "GREY", "KHAKI", "BLACK", "WHITE", "RED"}

var sizes = []string{"32X32", "34X30", "36X32", "L", "XL", "2XL", "MR", "LL"}

var garmentTypes = []string{"Rent", "Ruin charge", "Loss Charge"}

var nonGarmentDescriptions = []string{
	"TOWEL SHOP RED",
	"MAT 3X5 LOGO",
	"MOP DUST 24",
	"SOAP DISPENSER",
}

// WearerName returns an upper-case first and last name with letters only.
func (g *Generator) WearerName() string {
	return lettersOnly(g.faker.FirstName()) + " " + lettersOnly(g.faker.LastName())
}

// ItemCode returns a code shaped like GP0171NAVY.
func (g *Generator) ItemCode() string {
	prefix := string(rune('A'+g.faker.Number(0, 25))) + string(rune('A'+g.faker.Number(0, 25)))
	return fmt.Sprintf("%s%04d%s", prefix, g.faker.Number(1, 9999), g.pick(colors))
}

// Rate returns a rate with three decimal places between 0.100 and 25.000.
func (g *Generator) Rate() decimal.Decimal {
	return decimal.New(int64(g.faker.Number(100, 25000)), -3)
}

// GarmentLine returns a wearer garment line.
func (g *Generator) GarmentLine() Line {
	qty := uint(g.faker.Number(1, 12))
	rate := g.Rate()
	total := rate.Mul(decimal.NewFromInt(int64(qty))).Round(2)

	l := Line{
		WearerNumber: fmt.Sprintf("%d", g.faker.Number(1, 999)),
		WearerName:   g.WearerName(),
		ItemCode:     g.ItemCode(),
		Description:  g.pick(garmentDescriptions),
		Size:         g.pick(sizes),
		ItemType:     g.pick(garmentTypes),
		Quantity:     qty,
		Rate:         rate,
		Total:        total,
	}
	l.Text = fmt.Sprintf("%s %s %s %s %s %s %d %s %s",
		l.WearerNumber, l.WearerName, l.ItemCode, l.Description, l.Size, l.ItemType,
		l.Quantity, l.Rate.StringFixed(3), l.Total.StringFixed(2))
	return l
}

// NonGarmentLine returns a line without wearer columns.
func (g *Generator) NonGarmentLine() Line {
	qty := uint(g.faker.Number(1, 40))
	rate := g.Rate()
	total := rate.Mul(decimal.NewFromInt(int64(qty))).Round(2)

	itemType := "Rent"
	if g.faker.Bool() {
		itemType = "X"
	}

	l := Line{
		ItemCode:    fmt.Sprintf("X%05d", g.faker.Number(1, 99999)),
		Description: g.pick(nonGarmentDescriptions),
		ItemType:    itemType,
		Quantity:    qty,
		Rate:        rate,
		Total:       total,
	}
	l.Text = fmt.Sprintf("%s %s %s %d %s %s",
		l.ItemCode, l.Description, l.ItemType, l.Quantity, l.Rate.StringFixed(3), l.Total.StringFixed(2))
	return l
}

// GarmentLines returns count garment lines.
func (g *Generator) GarmentLines(count int) []Line {
	lines := make([]Line, count)
	for i := 0; i < count; i++ {
		lines[i] = g.GarmentLine()
	}
	return lines
}

// Page joins lines under a typical column header block.
func Page(lines []Line) string {
	var b strings.Builder
	b.WriteString("INVOICE NUMBER 4471902\n")
	b.WriteString("WEARER# WEARER NAME ITEM DESCRIPTION SIZE TYPE BILL QTY RATE TOTAL\n")
	for _, l := range lines {
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	b.WriteString("SUBTOTAL 0.00\n")
	return b.String()
}

func (g *Generator) pick(values []string) string {
	return values[g.faker.Number(0, len(values)-1)]
}

func lettersOnly(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "SMITH"
	}
	return b.String()
}
