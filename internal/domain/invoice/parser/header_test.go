package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const billLangfordLine = "8 BILL LANGFORD GP0171NAVY PANT WORK DURAPRES COTTON 32X32 Rent 1 0.300 0.30"

func TestIsHeaderLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want bool
	}{
		{"column header", "WEARER# WEARER NAME ITEM DESCRIPTION SIZE TYPE BILL QTY RATE TOTAL", true},
		{"spaced wearer anchor", "WEARER # NAME", true},
		{"bill qty anchor", "ITEM BILL QTY RATE", true},
		{"subtotal with amount", "SUBTOTAL 1,234.56", true},
		{"sub-total", "SUB-TOTAL 12.00", true},
		{"invoice number", "INVOICE NUMBER 4471902", true},
		{"invoice date", "Invoice Date 03/14/2024", true},
		{"amount due", "TOTAL AMOUNT DUE 88.20", true},
		{"page marker", "PAGE 2 OF 5", true},
		{"page marker lower case", "  page 3 ", true},
		{"vocabulary header without digits", "ITEM DESCRIPTION SIZE", true},
		{"vocabulary header with colon", "TYPE: RENTAL", true},
		{"size line with digit is not header", "SIZE 32X32", false},
		{"bill langford data line", billLangfordLine, false},
		{"wearer named page", "12 JIMMY PAGE GP0171NAVY SHIRT WORK L Rent 1 0.250 0.25", false},
		{"page inside text", "PAGE TURNER SERVICE X Rent 1 1.000 1.00", false},
		{"non garment data line", "X00123 TOWEL SHOP RED Rent 10 0.110 1.10", false},
		{"special charge", "8 BILL LANGFORD NAME EMBL CHARGE 1 1.500 1.50", false},
		{"blank", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHeaderLine(tt.line))
		})
	}
}

func TestHeaderFilter_RejectsBareWords(t *testing.T) {
	for _, anchor := range []string{"BILL", "PAGE", "total", " Rate "} {
		t.Run(anchor, func(t *testing.T) {
			_, err := NewHeaderFilter([]string{"WEARER#", anchor})
			assert.Error(t, err)
		})
	}

	f, err := NewHeaderFilter([]string{"subtotal", " ", "SUBTOTAL", "bill qty"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SUBTOTAL", "BILL QTY"}, f.Anchors())
}

func TestHeaderFilter_NameFragmentsSurviveEveryConfiguration(t *testing.T) {
	configs := map[string][]string{
		"default":        DefaultAnchors,
		"minimal":        {"WEARER#", "BILL QTY"},
		"totals only":    {"SUBTOTAL", "TOTAL DUE", "AMOUNT DUE"},
		"page furniture": {"CONTINUED ON NEXT PAGE", "INVOICE NUMBER"},
		"empty":          {},
	}

	dataLines := []string{
		billLangfordLine,
		"12 JIMMY PAGE GP0171NAVY SHIRT WORK L Rent 1 0.250 0.25",
		"3 SIZEMORE ITEMS GP0200GREY COVERALL ZIP FRONT XL Loss Charge 1 45.000 45.00",
		"40 TOTALE DUEY GP0300RED JACKET HI VIS 2XL Ruin charge 1 30.000 30.00",
		"12 JOHN SUBTOTALSON GP0171NAVY SHIRT WORK L Rent 1 0.250 0.25",
		"14 MARY TOTAL DUEY GP0171NAVY SHIRT WORK L Rent 1 0.250 0.25",
	}

	for name, anchors := range configs {
		t.Run(name, func(t *testing.T) {
			f, err := NewHeaderFilter(anchors)
			require.NoError(t, err)

			p, err := NewParser(ParserConfig{Anchors: anchors})
			require.NoError(t, err)

			for _, line := range dataLines {
				assert.False(t, f.IsHeader(line), line)
				items := p.Parse(line, 0, nil)
				assert.Len(t, items, 1, line)
			}
		})
	}
}

func TestHeaderFilter_MatchedAnchor(t *testing.T) {
	f := MustHeaderFilter(DefaultAnchors)

	assert.Equal(t, "BILL QTY", f.MatchedAnchor("item bill qty rate"))
	assert.Equal(t, "", f.MatchedAnchor(billLangfordLine))
	assert.Equal(t, "SUBTOTAL", f.MatchedAnchor("SUBTOTAL: 10.00"))
	assert.Equal(t, "WEARER#", f.MatchedAnchor("WEARER# NAME"))
	assert.Equal(t, "", f.MatchedAnchor("12 JOHN SUBTOTALSON GP0171NAVY"))
	assert.Equal(t, "", f.MatchedAnchor("14 MARY TOTAL DUEY GP0171NAVY"))
	assert.Equal(t, "TOTAL DUE", f.MatchedAnchor("MISUBTOTALX TOTAL DUE 4.00"))

	empty := MustHeaderFilter(nil)
	assert.Equal(t, "", empty.MatchedAnchor("WEARER# BILL QTY"))
	assert.False(t, empty.IsHeader("SUBTOTAL 10.00"))
	assert.True(t, empty.IsHeader("PAGE 1 OF 2"))
}

func TestDefaultAnchors_AreNotBareWords(t *testing.T) {
	_, err := NewHeaderFilter(DefaultAnchors)
	require.NoError(t, err)
}
