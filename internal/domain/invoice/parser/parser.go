// Package parser reconstructs invoice line items from text extracted out of
// PDF invoices. Each line goes through a header filter and then an ordered
// cascade of line matchers; recoverable problems land in the caller's
// diagnostics collector and never abort a file.
package parser

import (
	"strings"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
)

// ParserConfig configures header anchors and the matcher cascade.
type ParserConfig struct {
	Anchors  []string      // Header anchor phrases (default: DefaultAnchors)
	Matchers []LineMatcher // Cascade in precedence order (default: DefaultMatchers)
}

// DefaultConfig returns the anchors and cascade used for uniform invoices.
func DefaultConfig() ParserConfig {
	return ParserConfig{
		Anchors:  DefaultAnchors,
		Matchers: DefaultMatchers(),
	}
}

// Parser turns invoice text into line items.
// A Parser is not safe for concurrent use; give each worker its own.
type Parser struct {
	header   *HeaderFilter
	matchers []LineMatcher
}

// NewParser creates a parser. It fails when an anchor is a bare word.
func NewParser(config ParserConfig) (*Parser, error) {
	anchors := config.Anchors
	if anchors == nil {
		anchors = DefaultAnchors
	}
	header, err := NewHeaderFilter(anchors)
	if err != nil {
		return nil, err
	}

	matchers := config.Matchers
	if len(matchers) == 0 {
		matchers = DefaultMatchers()
	}

	return &Parser{header: header, matchers: matchers}, nil
}

// Parse extracts line items from text in source order. LineNumber is the
// 1-based line index within text plus lineOffset.
func (p *Parser) Parse(text string, lineOffset uint, diags *invoice.Diagnostics) []invoice.LineItem {
	lines := splitLines(text)
	items := make([]invoice.LineItem, 0, len(lines))

	for i, raw := range lines {
		if item, ok := p.parseLine(raw, uint(i)+1+lineOffset, diags); ok {
			items = append(items, item)
		}
	}

	return items
}

// ParsePages parses page texts in order, numbering lines continuously across pages.
func (p *Parser) ParsePages(pages []string, diags *invoice.Diagnostics) []invoice.LineItem {
	var items []invoice.LineItem
	var offset uint

	for _, page := range pages {
		items = append(items, p.Parse(page, offset, diags)...)
		offset += uint(LineCount(page))
	}

	return items
}

// ParseTable parses extracted table rows. Non-empty cells of a row are joined
// with single spaces and handled like a text line.
func (p *Parser) ParseTable(rows [][]string, lineOffset uint, diags *invoice.Diagnostics) []invoice.LineItem {
	items := make([]invoice.LineItem, 0, len(rows))

	for i, row := range rows {
		cells := make([]string, 0, len(row))
		for _, c := range row {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		if item, ok := p.parseLine(strings.Join(cells, " "), uint(i)+1+lineOffset, diags); ok {
			items = append(items, item)
		}
	}

	return items
}

func (p *Parser) parseLine(raw string, lineNumber uint, diags *invoice.Diagnostics) (invoice.LineItem, bool) {
	line := normalize(raw)
	if line == "" {
		diags.CountBlank()
		return invoice.LineItem{}, false
	}

	if p.header.IsHeader(line) {
		diags.CountHeader()
		return invoice.LineItem{}, false
	}

	for _, m := range p.matchers {
		item, ok, perr := m.TryParse(line)
		if !ok {
			continue
		}
		if perr != nil {
			perr.Line = lineNumber
			diags.AddError(perr, raw)
			return invoice.LineItem{}, false
		}
		item.LineNumber = lineNumber
		item.RawText = raw
		return item, true
	}

	diags.Add(invoice.KindParse, lineNumber, "no line pattern matched", raw)
	return invoice.LineItem{}, false
}

// LineCount returns how many lines Parse sees in text.
func LineCount(text string) int {
	return len(splitLines(text))
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// normalize collapses runs of whitespace left behind by PDF text extraction.
func normalize(line string) string {
	return strings.Join(strings.Fields(line), " ")
}
