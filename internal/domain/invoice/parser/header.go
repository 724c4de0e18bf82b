package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"
)

// DefaultAnchors are phrases that only occur in column headers, totals and
// page furniture. None of them is a fragment of a wearer name such as
// "BILL LANGFORD" or "JIMMY PAGE".
var DefaultAnchors = []string{
	"WEARER#",
	"WEARER #",
	"WEARER NAME",
	"BILL QTY",
	"SUBTOTAL",
	"SUB-TOTAL",
	"SUB TOTAL",
	"INVOICE NUMBER",
	"INVOICE NO.",
	"INVOICE DATE",
	"INVOICE TOTAL",
	"ACCOUNT NUMBER",
	"CUSTOMER NUMBER",
	"ITEM DESCRIPTION",
	"TOTAL DUE",
	"AMOUNT DUE",
	"BALANCE DUE",
	"REMIT TO:",
	"CONTINUED ON NEXT PAGE",
}

// headerStartWords open column-header lines. A line starting with one of them
// is only a header when it carries no digit at all.
var headerStartWords = map[string]struct{}{
	"WEARER":      {},
	"ITEM":        {},
	"DESCRIPTION": {},
	"SIZE":        {},
	"TYPE":        {},
}

// compoundAnchorWords are single-token anchors allowed despite having no
// separator. They are closed compounds that do not occur inside names.
var compoundAnchorWords = map[string]struct{}{
	"SUBTOTAL": {},
}

var pageMarkerPattern = regexp.MustCompile(`(?i)^\s*PAGE\s+\d+(\s+OF\s+\d+)?\s*$`)

// HeaderFilter recognizes non-data lines. It is safe for concurrent use.
type HeaderFilter struct {
	anchors []string
	matcher *ahocorasick.Matcher
}

// NewHeaderFilter builds a filter for the given anchor phrases. Anchors are
// compared case-insensitively and blank anchors are ignored. A bare word such
// as "BILL" or "PAGE" is rejected because it also occurs in wearer names.
func NewHeaderFilter(anchors []string) (*HeaderFilter, error) {
	clean := make([]string, 0, len(anchors))
	seen := make(map[string]struct{}, len(anchors))
	for _, a := range anchors {
		a = strings.ToUpper(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if isBareWord(a) {
			return nil, fmt.Errorf("header anchor %q is a bare word", a)
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		clean = append(clean, a)
	}

	f := &HeaderFilter{anchors: clean}
	if len(clean) > 0 {
		patterns := make([][]byte, len(clean))
		for i, a := range clean {
			patterns[i] = []byte(a)
		}
		f.matcher = ahocorasick.NewMatcher(patterns)
	}
	return f, nil
}

// MustHeaderFilter is like NewHeaderFilter but panics on an invalid anchor.
func MustHeaderFilter(anchors []string) *HeaderFilter {
	f, err := NewHeaderFilter(anchors)
	if err != nil {
		panic(err)
	}
	return f
}

func isBareWord(anchor string) bool {
	if _, ok := compoundAnchorWords[anchor]; ok {
		return false
	}
	for _, r := range anchor {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

var defaultHeaderFilter = MustHeaderFilter(DefaultAnchors)

// IsHeaderLine reports whether line is header, summary or page text under the
// default anchors.
func IsHeaderLine(line string) bool {
	return defaultHeaderFilter.IsHeader(line)
}

// Anchors returns the normalized anchor phrases.
func (f *HeaderFilter) Anchors() []string {
	out := make([]string, len(f.anchors))
	copy(out, f.anchors)
	return out
}

// IsHeader reports whether line is header, summary or page text.
func (f *HeaderFilter) IsHeader(line string) bool {
	upper := strings.ToUpper(strings.TrimSpace(line))
	if upper == "" {
		return false
	}

	if f.MatchedAnchor(upper) != "" {
		return true
	}

	if pageMarkerPattern.MatchString(upper) {
		return true
	}

	return startsLikeHeader(upper)
}

// MatchedAnchor returns the first anchor contained in line as whole tokens,
// or "". An anchor running into a longer word, as SUBTOTAL does in
// "SUBTOTALSON", does not count.
func (f *HeaderFilter) MatchedAnchor(line string) string {
	if f.matcher == nil {
		return ""
	}
	upper := strings.ToUpper(line)
	for _, i := range f.matcher.MatchThreadSafe([]byte(upper)) {
		if onTokenBoundary(upper, f.anchors[i]) {
			return f.anchors[i]
		}
	}
	return ""
}

// onTokenBoundary reports whether some occurrence of anchor in s is not
// joined to a neighbouring letter or digit.
func onTokenBoundary(s, anchor string) bool {
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], anchor)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(anchor)
		if !joined(s, start-1, anchor[0]) && !joined(s, end, anchor[len(anchor)-1]) {
			return true
		}
		from = start + 1
	}
	return false
}

// joined reports whether the byte at pos continues a word that edge ends or starts.
func joined(s string, pos int, edge byte) bool {
	if pos < 0 || pos >= len(s) {
		return false
	}
	return isWordByte(s[pos]) && isWordByte(edge)
}

func isWordByte(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// startsLikeHeader applies the first-token vocabulary rule to an upper-cased line.
func startsLikeHeader(upper string) bool {
	fields := strings.Fields(upper)
	if len(fields) == 0 {
		return false
	}
	first := strings.Trim(fields[0], ":#.")
	if _, ok := headerStartWords[first]; !ok {
		return false
	}
	return !containsDigit(upper)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
