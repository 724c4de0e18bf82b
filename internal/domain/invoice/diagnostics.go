package invoice

import "fmt"

// Diagnostic records one recoverable condition met while processing a file.
type Diagnostic struct {
	Kind    ErrorKind `json:"kind"`
	Line    uint      `json:"line"`
	Reason  string    `json:"reason"`
	RawText string    `json:"raw_text,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Kind, d.Reason)
}

// Diagnostics collects recoverable conditions for one file. It is passed
// explicitly through the call chain; a nil *Diagnostics discards everything.
// Not safe for concurrent use.
type Diagnostics struct {
	entries     []Diagnostic
	headerLines int
	blankLines  int
}

// NewDiagnostics returns an empty collector.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{entries: make([]Diagnostic, 0)}
}

// Add appends a diagnostic.
func (d *Diagnostics) Add(kind ErrorKind, line uint, reason, raw string) {
	if d == nil {
		return
	}
	d.entries = append(d.entries, Diagnostic{Kind: kind, Line: line, Reason: reason, RawText: raw})
}

// AddError appends a diagnostic built from a classified error.
func (d *Diagnostics) AddError(err *Error, raw string) {
	if d == nil || err == nil {
		return
	}
	reason := err.Reason
	if err.Err != nil {
		reason = fmt.Sprintf("%s: %v", reason, err.Err)
	}
	d.Add(err.Kind, err.Line, reason, raw)
}

// CountHeader notes a line dropped as header or summary text.
func (d *Diagnostics) CountHeader() {
	if d != nil {
		d.headerLines++
	}
}

// CountBlank notes an empty line.
func (d *Diagnostics) CountBlank() {
	if d != nil {
		d.blankLines++
	}
}

// Entries returns a copy of the collected diagnostics in insertion order.
func (d *Diagnostics) Entries() []Diagnostic {
	if d == nil {
		return nil
	}
	out := make([]Diagnostic, len(d.entries))
	copy(out, d.entries)
	return out
}

// Len returns the number of diagnostics.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Count returns how many diagnostics have the given kind.
func (d *Diagnostics) Count(kind ErrorKind) int {
	if d == nil {
		return 0
	}
	n := 0
	for _, e := range d.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// HeaderLines returns how many lines were dropped as header or summary text.
func (d *Diagnostics) HeaderLines() int {
	if d == nil {
		return 0
	}
	return d.headerLines
}

// BlankLines returns how many empty lines were seen.
func (d *Diagnostics) BlankLines() int {
	if d == nil {
		return 0
	}
	return d.blankLines
}
