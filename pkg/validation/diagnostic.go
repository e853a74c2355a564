// Package validation defines the diagnostic value types and the rule
// framework that runs a set of independent rules over one parsed document and
// merges their findings into a single deterministic result.
package validation

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
)

// Severity classifies a diagnostic. The zero value is Error, and the ordinal
// order Error < Warning < Info is the sort tie-break for diagnostics that
// start at the same offset.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

// String returns the lower-case name used in text output and configuration.
func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity parses "error", "warning" or "info", ignoring case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return Error, nil
	case "warning":
		return Warning, nil
	case "info":
		return Info, nil
	}
	return Error, fmt.Errorf("invalid severity %q: must be one of error, warning, info", s)
}

// MarshalJSON encodes the severity as "Error", "Warning" or "Info".
func (s Severity) MarshalJSON() ([]byte, error) {
	switch s {
	case Error:
		return []byte(`"Error"`), nil
	case Warning:
		return []byte(`"Warning"`), nil
	case Info:
		return []byte(`"Info"`), nil
	}
	return nil, fmt.Errorf("cannot marshal %s", s)
}

// UnmarshalJSON accepts any casing of the three severity names.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	parsed, err := ParseSeverity(text)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Span is a half-open byte range [Start, End) into the analyzed source.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewSpan clamps start and end to [0, sourceLen] and forces Start <= End.
func NewSpan(start, end, sourceLen int) Span {
	start = min(max(start, 0), sourceLen)
	end = min(max(end, 0), sourceLen)
	if end < start {
		end = start
	}
	return Span{Start: start, End: end}
}

// NodeSpan returns the clamped span of n within doc. A nil node yields the
// empty span at offset 0.
func NodeSpan(doc *cst.Document, n *cst.Node) Span {
	if n == nil {
		return Span{}
	}
	return NewSpan(n.Start, n.End, doc.Len())
}

// HeadSpan covers the first 100 bytes of doc. It is used for findings that
// belong to the document as a whole.
func HeadSpan(doc *cst.Document) Span {
	return NewSpan(0, min(100, doc.Len()), doc.Len())
}

// Diagnostic is one finding produced by a rule.
type Diagnostic struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Span     Span     `json:"span"`
	RuleID   string   `json:"rule_id,omitempty"`
}

// AnalysisResult holds the diagnostics of one analysis in sorted order.
type AnalysisResult struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// IsOK reports whether no diagnostic has Error severity.
func (r AnalysisResult) IsOK() bool {
	return r.Count(Error) == 0
}

// Count returns the number of diagnostics with severity s.
func (r AnalysisResult) Count(s Severity) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// Errors returns the Error diagnostics in order.
func (r AnalysisResult) Errors() []Diagnostic {
	return r.filter(Error)
}

// Warnings returns the Warning diagnostics in order.
func (r AnalysisResult) Warnings() []Diagnostic {
	return r.filter(Warning)
}

func (r AnalysisResult) filter(s Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// SortDiagnostics orders diagnostics by span start, then severity, then span
// end, rule id and message. The order is total, so equal inputs always sort
// identically regardless of the order rules finished in.
func SortDiagnostics(diags []Diagnostic) {
	slices.SortStableFunc(diags, compareDiagnostics)
}

func compareDiagnostics(a, b Diagnostic) int {
	return cmp.Or(
		cmp.Compare(a.Span.Start, b.Span.Start),
		cmp.Compare(a.Severity, b.Severity),
		cmp.Compare(a.Span.End, b.Span.End),
		strings.Compare(a.RuleID, b.RuleID),
		strings.Compare(a.Message, b.Message),
	)
}
