// This file provides validation helper functions shared by the workflow rules.
//
// It contains reusable checks for the patterns that recur across rules:
// typed scalar fields with an expression escape, allow-listed mapping keys,
// mutually exclusive keys and job/step iteration.
//
// # Available Helper Functions
//
//   - readScalar() - Classifies a scalar value (quoted, expression, text)
//   - positiveNumberProblem() - Checks a positive number field such as timeout-minutes
//   - booleanProblem() - Checks a boolean field such as continue-on-error
//   - intRangeProblem() - Checks a bounded integer field such as retention-days
//   - checkAllowedFields() - Reports mapping keys outside an allow-list
//   - checkMutuallyExclusive() - Reports two keys that may not appear together
//   - forEachJob() / forEachStep() - Iterate the jobs and steps of a workflow
//
// The *Problem helpers return the offending value and a reason fragment such
// as "a positive number" so that each rule can phrase its own message around
// them. Values written as ${{ }} expressions always pass.
//
// For the validation architecture overview, see validation.go.

package workflow

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/expression"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var validationHelpersLog = logger.New("workflow:validation_helpers")

// scalarValue is a classified scalar node.
type scalarValue struct {
	Node   *cst.Node
	Text   string // decoded value, one quote pair removed
	Quoted bool
	Expr   bool
}

// readScalar classifies n. ok is false when n is nil or not a scalar.
func readScalar(doc *cst.Document, n *cst.Node) (v scalarValue, ok bool) {
	n = cst.Unwrap(n)
	if !cst.IsScalar(n) {
		return scalarValue{}, false
	}
	text := cst.ScalarText(doc, n)
	return scalarValue{
		Node:   n,
		Text:   text,
		Quoted: n.Kind == cst.KindDoubleQuoteScalar || n.Kind == cst.KindSingleQuoteScalar,
		Expr:   expression.IsExpression(text),
	}, true
}

// isExpressionValue reports whether n is a scalar holding a ${{ }} expression.
func isExpressionValue(doc *cst.Document, n *cst.Node) bool {
	v, ok := readScalar(doc, n)
	return ok && v.Expr
}

// isEmptyValue reports whether n is absent, null or an empty scalar.
func isEmptyValue(doc *cst.Document, n *cst.Node) bool {
	if n == nil {
		return true
	}
	v, ok := readScalar(doc, n)
	if !ok {
		return false
	}
	return v.Text == "" || (!v.Quoted && (v.Text == "~" || v.Text == "null"))
}

// positiveNumberProblem checks a field that must hold a positive number. When
// integer is set, fractional values are rejected too. The returned reason
// completes "must be ...".
func positiveNumberProblem(doc *cst.Document, n *cst.Node, integer bool) (value, reason string, bad bool) {
	v, ok := readScalar(doc, n)
	if !ok {
		return doc.Text(n), "a number or expression", n != nil
	}
	if v.Expr {
		return "", "", false
	}
	noun := "number"
	if integer {
		noun = "integer"
	}
	if v.Quoted {
		return v.Text, "a number, not a string", true
	}
	f, err := strconv.ParseFloat(v.Text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return v.Text, "a number or expression", true
	}
	switch {
	case f < 0:
		return v.Text, "a positive " + noun, true
	case f == 0:
		return v.Text, fmt.Sprintf("a positive %s (greater than zero)", noun), true
	case integer && f != math.Trunc(f):
		return v.Text, "a positive integer", true
	}
	return "", "", false
}

// booleanProblem checks a field that must hold true or false. The returned
// reason completes "must be ...".
func booleanProblem(doc *cst.Document, n *cst.Node) (value, reason string, bad bool) {
	const base = "a boolean (true or false)"
	v, ok := readScalar(doc, n)
	if !ok {
		return doc.Text(n), base, n != nil
	}
	if v.Expr {
		return "", "", false
	}
	if v.Quoted {
		return v.Text, base + ", not a string", true
	}
	switch strings.ToLower(v.Text) {
	case "true", "false":
		return "", "", false
	}
	if _, err := strconv.ParseFloat(v.Text, 64); err == nil {
		return v.Text, base + ", not a number", true
	}
	return v.Text, base, true
}

// intRangeProblem checks a field that must hold an integer in [lo, hi].
// named lists extra non-numeric values the field accepts.
func intRangeProblem(doc *cst.Document, n *cst.Node, lo, hi int, named ...string) (value, reason string, bad bool) {
	v, ok := readScalar(doc, n)
	if !ok || v.Expr {
		return "", "", false
	}
	for _, name := range named {
		if strings.EqualFold(v.Text, name) {
			return "", "", false
		}
	}
	i, err := strconv.Atoi(v.Text)
	if err != nil {
		return v.Text, fmt.Sprintf("a number between %d and %d", lo, hi), true
	}
	if i < lo || i > hi {
		return v.Text, fmt.Sprintf("between %d and %d", lo, hi), true
	}
	return "", "", false
}

// checkAllowedFields reports every key of mapping that is not in allowed.
// message renders the diagnostic text for an offending key.
func checkAllowedFields(doc *cst.Document, mapping *cst.Node, allowed []string, message func(key string) string) []validation.Diagnostic {
	var diags []validation.Diagnostic
	for _, pair := range cst.Pairs(mapping) {
		key := cst.PairKey(pair)
		name := cst.CleanKey(doc, key)
		if slices.Contains(allowed, name) {
			continue
		}
		validationHelpersLog.Printf("Field %q is not allowed", name)
		diags = append(diags, newError(doc, key, message(name)))
	}
	return diags
}

// checkMutuallyExclusive reports the second key when both a and b are keys of
// mapping.
func checkMutuallyExclusive(doc *cst.Document, mapping *cst.Node, a, b string) []validation.Diagnostic {
	if cst.LookupPair(doc, mapping, a) == nil {
		return nil
	}
	pair := cst.LookupPair(doc, mapping, b)
	if pair == nil {
		return nil
	}
	return []validation.Diagnostic{newError(doc, cst.PairKey(pair),
		fmt.Sprintf("Cannot use both '%s' and '%s' on the same event. They are mutually exclusive.", a, b))}
}

// forEachJob calls fn for every job whose value is a mapping.
func forEachJob(tables *xref.Tables, fn func(job *xref.Job)) {
	for i := range tables.Jobs {
		if tables.Jobs[i].Node != nil {
			fn(&tables.Jobs[i])
		}
	}
}

// forEachStep calls fn for every mapping step of every job.
func forEachStep(tables *xref.Tables, fn func(job *xref.Job, step *xref.Step)) {
	forEachJob(tables, func(job *xref.Job) {
		for i := range job.Steps {
			if job.Steps[i].Node != nil {
				fn(job, &job.Steps[i])
			}
		}
	})
}

// fieldKey returns the key node of key in mapping, or nil.
func fieldKey(doc *cst.Document, mapping *cst.Node, key string) *cst.Node {
	return cst.PairKey(cst.LookupPair(doc, mapping, key))
}

// spanNode returns n, or fallback when n is nil.
func spanNode(n, fallback *cst.Node) *cst.Node {
	if n == nil {
		return fallback
	}
	return n
}

func newError(doc *cst.Document, n *cst.Node, message string) validation.Diagnostic {
	return newDiagnostic(validation.Error, validation.NodeSpan(doc, n), message)
}

func newWarning(doc *cst.Document, n *cst.Node, message string) validation.Diagnostic {
	return newDiagnostic(validation.Warning, validation.NodeSpan(doc, n), message)
}

func newDiagnostic(severity validation.Severity, span validation.Span, message string) validation.Diagnostic {
	return validation.Diagnostic{Message: message, Severity: severity, Span: span}
}

// isIdentifier reports whether s is non-empty and contains only ASCII
// letters, digits, '-' and '_'.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// noneOr joins names with ", " or returns "none" for an empty list.
func noneOr(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
