//go:build !integration

package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/validation"
)

// ruleCase is one table entry for a rule function. Every string in want must
// appear in some diagnostic message; an empty want expects no diagnostics.
type ruleCase struct {
	name     string
	yaml     string
	want     []string
	severity validation.Severity
}

func parseWorkflow(t *testing.T, source string) *cst.Document {
	t.Helper()
	doc, err := cst.Parse(context.Background(), []byte(source))
	require.NoError(t, err, "parse should not fail")
	return doc
}

func runRuleCases(t *testing.T, validate func(*cst.Document) []validation.Diagnostic, tests []ruleCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := validate(parseWorkflow(t, tt.yaml))
			if len(tt.want) == 0 {
				assert.Empty(t, diags, "expected no diagnostics, got %v", messagesOf(diags))
				return
			}
			for _, want := range tt.want {
				d, ok := findDiagnostic(diags, want)
				if assert.True(t, ok, "expected a diagnostic containing %q, got %v", want, messagesOf(diags)) {
					assert.Equal(t, tt.severity, d.Severity, "severity of %q", d.Message)
				}
			}
		})
	}
}

func findDiagnostic(diags []validation.Diagnostic, substr string) (validation.Diagnostic, bool) {
	for _, d := range diags {
		if strings.Contains(d.Message, substr) {
			return d, true
		}
	}
	return validation.Diagnostic{}, false
}

func messagesOf(diags []validation.Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Message)
	}
	return out
}

// valueOf returns the value node of key in the top-level mapping.
func valueOf(t *testing.T, doc *cst.Document, key string) *cst.Node {
	t.Helper()
	value, found := cst.TopLevel(doc, key)
	require.True(t, found, "key %q should exist", key)
	return value
}

func TestReadScalar(t *testing.T) {
	doc := parseWorkflow(t, "a: plain\nb: \"quoted\"\nc: ${{ github.ref }}\nd:\n  - x\n")

	a, ok := readScalar(doc, valueOf(t, doc, "a"))
	require.True(t, ok)
	assert.Equal(t, "plain", a.Text)
	assert.False(t, a.Quoted)
	assert.False(t, a.Expr)

	b, ok := readScalar(doc, valueOf(t, doc, "b"))
	require.True(t, ok)
	assert.Equal(t, "quoted", b.Text)
	assert.True(t, b.Quoted)

	c, ok := readScalar(doc, valueOf(t, doc, "c"))
	require.True(t, ok)
	assert.True(t, c.Expr)

	_, ok = readScalar(doc, valueOf(t, doc, "d"))
	assert.False(t, ok, "a sequence is not a scalar")
}

func TestPositiveNumberProblem(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		integer    bool
		wantBad    bool
		wantReason string
	}{
		{name: "positive integer", value: "30", wantBad: false},
		{name: "positive fraction", value: "1.5", wantBad: false},
		{name: "expression", value: "${{ inputs.timeout }}", wantBad: false},
		{name: "zero", value: "0", wantBad: true, wantReason: "a positive number (greater than zero)"},
		{name: "negative", value: "-5", wantBad: true, wantReason: "a positive number"},
		{name: "quoted number", value: `"30"`, wantBad: true, wantReason: "a number, not a string"},
		{name: "word", value: "soon", wantBad: true, wantReason: "a number or expression"},
		{name: "fraction as integer", value: "2.5", integer: true, wantBad: true, wantReason: "a positive integer"},
		{name: "zero as integer", value: "0", integer: true, wantBad: true, wantReason: "a positive integer (greater than zero)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseWorkflow(t, "value: "+tt.value+"\n")
			_, reason, bad := positiveNumberProblem(doc, valueOf(t, doc, "value"), tt.integer)
			assert.Equal(t, tt.wantBad, bad)
			if tt.wantBad {
				assert.Equal(t, tt.wantReason, reason)
			}
		})
	}
}

func TestBooleanProblem(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantBad    bool
		wantReason string
	}{
		{name: "true", value: "true"},
		{name: "capitalized false", value: "False"},
		{name: "expression", value: "${{ matrix.experimental }}"},
		{name: "quoted", value: `"true"`, wantBad: true, wantReason: "a boolean (true or false), not a string"},
		{name: "number", value: "1", wantBad: true, wantReason: "a boolean (true or false), not a number"},
		{name: "word", value: "yes-please", wantBad: true, wantReason: "a boolean (true or false)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseWorkflow(t, "value: "+tt.value+"\n")
			_, reason, bad := booleanProblem(doc, valueOf(t, doc, "value"))
			assert.Equal(t, tt.wantBad, bad)
			if tt.wantBad {
				assert.Equal(t, tt.wantReason, reason)
			}
		})
	}
}

func TestIntRangeProblem(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantBad bool
	}{
		{name: "lower bound", value: "1"},
		{name: "upper bound", value: "90"},
		{name: "named value", value: "fastest"},
		{name: "below range", value: "0", wantBad: true},
		{name: "above range", value: "91", wantBad: true},
		{name: "not a number", value: "many", wantBad: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseWorkflow(t, "value: "+tt.value+"\n")
			_, _, bad := intRangeProblem(doc, valueOf(t, doc, "value"), 1, 90, "fastest")
			assert.Equal(t, tt.wantBad, bad)
		})
	}
}

func TestIsEmptyValue(t *testing.T) {
	doc := parseWorkflow(t, "a:\nb: \"\"\nc: ~\nd: null\ne: \"null\"\nf: x\n")
	for _, key := range []string{"a", "b", "c", "d"} {
		value, _ := cst.TopLevel(doc, key)
		assert.True(t, isEmptyValue(doc, value), "%s should be empty", key)
	}
	for _, key := range []string{"e", "f"} {
		value, _ := cst.TopLevel(doc, key)
		assert.False(t, isEmptyValue(doc, value), "%s should not be empty", key)
	}
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, isIdentifier("build_and-test2"))
	assert.False(t, isIdentifier(""))
	assert.False(t, isIdentifier("has space"))
	assert.False(t, isIdentifier("dots.are.bad"))
}

func TestNoneOr(t *testing.T) {
	assert.Equal(t, "none", noneOr(nil))
	assert.Equal(t, "a, b", noneOr([]string{"a", "b"}))
}
