//go:build !integration

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanMarchetto/truss/pkg/validation"
)

func TestValidateNonEmpty(t *testing.T) {
	runRuleCases(t, validateNonEmpty, []ruleCase{
		{name: "empty source", yaml: "", want: []string{"Document is empty"}, severity: validation.Warning},
		{name: "only comments", yaml: "# nothing here\n\n  # still nothing\n", want: []string{"Document is empty"}, severity: validation.Warning},
		{name: "document markers", yaml: "---\n...\n", want: []string{"Document is empty"}, severity: validation.Warning},
		{name: "content", yaml: "name: CI\n"},
	})
}

func TestValidateSyntax(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		doc := parseWorkflow(t, "on: push\njobs:\n  build:\n    runs-on: ubuntu-latest\n")
		assert.Empty(t, validateSyntax(doc))
	})

	t.Run("unterminated flow sequence", func(t *testing.T) {
		doc := parseWorkflow(t, "on: [push, pull_request\njobs: {}\n")
		require.True(t, doc.HasError(), "tree should record the error")
		diags := validateSyntax(doc)
		require.NotEmpty(t, diags)
		for _, d := range diags {
			assert.Equal(t, validation.Error, d.Severity)
			assert.Contains(t, d.Message, "yntax error")
			assert.LessOrEqual(t, d.Span.End, doc.Len())
		}
	})
}

func TestSyntaxSnippet(t *testing.T) {
	assert.Equal(t, "abc", syntaxSnippet("  abc \n"))
	long := ""
	for range 80 {
		long += "x"
	}
	assert.Len(t, syntaxSnippet(long), maxSyntaxSnippet)
}

func TestValidateWorkflowSchema(t *testing.T) {
	runRuleCases(t, validateWorkflowSchema, []ruleCase{
		{name: "has on", yaml: "on: push\njobs: {}\n"},
		{name: "on without value", yaml: "on:\njobs: {}\n"},
		{
			name:     "missing on",
			yaml:     "name: CI\njobs:\n  build:\n    runs-on: ubuntu-latest\n",
			want:     []string{"GitHub Actions workflow must have an 'on' field"},
			severity: validation.Error,
		},
	})
}
