// This file provides script injection vulnerability detection.
//
// # Script Injection Detection
//
// Expressions inside a 'run' script are substituted into the script text
// before the shell starts. When the substituted value comes from an event
// payload field that any user can set, such as an issue title or a branch
// name, the user controls part of the script.
//
// # Validation Functions
//
//   - validateScriptInjection() - Scans run scripts and github-script bodies
//
// # Unsafe Patterns
//
//   - run: echo "${{ github.event.issue.title }}"
//   - run: git checkout ${{ github.head_ref }}
//   - with: { script: "core.info('${{ github.event.comment.body }}')" } on actions/github-script
//
// # Safe Patterns
//
// Expression use through environment variables is not reported:
//   - env: { TITLE: "${{ github.event.issue.title }}" }
//     run: echo "$TITLE"
//
// Heredoc bodies are scanned like any other script text: the value is
// substituted before the shell parses the heredoc, so a crafted value can
// end it early.

package workflow

import (
	"fmt"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/expression"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var scriptInjectionValidationLog = logger.New("workflow:script_injection_validation")

// untrustedInputs are github context paths whose value an outside user can
// choose. A '*' segment matches any single segment.
var untrustedInputs = []string{
	"github.event.issue.title",
	"github.event.issue.body",
	"github.event.pull_request.title",
	"github.event.pull_request.body",
	"github.event.pull_request.head.ref",
	"github.event.pull_request.head.label",
	"github.event.pull_request.head.repo.default_branch",
	"github.event.comment.body",
	"github.event.review.body",
	"github.event.review_comment.body",
	"github.event.discussion.title",
	"github.event.discussion.body",
	"github.event.pages.*.page_name",
	"github.event.commits.*.message",
	"github.event.commits.*.author.name",
	"github.event.commits.*.author.email",
	"github.event.head_commit.message",
	"github.event.head_commit.author.name",
	"github.event.head_commit.author.email",
	"github.event.workflow_run.head_branch",
	"github.event.workflow_run.head_commit.message",
	"github.head_ref",
}

// injectionFinding is one untrusted reference inside a script.
type injectionFinding struct {
	Input string // the matched untrusted path
	Inner string // the trimmed expression body
	Span  validation.Span
	// Exact is set when the expression is nothing but the untrusted value.
	Exact bool
}

func validateScriptInjection(doc *cst.Document) []validation.Diagnostic {
	var findings []injectionFinding
	forEachStep(xref.Build(doc), func(_ *xref.Job, step *xref.Step) {
		if step.RunNode != nil {
			findings = append(findings, findInjections(doc, step.RunNode)...)
		}
		if strings.HasPrefix(step.Uses, "actions/github-script@") {
			with, _ := cst.MappingValue(doc, step.Node, "with")
			if script, found := cst.MappingValue(doc, with, "script"); found && script != nil {
				findings = append(findings, findInjections(doc, script)...)
			}
		}
	})

	diags := make([]validation.Diagnostic, 0, len(findings))
	for _, f := range findings {
		var message string
		if f.Exact {
			message = fmt.Sprintf("Potential script injection: untrusted input '%s' is used directly in a 'run' script. "+
				"Use an environment variable instead: env: MY_VAR: ${{ %s }}", f.Input, f.Inner)
		} else {
			message = fmt.Sprintf("Potential script injection: expression contains untrusted input '%s'. "+
				"Consider passing untrusted values through environment variables.", f.Input)
		}
		diags = append(diags, newDiagnostic(validation.Warning, f.Span, message))
	}
	if len(diags) > 0 {
		scriptInjectionValidationLog.Printf("Found %d script injection risks", len(diags))
	}
	return diags
}

// findInjections reports at most one finding per expression region of the
// script node n.
func findInjections(doc *cst.Document, n *cst.Node) []injectionFinding {
	text := doc.Text(n)
	var findings []injectionFinding
	for _, region := range expression.FindRegions(text) {
		if !region.Closed {
			continue
		}
		inner := strings.TrimSpace(region.Inner(text))
		for _, ref := range expression.ContextReferences(inner, "github") {
			input, ok := matchUntrusted(ref)
			if !ok {
				continue
			}
			findings = append(findings, injectionFinding{
				Input: input,
				Inner: inner,
				Span:  validation.NewSpan(n.Start+region.Start, n.Start+region.End, doc.Len()),
				Exact: ref.Start == 0 && ref.End == len(inner),
			})
			break
		}
	}
	return findings
}

// matchUntrusted returns the untrusted path ref falls under. Deeper
// properties of an untrusted value are untrusted too.
func matchUntrusted(ref expression.Reference) (string, bool) {
	for _, input := range untrustedInputs {
		pattern := strings.Split(strings.TrimPrefix(input, "github."), ".")
		if len(ref.Path) < len(pattern) {
			continue
		}
		matched := true
		for i, seg := range pattern {
			if seg != "*" && ref.Path[i] != seg {
				matched = false
				break
			}
		}
		if matched {
			return input, true
		}
	}
	return "", false
}
