// This file provides validation for GitHub Actions expressions.
//
// # Expression Validation
//
// The expression rule scans every ${{ }} region of the document, wherever it
// appears, and reports syntax problems and unknown functions (see
// expression.Validate).
//
// 'if' conditions get additional checks because they are often written
// without the ${{ }} delimiters, which the region scan cannot see:
//
//   - validateJobIfExpressions() - Job-level 'if' conditions
//   - validateStepIfExpressions() - Step-level 'if' conditions
//
// Both report conditions that reference undocumented context properties and
// conditions that are literally always true or always false. Job conditions
// must also only reference jobs that exist.

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

var expressionValidationLog = logger.New("workflow:expression_validation")

func validateExpressions(doc *cst.Document) []validation.Diagnostic {
	return expression.Validate(doc.Source)
}

// ifCondition is the condition text of an 'if' field.
type ifCondition struct {
	Node  *cst.Node
	Inner string
	// Bare is set when the condition is written without ${{ }}.
	Bare bool
}

// readIfCondition extracts the condition of an 'if' value. ok is false for
// values that are not a single condition, such as block scalars or text
// that only embeds an expression.
func readIfCondition(doc *cst.Document, n *cst.Node) (ifCondition, bool) {
	v, ok := readScalar(doc, n)
	if !ok || v.Node.Kind == cst.KindBlockScalar || v.Text == "" {
		return ifCondition{}, false
	}
	if v.Expr {
		regions := expression.FindRegions(v.Text)
		if len(regions) != 1 || !regions[0].Closed || regions[0].End != len(v.Text) {
			return ifCondition{}, false
		}
		return ifCondition{Node: v.Node, Inner: strings.TrimSpace(regions[0].Inner(v.Text))}, true
	}
	if expression.ContainsExpression(v.Text) {
		return ifCondition{}, false
	}
	return ifCondition{Node: v.Node, Inner: v.Text, Bare: true}, true
}

// checkIfCondition applies the checks shared by job and step conditions.
// subject prefixes each message, as in "Job 'build'" or "Step".
func checkIfCondition(doc *cst.Document, cond ifCondition, subject string, syntaxMessage func(inner string) string) []validation.Diagnostic {
	var diags []validation.Diagnostic
	if cond.Bare {
		// Delimited conditions are parsed by the expression rule.
		if _, err := expression.ParseExpression(cond.Inner); err != nil {
			expressionValidationLog.Printf("Condition %q does not parse: %v", cond.Inner, err)
			return []validation.Diagnostic{newError(doc, cond.Node, syntaxMessage(cond.Inner))}
		}
	}
	if ref, ok := expression.UnknownContextProperty(cond.Inner); ok {
		diags = append(diags, newWarning(doc, cond.Node, fmt.Sprintf(
			"%s 'if' expression may reference undefined context variable: '%s'", subject, ref.Text())))
	}
	switch {
	case expression.IsPotentiallyAlwaysTrue(cond.Inner):
		diags = append(diags, newWarning(doc, cond.Node, fmt.Sprintf(
			"%s 'if' expression may always evaluate to true: '%s'", subject, cond.Inner)))
	case expression.IsPotentiallyAlwaysFalse(cond.Inner):
		diags = append(diags, newWarning(doc, cond.Node, fmt.Sprintf(
			"%s 'if' expression may always evaluate to false: '%s'", subject, cond.Inner)))
	}
	return diags
}

func validateJobIfExpressions(doc *cst.Document) []validation.Diagnostic {
	tables := xref.Build(doc)
	var diags []validation.Diagnostic
	forEachJob(tables, func(job *xref.Job) {
		value, found := cst.MappingValue(doc, job.Node, "if")
		if !found {
			return
		}
		cond, ok := readIfCondition(doc, value)
		if !ok {
			return
		}
		subject := fmt.Sprintf("Job '%s'", job.Name)
		diags = append(diags, checkIfCondition(doc, cond, subject, func(inner string) string {
			return fmt.Sprintf("Job '%s' has invalid 'if' expression syntax: '%s'", job.Name, inner)
		})...)

		for _, ref := range expression.ContextReferences(cond.Inner, "jobs") {
			if tables.HasJob(ref.Path[0]) {
				continue
			}
			diags = append(diags, newError(doc, cond.Node, fmt.Sprintf(
				"Job '%s' 'if' expression references non-existent job: 'jobs.%s'", job.Name, ref.Path[0])))
		}
	})
	return diags
}

func validateStepIfExpressions(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachStep(xref.Build(doc), func(_ *xref.Job, step *xref.Step) {
		value, found := cst.MappingValue(doc, step.Node, "if")
		if !found {
			return
		}
		if cond, ok := readIfCondition(doc, value); ok {
			diags = append(diags, checkIfCondition(doc, cond, "Step", func(inner string) string {
				return fmt.Sprintf("Invalid step 'if' expression syntax: '%s'", inner)
			})...)
		}
	})
	return diags
}
