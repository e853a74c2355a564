// This file provides validation for workflow, job and step names.
//
// # Validation Functions
//
//   - validateWorkflowName() - Top-level 'name' must be non-empty and at most 255 characters
//   - validateJobNames() - Job ids must be unique, use the identifier charset and avoid reserved words
//   - validateStepNames() - Step names should be non-empty and reasonably short

package workflow

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/expression"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var nameValidationLog = logger.New("workflow:name_validation")

const (
	maxWorkflowNameLength = 255
	maxJobNameLength      = 100
	maxStepNameLength     = 100
)

// reservedJobNames are keywords that cannot be used as job ids.
var reservedJobNames = []string{"if", "else", "elif", "for", "while", "with"}

func validateWorkflowName(doc *cst.Document) []validation.Diagnostic {
	name, found := cst.TopLevel(doc, "name")
	if !found {
		return nil
	}
	if isEmptyValue(doc, name) {
		return []validation.Diagnostic{newError(doc, spanNode(name, fieldKey(doc, cst.Body(doc), "name")),
			"Workflow name cannot be empty")}
	}
	v, ok := readScalar(doc, name)
	if !ok || expression.ContainsExpression(v.Text) {
		return nil
	}
	if n := utf8.RuneCountInString(v.Text); n > maxWorkflowNameLength {
		return []validation.Diagnostic{newError(doc, name,
			fmt.Sprintf("Workflow name is too long (%d characters, maximum is %d)", n, maxWorkflowNameLength))}
	}
	return nil
}

func validateJobNames(doc *cst.Document) []validation.Diagnostic {
	tables := xref.Build(doc)
	seen := make(map[string]bool, len(tables.Jobs))

	var diags []validation.Diagnostic
	for _, job := range tables.Jobs {
		name := job.Name
		if seen[name] {
			diags = append(diags, newError(doc, job.Key, fmt.Sprintf("duplicate job name: '%s'", name)))
			continue
		}
		seen[name] = true

		if slices.Contains(reservedJobNames, strings.ToLower(name)) {
			diags = append(diags, newError(doc, job.Key, fmt.Sprintf("Reserved name cannot be used as job name: '%s'", name)))
			continue
		}
		if !isIdentifier(name) {
			diags = append(diags, newError(doc, job.Key, fmt.Sprintf(
				"Invalid job name: '%s'. Job names must contain only alphanumeric characters, hyphens, and underscores.", name)))
		}
		if n := utf8.RuneCountInString(name); n > maxJobNameLength {
			diags = append(diags, newWarning(doc, job.Key, fmt.Sprintf(
				"Job name '%s' is too long (%d characters). Consider using a shorter name (recommended: < 50 characters).", name, n)))
		}
	}
	if len(diags) > 0 {
		nameValidationLog.Printf("Found %d job name problems", len(diags))
	}
	return diags
}

func validateStepNames(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachStep(xref.Build(doc), func(_ *xref.Job, step *xref.Step) {
		name, found := cst.MappingValue(doc, step.Node, "name")
		if !found {
			return
		}
		if isEmptyValue(doc, name) {
			diags = append(diags, newWarning(doc, spanNode(name, fieldKey(doc, step.Node, "name")),
				"Step has empty name. Consider providing a descriptive name for better workflow visibility."))
			return
		}
		if n := utf8.RuneCountInString(step.Name); n > maxStepNameLength {
			diags = append(diags, newWarning(doc, name, fmt.Sprintf(
				"Step name is very long (%d characters). Consider using a shorter, more concise name.", n)))
		}
	})
	return diags
}
