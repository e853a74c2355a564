// This file provides validation for jobs that call reusable workflows.
//
// A job-level 'uses' names a workflow file, either in another repository as
// owner/repo/.github/workflows/file.yml@ref or in the same repository as
// ./.github/workflows/file.yml. Such a job runs the called workflow instead of
// its own steps, so 'runs-on' and 'steps' may not appear beside it.

package workflow

import (
	"fmt"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var reusableWorkflowLog = logger.New("workflow:reusable_workflow_validation")

const reusableWorkflowFormat = "Format: owner/repo/.github/workflows/file.yml@ref"

// reusableWorkflowJobFields may not be used together with a job-level 'uses'.
var reusableWorkflowJobFields = []string{"runs-on", "steps"}

func validateReusableWorkflowCalls(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		usesNode, found := cst.MappingValue(doc, job.Node, "uses")
		if !found {
			return
		}
		v, ok := readScalar(doc, usesNode)
		if !ok || v.Expr || v.Text == "" {
			return
		}
		reusableWorkflowLog.Printf("Job %q calls %q", job.Name, v.Text)
		diags = append(diags, checkReusableWorkflowPath(doc, job.Name, v)...)

		for _, field := range reusableWorkflowJobFields {
			if key := fieldKey(doc, job.Node, field); key != nil {
				diags = append(diags, newError(doc, key, fmt.Sprintf(
					"Job '%s' calls a reusable workflow and cannot also define '%s'.", job.Name, field)))
			}
		}
		for _, field := range []struct{ key, noun string }{{"with", "input"}, {"secrets", "secret"}} {
			value, found := cst.MappingValue(doc, job.Node, field.key)
			if !found || !isEmptyReusableValue(doc, value) {
				continue
			}
			diags = append(diags, newWarning(doc, fieldKey(doc, job.Node, field.key), fmt.Sprintf(
				"Job '%s' reusable workflow call has empty '%s:' field. Remove it or provide %s values.",
				job.Name, field.key, field.noun)))
		}
	})
	return diags
}

func checkReusableWorkflowPath(doc *cst.Document, job string, uses scalarValue) []validation.Diagnostic {
	text := uses.Text
	if strings.HasPrefix(text, "./") {
		if !strings.HasPrefix(text, "./.github/workflows/") {
			return []validation.Diagnostic{newError(doc, uses.Node, fmt.Sprintf(
				"Job '%s' reusable workflow call has invalid path: '%s'. Path must contain '/.github/workflows/'", job, text))}
		}
		return nil
	}

	path, _, hasRef := strings.Cut(text, "@")
	if !strings.Contains(path, ".github/workflows/") {
		if hasRef && strings.Count(path, "/") == 1 {
			return []validation.Diagnostic{newError(doc, uses.Node, fmt.Sprintf(
				"Job '%s' reusable workflow call '%s' has invalid format: missing path. %s", job, text, reusableWorkflowFormat))}
		}
		return []validation.Diagnostic{newError(doc, uses.Node, fmt.Sprintf(
			"Job '%s' reusable workflow call has invalid path: '%s'. Path must contain '/.github/workflows/'", job, path))}
	}
	if !hasRef {
		return []validation.Diagnostic{newError(doc, uses.Node, fmt.Sprintf(
			"Job '%s' reusable workflow call '%s' is missing @ref. %s", job, text, reusableWorkflowFormat))}
	}
	if !strings.Contains(path, "/.github/workflows/") {
		return []validation.Diagnostic{newError(doc, uses.Node, fmt.Sprintf(
			"Job '%s' reusable workflow call has invalid path: '%s'. Path must contain '/.github/workflows/'", job, path))}
	}
	return nil
}

// isEmptyReusableValue reports a with: or secrets: value that passes nothing.
// "secrets: inherit" is not empty.
func isEmptyReusableValue(doc *cst.Document, value *cst.Node) bool {
	if isEmptyValue(doc, value) {
		return true
	}
	value = cst.Unwrap(value)
	return cst.IsMapping(value) && len(cst.Pairs(value)) == 0
}
