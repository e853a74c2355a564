// This file provides validation for step and job output wiring.
//
// # Validation Functions
//
//   - validateStepOutputReferences() - Resolves every steps.<id>.outputs.<name> reference
//   - validateJobOutputs() - Checks the steps referenced from a job's outputs mapping
//
// # Resolution
//
// Step outputs are only visible inside the job that runs the step. A
// reference resolves when the job has a step with that id and the output is
// declared, or when the step's outputs cannot be inferred from its script.
// Misses are explained by looking at the other jobs and at steps without an
// id (see xref.ResolveStepOutput).
//
// References inside a job's outputs mapping are left to validateJobOutputs
// unless they name an output the step does not write.

package workflow

import (
	"fmt"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/expression"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var stepOutputValidationLog = logger.New("workflow:step_output_validation")

func validateStepOutputReferences(doc *cst.Document) []validation.Diagnostic {
	tables := xref.Build(doc)
	var diags []validation.Diagnostic
	forEachJob(tables, func(job *xref.Job) {
		for _, ref := range tables.StepReferences(job) {
			if len(ref.Path) < 3 || ref.Path[1] != "outputs" {
				continue
			}
			id, output := ref.Path[0], ref.Path[2]
			span := validation.NewSpan(ref.Start, ref.End, doc.Len())
			prefix := fmt.Sprintf("Job '%s' references step output 'steps.%s.outputs.%s'", job.Name, id, output)

			if output != "*" && !xref.ValidOutputName(output) {
				diags = append(diags, newDiagnostic(validation.Warning, span, prefix+
					" with potentially invalid output name format. Output names should contain only alphanumeric characters, hyphens, and underscores."))
				continue
			}

			res := tables.ResolveStepOutput(job.Name, id, output)
			if output == "*" && res.Kind == xref.UnknownOutput {
				continue
			}
			if res.Kind != xref.UnknownOutput && inOutputs(job, ref) {
				continue
			}

			var message string
			switch res.Kind {
			case xref.Resolved:
				continue
			case xref.UnknownOutput:
				message = fmt.Sprintf("%s but output '%s' is not found. Available outputs: %s", prefix, output, noneOr(res.Available))
			case xref.OtherJob:
				message = fmt.Sprintf("%s but step '%s' is in job '%s'. Step outputs can only be referenced within the same job.",
					prefix, id, res.Job)
			case xref.MissingID:
				message = fmt.Sprintf("%s but step '%s' does not have an 'id' field. Steps must have an 'id' field to be referenced.",
					prefix, id)
			default:
				message = fmt.Sprintf("%s but step '%s' does not exist in this job.", prefix, id)
			}
			diags = append(diags, newDiagnostic(validation.Error, span, message))
		}
	})
	if len(diags) > 0 {
		stepOutputValidationLog.Printf("Found %d unresolved step output references", len(diags))
	}
	return diags
}

// inOutputs reports whether ref lies inside the outputs mapping of job.
func inOutputs(job *xref.Job, ref expression.Reference) bool {
	return job.OutputsNode != nil && ref.Start >= job.OutputsNode.Start && ref.End <= job.OutputsNode.End
}

func validateJobOutputs(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		if job.OutputsNode == nil {
			return
		}
		ids := job.StepIDs()
		for _, ref := range xref.References(doc, job.OutputsNode, "steps") {
			span := validation.NewSpan(ref.Start, ref.End, doc.Len())
			id := ref.Path[0]
			if len(ref.Path) == 2 && ref.Path[1] == "outputs" {
				diags = append(diags, newDiagnostic(validation.Error, span, fmt.Sprintf(
					"Job '%s' output has invalid syntax. Output reference 'steps.%s.outputs' is missing the output property name. Expected format: steps.%s.outputs.property_name",
					job.Name, id, id)))
				continue
			}
			if _, ok := job.StepByID(id); ok {
				continue
			}
			diags = append(diags, newDiagnostic(validation.Error, span, fmt.Sprintf(
				"Job '%s' output references step '%s' which does not exist. Available step IDs: %s",
				job.Name, id, noneOr(ids))))
		}
	})
	return diags
}
