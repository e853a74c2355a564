// This file provides validation for the inputs, secrets and outputs of
// reusable and manually dispatched workflows.
//
// # Validation Functions
//
//   - validateWorkflowCallInputs() - workflow_call input definitions and every inputs.* reference
//   - validateWorkflowDispatchInputs() - workflow_dispatch input definitions
//   - validateWorkflowCallSecrets() - workflow_call secret definitions and secrets.* references
//   - validateWorkflowCallOutputs() - workflow_call output values
//
// # Input Scope
//
// inputs.* resolves against the inputs of both triggers. When neither
// workflow_call nor workflow_dispatch is declared, every inputs.* reference
// is an error. When only workflow_dispatch is declared, undefined references
// are reported by validateWorkflowDispatchInputs with the dispatch wording.
//
// # Secret Scope
//
// secrets.* is only restricted in reusable workflows. GITHUB_TOKEN is always
// available.

package workflow

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/expression"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var workflowCallValidationLog = logger.New("workflow:workflow_call_validation")

var (
	workflowCallInputTypes     = []string{"string", "number", "choice", "boolean", "environment"}
	workflowDispatchInputTypes = []string{"string", "choice", "boolean", "environment", "number"}
)

func validateWorkflowCallInputs(doc *cst.Document) []validation.Diagnostic {
	tables := xref.Build(doc)
	var diags []validation.Diagnostic

	refs := inputReferences(doc)
	if !tables.HasWorkflowCall {
		if tables.HasWorkflowDispatch {
			return nil
		}
		for _, ref := range refs {
			diags = append(diags, newDiagnostic(validation.Error, validation.NewSpan(ref.Start, ref.End, doc.Len()), fmt.Sprintf(
				"Reference to input '%s' but workflow_call trigger is not defined", ref.Path[0])))
		}
		return diags
	}

	for _, input := range sortedInputs(tables.Inputs, xref.SourceWorkflowCall) {
		if input.HasType && !slices.Contains(workflowCallInputTypes, input.Type) {
			diags = append(diags, newError(doc, input.TypeNode, fmt.Sprintf(
				"Invalid input type '%s' for workflow_call input '%s'. Valid types are: %s",
				input.Type, input.Name, strings.Join(workflowCallInputTypes, ", "))))
		}
		diags = append(diags, validateInputProperties(doc, input)...)
	}

	names := tables.InputNames()
	for _, ref := range refs {
		if tables.HasInput(ref.Path[0]) {
			continue
		}
		diags = append(diags, newDiagnostic(validation.Error, validation.NewSpan(ref.Start, ref.End, doc.Len()), fmt.Sprintf(
			"Reference to undefined workflow_call input '%s'. Available inputs: %s", ref.Path[0], noneOr(names))))
	}
	return diags
}

func validateWorkflowDispatchInputs(doc *cst.Document) []validation.Diagnostic {
	tables := xref.Build(doc)
	if !tables.HasWorkflowDispatch {
		return nil
	}
	var diags []validation.Diagnostic
	for _, input := range sortedInputs(tables.DispatchInputs, xref.SourceWorkflowDispatch) {
		if input.HasType && !slices.Contains(workflowDispatchInputTypes, input.Type) {
			diags = append(diags, newError(doc, input.TypeNode, fmt.Sprintf(
				"Invalid input type '%s' for input '%s'. Valid types are: %s",
				input.Type, input.Name, strings.Join(workflowDispatchInputTypes, ", "))))
		}
		if input.Type == "choice" {
			diags = append(diags, validateChoiceInput(doc, input)...)
		}
		diags = append(diags, validateInputProperties(doc, input)...)
	}

	if tables.HasWorkflowCall {
		return diags
	}
	names := tables.InputNames()
	for _, ref := range inputReferences(doc) {
		if tables.HasInput(ref.Path[0]) {
			continue
		}
		diags = append(diags, newDiagnostic(validation.Error, validation.NewSpan(ref.Start, ref.End, doc.Len()), fmt.Sprintf(
			"Reference to undefined input '%s'. Available inputs: %s", ref.Path[0], noneOr(names))))
	}
	return diags
}

// inputReferences returns the named inputs.* references of doc. Wildcards
// such as inputs.* are skipped.
func inputReferences(doc *cst.Document) []expression.Reference {
	var refs []expression.Reference
	for _, ref := range expression.FindReferences(doc.Source, "inputs") {
		if ref.Path[0] != "*" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// sortedInputs returns the inputs declared under source in document order.
func sortedInputs(inputs map[string]xref.Input, source xref.InputSource) []xref.Input {
	var list []xref.Input
	for _, input := range inputs {
		if input.Source == source {
			list = append(list, input)
		}
	}
	slices.SortFunc(list, func(a, b xref.Input) int { return a.KeySpan.Start - b.KeySpan.Start })
	return list
}

// validateInputProperties checks the required, default and description
// fields of one input definition.
func validateInputProperties(doc *cst.Document, input xref.Input) []validation.Diagnostic {
	if input.Node == nil {
		return nil
	}
	var diags []validation.Diagnostic
	if required, found := cst.MappingValue(doc, input.Node, "required"); found {
		if value, _, bad := booleanProblem(doc, required); bad {
			diags = append(diags, newError(doc, spanNode(required, fieldKey(doc, input.Node, "required")), fmt.Sprintf(
				"Input '%s' has invalid 'required' value: '%s'. 'required' must be a boolean (true or false).", input.Name, value)))
		}
	}
	if input.Type == "boolean" {
		if def, found := cst.MappingValue(doc, input.Node, "default"); found && def != nil {
			if value, _, bad := booleanProblem(doc, def); bad {
				diags = append(diags, newWarning(doc, def, fmt.Sprintf(
					"Input '%s' has invalid default value for boolean type: '%s'. Default must be 'true' or 'false'.", input.Name, value)))
			}
		}
	}
	if desc, found := cst.MappingValue(doc, input.Node, "description"); found && isEmptyValue(doc, desc) {
		diags = append(diags, newWarning(doc, spanNode(desc, fieldKey(doc, input.Node, "description")), fmt.Sprintf(
			"Input '%s' has empty description. Consider adding a description to document the input.", input.Name)))
	}
	return diags
}

// validateChoiceInput checks that a choice input lists its options and that
// its default is one of them.
func validateChoiceInput(doc *cst.Document, input xref.Input) []validation.Diagnostic {
	if input.Node == nil {
		return nil
	}
	options, found := cst.MappingValue(doc, input.Node, "options")
	items := cst.Items(options)
	if !found || len(items) == 0 {
		return []validation.Diagnostic{newError(doc, spanNode(fieldKey(doc, input.Node, "options"), input.TypeNode), fmt.Sprintf(
			"Input '%s' has type 'choice' but no options. Choice inputs must define a non-empty 'options' list.", input.Name))}
	}
	def, found := cst.MappingValue(doc, input.Node, "default")
	v, ok := readScalar(doc, def)
	if !found || !ok || v.Expr || v.Text == "" {
		return nil
	}
	for _, item := range items {
		if cst.CleanText(doc, item) == v.Text {
			return nil
		}
	}
	return []validation.Diagnostic{newWarning(doc, def, fmt.Sprintf(
		"Input '%s' default '%s' is not one of its options.", input.Name, v.Text))}
}

func validateWorkflowCallSecrets(doc *cst.Document) []validation.Diagnostic {
	tables := xref.Build(doc)
	if !tables.HasWorkflowCall {
		return nil
	}
	var diags []validation.Diagnostic
	names := tables.SecretNames()
	for _, name := range names {
		secret := tables.Secrets[name]
		if secret.Node == nil {
			continue
		}
		if required, found := cst.MappingValue(doc, secret.Node, "required"); found {
			if value, _, bad := booleanProblem(doc, required); bad {
				diags = append(diags, newError(doc, spanNode(required, fieldKey(doc, secret.Node, "required")), fmt.Sprintf(
					"Secret '%s' has invalid 'required' value: '%s'. 'required' must be a boolean (true or false).", name, value)))
			}
		}
		if desc, found := cst.MappingValue(doc, secret.Node, "description"); found && isEmptyValue(doc, desc) {
			diags = append(diags, newWarning(doc, spanNode(desc, fieldKey(doc, secret.Node, "description")), fmt.Sprintf(
				"Secret '%s' has empty description. Consider adding a description to document the secret.", name)))
		}
	}

	for _, ref := range expression.FindReferences(doc.Source, "secrets") {
		name := ref.Path[0]
		if name == "GITHUB_TOKEN" || name == "*" {
			continue
		}
		if _, ok := tables.Secrets[name]; ok {
			continue
		}
		span := validation.NewSpan(ref.Start, ref.End, doc.Len())
		if len(names) == 0 {
			diags = append(diags, newDiagnostic(validation.Error, span, fmt.Sprintf(
				"Secret '%s' is referenced but workflow_call has no secrets defined.", name)))
			continue
		}
		diags = append(diags, newDiagnostic(validation.Error, span, fmt.Sprintf(
			"Reference to undefined workflow_call secret '%s'. Available secrets: %s", name, strings.Join(names, ", "))))
	}
	return diags
}

func validateWorkflowCallOutputs(doc *cst.Document) []validation.Diagnostic {
	tables := xref.Build(doc)
	var diags []validation.Diagnostic
	for _, out := range tables.CallOutputs {
		if out.ValueNode == nil {
			continue
		}
		text := doc.Text(out.ValueNode)
		for _, region := range expression.FindRegions(text) {
			if !region.Closed {
				continue
			}
			inner := strings.TrimSpace(region.Inner(text))
			span := validation.NewSpan(out.ValueNode.Start+region.Start, out.ValueNode.Start+region.End, doc.Len())
			refs := expression.ContextReferences(inner, "jobs")
			if inner != "" && !hasJobOutputReference(refs) {
				diags = append(diags, newDiagnostic(validation.Error, span, fmt.Sprintf(
					"workflow_call output has invalid expression: '%s'. Output value must reference a job output using 'jobs.<job_id>.outputs.<output_name>'.",
					inner)))
				continue
			}
			for _, ref := range refs {
				if len(ref.Path) < 3 || ref.Path[1] != "outputs" {
					continue
				}
				diags = append(diags, checkJobOutputReference(tables, span, ref.Path[0], ref.Path[2])...)
			}
		}
	}
	if len(diags) > 0 {
		workflowCallValidationLog.Printf("Found %d invalid workflow_call outputs", len(diags))
	}
	return diags
}

func hasJobOutputReference(refs []expression.Reference) bool {
	for _, ref := range refs {
		if len(ref.Path) >= 3 && ref.Path[1] == "outputs" {
			return true
		}
	}
	return false
}

// checkJobOutputReference resolves jobs.<job>.outputs.<output>. A job that
// declares no outputs mapping is reported as a warning, since its outputs
// cannot be checked.
func checkJobOutputReference(tables *xref.Tables, span validation.Span, job, output string) []validation.Diagnostic {
	if !tables.HasJob(job) {
		return []validation.Diagnostic{newDiagnostic(validation.Error, span, fmt.Sprintf(
			"workflow_call output references non-existent job: 'jobs.%s.outputs.%s'", job, output))}
	}
	outputs := tables.JobOutputs(job)
	if outputs == nil {
		return []validation.Diagnostic{newDiagnostic(validation.Warning, span, fmt.Sprintf(
			"workflow_call output references job '%s' which has no outputs defined.", job))}
	}
	if _, ok := outputs[output]; ok || output == "*" {
		return nil
	}
	names := slices.Sorted(maps.Keys(outputs))
	return []validation.Diagnostic{newDiagnostic(validation.Error, span, fmt.Sprintf(
		"workflow_call output references non-existent job output: 'jobs.%s.outputs.%s'. Available outputs: %s",
		job, output, noneOr(names)))}
}
