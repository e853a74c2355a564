package workflow

import (
	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
)

var catalogLog = logger.New("workflow:catalog")

// funcRule adapts a validate function to validation.Rule.
type funcRule struct {
	name string
	// anyDoc marks rules that also run on documents that are not workflows.
	anyDoc   bool
	validate func(doc *cst.Document) []validation.Diagnostic
}

func (r funcRule) Name() string { return r.name }

func (r funcRule) Validate(doc *cst.Document) []validation.Diagnostic {
	return r.validate(doc)
}

func (r funcRule) RequiresWorkflow() bool { return !r.anyDoc }

// catalog lists every built-in rule in registration order.
var catalog = []funcRule{
	{name: "non_empty", anyDoc: true, validate: validateNonEmpty},
	{name: "syntax", anyDoc: true, validate: validateSyntax},
	{name: "github_actions_schema", validate: validateWorkflowSchema},
	{name: "workflow_trigger", validate: validateWorkflowTrigger},
	{name: "workflow_name", validate: validateWorkflowName},
	{name: "job_name", validate: validateJobNames},
	{name: "job_needs", validate: validateJobNeeds},
	{name: "runs_on_required", validate: validateRunsOn},
	{name: "runner_label", validate: validateRunnerLabels},
	{name: "timeout", validate: validateJobTimeout},
	{name: "continue_on_error", validate: validateJobContinueOnError},
	{name: "job_container", validate: validateJobContainers},
	{name: "job_strategy", validate: validateJobStrategy},
	{name: "matrix_strategy", validate: validateMatrix},
	{name: "step", validate: validateSteps},
	{name: "step_id_uniqueness", validate: validateStepIDs},
	{name: "step_name", validate: validateStepNames},
	{name: "step_timeout", validate: validateStepTimeout},
	{name: "step_continue_on_error", validate: validateStepContinueOnError},
	{name: "step_env", validate: validateEnvNames},
	{name: "step_working_directory", validate: validateStepWorkingDirectory},
	{name: "step_shell", validate: validateStepShell},
	{name: "defaults", validate: validateDefaults},
	{name: "concurrency", validate: validateConcurrency},
	{name: "permissions", validate: validatePermissions},
	{name: "environment", validate: validateEnvironments},
	{name: "event_payload", validate: validateEventPayload},
	{name: "expression", validate: validateExpressions},
	{name: "job_if_expression", validate: validateJobIfExpressions},
	{name: "step_if_expression", validate: validateStepIfExpressions},
	{name: "script_injection", validate: validateScriptInjection},
	{name: "secrets_validation", validate: validateSecretReferences},
	{name: "deprecated_commands", validate: validateDeprecatedCommands},
	{name: "step_output_reference", validate: validateStepOutputReferences},
	{name: "job_outputs", validate: validateJobOutputs},
	{name: "workflow_call_inputs", validate: validateWorkflowCallInputs},
	{name: "workflow_inputs", validate: validateWorkflowDispatchInputs},
	{name: "workflow_call_secrets", validate: validateWorkflowCallSecrets},
	{name: "workflow_call_outputs", validate: validateWorkflowCallOutputs},
	{name: "reusable_workflow_call", validate: validateReusableWorkflowCalls},
	{name: "artifact", validate: validateArtifacts},
	{name: "action_reference", validate: validateActionReferences},
}

// DefaultRules returns a fresh slice holding every built-in rule.
func DefaultRules() []validation.Rule {
	rules := make([]validation.Rule, 0, len(catalog))
	for _, r := range catalog {
		rules = append(rules, r)
	}
	catalogLog.Printf("Registered %d default rules", len(rules))
	return rules
}

// RuleNames returns the names of the built-in rules in registration order.
func RuleNames() []string {
	names := make([]string, 0, len(catalog))
	for _, r := range catalog {
		names = append(names, r.name)
	}
	return names
}
