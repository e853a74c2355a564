//go:build !integration

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanMarchetto/truss/pkg/validation"
)

const callJobs = "jobs:\n  build:\n    runs-on: ubuntu-latest\n    steps:\n      - run: echo ${{ inputs.env }}\n"

func TestValidateWorkflowCallInputs(t *testing.T) {
	runRuleCases(t, validateWorkflowCallInputs, []ruleCase{
		{
			name: "declared input",
			yaml: "on:\n  workflow_call:\n    inputs:\n      env:\n        type: string\n        required: true\n" + callJobs,
		},
		{
			name: "dispatch input is left to the dispatch rule",
			yaml: "on:\n  workflow_dispatch:\n    inputs:\n      other:\n        type: string\n" + callJobs,
		},
		{
			name: "input declared by either trigger",
			yaml: "on:\n  workflow_call:\n    inputs:\n      target:\n        type: string\n  workflow_dispatch:\n    inputs:\n      env:\n        type: string\n" + callJobs,
		},
		{
			name:     "no trigger declares inputs",
			yaml:     "on: push\n" + callJobs,
			want:     []string{"Reference to input 'env' but workflow_call trigger is not defined"},
			severity: validation.Error,
		},
		{
			name:     "undefined input",
			yaml:     "on:\n  workflow_call:\n    inputs:\n      target:\n        type: string\n" + callJobs,
			want:     []string{"Reference to undefined workflow_call input 'env'. Available inputs: target"},
			severity: validation.Error,
		},
		{
			name:     "invalid type",
			yaml:     "on:\n  workflow_call:\n    inputs:\n      env:\n        type: list\n" + callJobs,
			want:     []string{"Invalid input type 'list' for workflow_call input 'env'. Valid types are: string, number, choice, boolean, environment"},
			severity: validation.Error,
		},
		{
			name:     "string required flag",
			yaml:     "on:\n  workflow_call:\n    inputs:\n      env:\n        type: string\n        required: 'yes'\n" + callJobs,
			want:     []string{"Input 'env' has invalid 'required' value: 'yes'."},
			severity: validation.Error,
		},
		{
			name:     "boolean default",
			yaml:     "on:\n  workflow_call:\n    inputs:\n      env:\n        type: boolean\n        default: maybe\n" + callJobs,
			want:     []string{"Input 'env' has invalid default value for boolean type: 'maybe'."},
			severity: validation.Warning,
		},
		{
			name:     "empty description",
			yaml:     "on:\n  workflow_call:\n    inputs:\n      env:\n        description: \"\"\n" + callJobs,
			want:     []string{"Input 'env' has empty description."},
			severity: validation.Warning,
		},
	})
}

func TestValidateWorkflowDispatchInputs(t *testing.T) {
	runRuleCases(t, validateWorkflowDispatchInputs, []ruleCase{
		{
			name: "choice input",
			yaml: "on:\n  workflow_dispatch:\n    inputs:\n      env:\n        type: choice\n        options: [dev, prod]\n        default: dev\n" + callJobs,
		},
		{
			name: "not dispatched",
			yaml: "on: push\n" + callJobs,
		},
		{
			name:     "choice without options",
			yaml:     "on:\n  workflow_dispatch:\n    inputs:\n      env:\n        type: choice\n" + callJobs,
			want:     []string{"Input 'env' has type 'choice' but no options."},
			severity: validation.Error,
		},
		{
			name:     "default outside options",
			yaml:     "on:\n  workflow_dispatch:\n    inputs:\n      env:\n        type: choice\n        options:\n          - dev\n          - prod\n        default: qa\n" + callJobs,
			want:     []string{"Input 'env' default 'qa' is not one of its options."},
			severity: validation.Warning,
		},
		{
			name:     "invalid type",
			yaml:     "on:\n  workflow_dispatch:\n    inputs:\n      env:\n        type: text\n" + callJobs,
			want:     []string{"Invalid input type 'text' for input 'env'."},
			severity: validation.Error,
		},
		{
			name:     "undefined input",
			yaml:     "on:\n  workflow_dispatch:\n    inputs:\n      region:\n        type: string\n" + callJobs,
			want:     []string{"Reference to undefined input 'env'. Available inputs: region"},
			severity: validation.Error,
		},
	})
}

func TestValidateWorkflowCallSecrets(t *testing.T) {
	const jobs = "jobs:\n  build:\n    runs-on: ubuntu-latest\n    steps:\n      - run: publish\n        env:\n          A: ${{ secrets.NPM_TOKEN }}\n          B: ${{ secrets.GITHUB_TOKEN }}\n"
	runRuleCases(t, validateWorkflowCallSecrets, []ruleCase{
		{
			name: "declared secret",
			yaml: "on:\n  workflow_call:\n    secrets:\n      NPM_TOKEN:\n        required: true\n" + jobs,
		},
		{
			name: "not a reusable workflow",
			yaml: "on: push\n" + jobs,
		},
		{
			name:     "no secrets declared",
			yaml:     "on:\n  workflow_call:\n" + jobs,
			want:     []string{"Secret 'NPM_TOKEN' is referenced but workflow_call has no secrets defined."},
			severity: validation.Error,
		},
		{
			name:     "undefined secret",
			yaml:     "on:\n  workflow_call:\n    secrets:\n      PYPI_TOKEN:\n        required: false\n" + jobs,
			want:     []string{"Reference to undefined workflow_call secret 'NPM_TOKEN'. Available secrets: PYPI_TOKEN"},
			severity: validation.Error,
		},
		{
			name:     "invalid required",
			yaml:     "on:\n  workflow_call:\n    secrets:\n      NPM_TOKEN:\n        required: sometimes\n" + jobs,
			want:     []string{"Secret 'NPM_TOKEN' has invalid 'required' value: 'sometimes'."},
			severity: validation.Error,
		},
	})
}

func TestValidateWorkflowCallOutputs(t *testing.T) {
	const jobs = "jobs:\n  build:\n    runs-on: ubuntu-latest\n    outputs:\n      version: ${{ steps.meta.outputs.version }}\n    steps:\n" + metaStep +
		"  lint:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make lint\n"
	call := func(value string) string {
		return "on:\n  workflow_call:\n    outputs:\n      version:\n        value: " + value + "\n" + jobs
	}
	runRuleCases(t, validateWorkflowCallOutputs, []ruleCase{
		{name: "wired output", yaml: call("${{ jobs.build.outputs.version }}")},
		{
			name:     "not a job output",
			yaml:     call("${{ github.sha }}"),
			want:     []string{"workflow_call output has invalid expression: 'github.sha'."},
			severity: validation.Error,
		},
		{
			name:     "unknown job",
			yaml:     call("${{ jobs.release.outputs.version }}"),
			want:     []string{"workflow_call output references non-existent job: 'jobs.release.outputs.version'"},
			severity: validation.Error,
		},
		{
			name:     "unknown output",
			yaml:     call("${{ jobs.build.outputs.tag }}"),
			want:     []string{"non-existent job output: 'jobs.build.outputs.tag'. Available outputs: version"},
			severity: validation.Error,
		},
		{
			name:     "job without outputs",
			yaml:     call("${{ jobs.lint.outputs.report }}"),
			want:     []string{"workflow_call output references job 'lint' which has no outputs defined."},
			severity: validation.Warning,
		},
	})
}

func TestValidateWorkflowCallOutputsSpan(t *testing.T) {
	source := "on:\n  workflow_call:\n    outputs:\n      v:\n        value: ${{ jobs.gone.outputs.v }}\njobs:\n  build:\n    runs-on: ubuntu-latest\n"
	diags := validateWorkflowCallOutputs(parseWorkflow(t, source))
	require.Len(t, diags, 1)
	assert.Equal(t, "${{ jobs.gone.outputs.v }}", source[diags[0].Span.Start:diags[0].Span.End])
}
