//go:build !integration

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JuanMarchetto/truss/pkg/validation"
)

func TestParseActionReference(t *testing.T) {
	tests := []struct {
		name        string
		uses        string
		want        actionReference
		wantProblem string
	}{
		{
			name: "owner and repo",
			uses: "actions/checkout@v4",
			want: actionReference{Owner: "actions", Repo: "checkout", Ref: "v4"},
		},
		{
			name: "path inside repo",
			uses: "github/codeql-action/init@v3",
			want: actionReference{Owner: "github", Repo: "codeql-action", Path: "init", Ref: "v3"},
		},
		{
			name: "commit sha",
			uses: "actions/setup-go@0aaccfd150d50ccaeb58ebd88d36e91967a5f35b",
			want: actionReference{Owner: "actions", Repo: "setup-go", Ref: "0aaccfd150d50ccaeb58ebd88d36e91967a5f35b"},
		},
		{name: "missing ref", uses: "actions/checkout", wantProblem: "is missing required '@ref'"},
		{name: "two refs", uses: "actions/checkout@v4@v5", wantProblem: "has invalid format. Expected format: owner/repo@ref"},
		{name: "missing owner", uses: "checkout@v4", wantProblem: "is missing owner"},
		{name: "empty owner", uses: "/checkout@v4", wantProblem: "has invalid owner format"},
		{name: "empty repo", uses: "actions/@v4", wantProblem: "Repository name cannot be empty"},
		{name: "empty path", uses: "actions/checkout/@v4", wantProblem: "has invalid format. Expected format: owner/repo@ref"},
		{name: "empty ref", uses: "actions/checkout@", wantProblem: "has an empty ref after '@'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, problem := parseActionReference(tt.uses)
			if tt.wantProblem != "" {
				assert.Contains(t, problem, tt.wantProblem)
				return
			}
			assert.Empty(t, problem)
			assert.Equal(t, tt.want, ref)
		})
	}
}

func TestIsSemanticVersionTag(t *testing.T) {
	for _, ref := range []string{"v1", "v1.2", "v1.2.3", "1.2.3", "v2.0.0-beta.1"} {
		assert.True(t, isSemanticVersionTag(ref), ref)
	}
	for _, ref := range []string{"v1.2.3.4", "v1..2", "main", "v"} {
		assert.False(t, isSemanticVersionTag(ref), ref)
	}
}

func TestValidateActionReferences(t *testing.T) {
	runRuleCases(t, validateActionReferences, []ruleCase{
		{
			name: "valid references",
			yaml: stepsWorkflow("      - uses: actions/checkout@v4\n      - uses: ./.github/actions/setup\n      - uses: docker://alpine:3.20\n      - uses: octo/tool@main\n      - uses: octo/tool@v1.2.3\n"),
		},
		{
			name: "expression reference",
			yaml: stepsWorkflow("      - uses: ${{ inputs.action }}\n"),
		},
		{
			name:     "missing ref",
			yaml:     stepsWorkflow("      - uses: actions/checkout\n"),
			want:     []string{"action reference 'actions/checkout' is missing required '@ref'."},
			severity: validation.Error,
		},
		{
			name:     "missing owner",
			yaml:     stepsWorkflow("      - uses: checkout@v4\n"),
			want:     []string{"action reference 'checkout@v4' is missing owner."},
			severity: validation.Error,
		},
		{
			name:     "malformed version tag",
			yaml:     stepsWorkflow("      - uses: actions/checkout@v4.1.1.1\n"),
			want:     []string{"uses ref 'v4.1.1.1' that looks like a version tag but is not a valid semantic version"},
			severity: validation.Warning,
		},
	})
}

func TestValidateReusableWorkflowCalls(t *testing.T) {
	job := func(body string) string {
		return "on: push\njobs:\n  call:\n" + body
	}
	runRuleCases(t, validateReusableWorkflowCalls, []ruleCase{
		{name: "remote workflow", yaml: job("    uses: octo/repo/.github/workflows/build.yml@v1\n    with:\n      env: prod\n    secrets: inherit\n")},
		{name: "local workflow", yaml: job("    uses: ./.github/workflows/build.yml\n")},
		{name: "plain job", yaml: job("    runs-on: ubuntu-latest\n    steps:\n      - run: make\n")},
		{
			name:     "missing ref",
			yaml:     job("    uses: octo/repo/.github/workflows/build.yml\n"),
			want:     []string{"Job 'call' reusable workflow call 'octo/repo/.github/workflows/build.yml' is missing @ref."},
			severity: validation.Error,
		},
		{
			name:     "missing path",
			yaml:     job("    uses: octo/repo@v1\n"),
			want:     []string{"Job 'call' reusable workflow call 'octo/repo@v1' has invalid format: missing path."},
			severity: validation.Error,
		},
		{
			name:     "local path outside workflows",
			yaml:     job("    uses: ./ci/build.yml\n"),
			want:     []string{"Job 'call' reusable workflow call has invalid path: './ci/build.yml'."},
			severity: validation.Error,
		},
		{
			name:     "remote path outside workflows",
			yaml:     job("    uses: octo/repo/ci/build.yml@v1\n"),
			want:     []string{"has invalid path: 'octo/repo/ci/build.yml'."},
			severity: validation.Error,
		},
		{
			name:     "runs-on beside uses",
			yaml:     job("    uses: ./.github/workflows/build.yml\n    runs-on: ubuntu-latest\n"),
			want:     []string{"Job 'call' calls a reusable workflow and cannot also define 'runs-on'."},
			severity: validation.Error,
		},
		{
			name:     "empty with",
			yaml:     job("    uses: ./.github/workflows/build.yml\n    with: {}\n"),
			want:     []string{"Job 'call' reusable workflow call has empty 'with:' field. Remove it or provide input values."},
			severity: validation.Warning,
		},
		{
			name:     "empty secrets",
			yaml:     job("    uses: ./.github/workflows/build.yml\n    secrets:\n"),
			want:     []string{"has empty 'secrets:' field. Remove it or provide secret values."},
			severity: validation.Warning,
		},
	})
}
