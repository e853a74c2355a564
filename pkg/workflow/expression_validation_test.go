//go:build !integration

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanMarchetto/truss/pkg/validation"
)

func TestValidateExpressions(t *testing.T) {
	runRuleCases(t, validateExpressions, []ruleCase{
		{name: "valid", yaml: stepsWorkflow("      - run: echo ${{ github.sha }}\n        if: ${{ success() }}\n")},
		{
			name:     "triple equals",
			yaml:     stepsWorkflow("      - run: echo ${{ github.ref === 'main' }}\n"),
			want:     []string{"Invalid operator in expression"},
			severity: validation.Error,
		},
		{
			name:     "unclosed",
			yaml:     "on: push\nenv:\n  REF: ${{ github.ref\n",
			want:     []string{"unclosed expression"},
			severity: validation.Error,
		},
		{
			name:     "unknown function",
			yaml:     stepsWorkflow("      - run: echo ${{ shout(github.actor) }}\n"),
			want:     []string{"Unknown function in expression: 'shout'"},
			severity: validation.Warning,
		},
	})
}

func TestValidateJobIfExpressions(t *testing.T) {
	runRuleCases(t, validateJobIfExpressions, []ruleCase{
		{name: "bare condition", yaml: "on: push\njobs:\n  build:\n    if: github.event_name == 'push'\n"},
		{name: "bare condition ending in a literal", yaml: "on: push\njobs:\n  build:\n    if: github.ref == 'refs/heads/main'\n"},
		{name: "double-quoted condition", yaml: "on: push\njobs:\n  build:\n    if: \"github.ref == 'main'\"\n"},
		{name: "single-quoted condition", yaml: "on: push\njobs:\n  build:\n    if: 'github.ref == ''main'''\n"},
		{name: "delimited condition", yaml: "on: push\njobs:\n  build:\n    if: ${{ !cancelled() }}\n"},
		{name: "embedded expression is not a condition", yaml: "on: push\njobs:\n  build:\n    if: ref-${{ github.ref }}\n"},
		{
			name:     "bare syntax error",
			yaml:     "on: push\njobs:\n  build:\n    if: github.ref ==\n",
			want:     []string{"Job 'build' has invalid 'if' expression syntax: 'github.ref =='"},
			severity: validation.Error,
		},
		{
			name:     "always true",
			yaml:     "on: push\njobs:\n  build:\n    if: true\n",
			want:     []string{"Job 'build' 'if' expression may always evaluate to true: 'true'"},
			severity: validation.Warning,
		},
		{
			name:     "always false through or",
			yaml:     "on: push\njobs:\n  build:\n    if: ${{ false || false }}\n",
			want:     []string{"may always evaluate to false: 'false || false'"},
			severity: validation.Warning,
		},
		{
			name:     "undocumented github property",
			yaml:     "on: push\njobs:\n  build:\n    if: ${{ github.branch == 'main' }}\n",
			want:     []string{"may reference undefined context variable: 'github.branch'"},
			severity: validation.Warning,
		},
		{
			name:     "unknown job",
			yaml:     "on: push\njobs:\n  deploy:\n    if: ${{ jobs.missing.result == 'success' }}\n",
			want:     []string{"Job 'deploy' 'if' expression references non-existent job: 'jobs.missing'"},
			severity: validation.Error,
		},
	})
}

func TestReadIfCondition(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantInner string
		wantBare  bool
	}{
		{name: "plain", value: "github.ref == 'refs/heads/main'", wantInner: "github.ref == 'refs/heads/main'", wantBare: true},
		{name: "double-quoted", value: `"github.ref == 'main'"`, wantInner: "github.ref == 'main'", wantBare: true},
		{name: "single-quoted with escapes", value: "'github.ref == ''main'''", wantInner: "github.ref == 'main'", wantBare: true},
		{name: "single-quoted empty literal", value: "'github.head_ref != '''''", wantInner: "github.head_ref != ''", wantBare: true},
		{name: "delimited", value: "${{ github.ref == 'main' }}", wantInner: "github.ref == 'main'"},
		{name: "quoted delimited", value: `"${{ github.ref == 'main' }}"`, wantInner: "github.ref == 'main'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseWorkflow(t, "if: "+tt.value+"\n")
			cond, ok := readIfCondition(doc, valueOf(t, doc, "if"))
			require.True(t, ok, "condition should be read")
			assert.Equal(t, tt.wantInner, cond.Inner)
			assert.Equal(t, tt.wantBare, cond.Bare)
		})
	}
}

func TestValidateStepIfExpressions(t *testing.T) {
	runRuleCases(t, validateStepIfExpressions, []ruleCase{
		{name: "status function", yaml: stepsWorkflow("      - run: make\n        if: failure()\n")},
		{name: "bare condition ending in a literal", yaml: stepsWorkflow("      - run: make\n        if: github.event_name == 'push'\n")},
		{name: "quoted condition ending in a literal", yaml: stepsWorkflow("      - run: make\n        if: \"github.event_name == 'push'\"\n")},
		{name: "block scalar is skipped", yaml: stepsWorkflow("      - run: make\n        if: |\n          true\n")},
		{
			name:     "bare syntax error",
			yaml:     stepsWorkflow("      - run: make\n        if: (github.ref\n"),
			want:     []string{"Invalid step 'if' expression syntax: '(github.ref'"},
			severity: validation.Error,
		},
		{
			name:     "always false",
			yaml:     stepsWorkflow("      - run: make\n        if: false\n"),
			want:     []string{"Step 'if' expression may always evaluate to false: 'false'"},
			severity: validation.Warning,
		},
	})
}

func TestValidateScriptInjection(t *testing.T) {
	runRuleCases(t, validateScriptInjection, []ruleCase{
		{
			name: "trusted context",
			yaml: stepsWorkflow("      - run: echo \"${{ github.sha }} ${{ github.event.pull_request.number }}\"\n"),
		},
		{
			name: "through environment variable",
			yaml: stepsWorkflow("      - env:\n          TITLE: ${{ github.event.issue.title }}\n        run: echo \"$TITLE\"\n"),
		},
		{
			name: "untrusted input outside run",
			yaml: stepsWorkflow("      - uses: actions/checkout@v4\n        with:\n          ref: ${{ github.head_ref }}\n"),
		},
		{
			name:     "issue title in run",
			yaml:     stepsWorkflow("      - run: echo \"${{ github.event.issue.title }}\"\n"),
			want:     []string{"untrusted input 'github.event.issue.title' is used directly in a 'run' script"},
			severity: validation.Warning,
		},
		{
			name:     "head ref in block script",
			yaml:     stepsWorkflow("      - run: |\n          git fetch origin\n          git checkout ${{ github.head_ref }}\n"),
			want:     []string{"untrusted input 'github.head_ref' is used directly"},
			severity: validation.Warning,
		},
		{
			name:     "wrapped in a function",
			yaml:     stepsWorkflow("      - run: echo \"${{ join(github.event.commits.*.message, ' ') }}\"\n"),
			want:     []string{"expression contains untrusted input 'github.event.commits.*.message'"},
			severity: validation.Warning,
		},
		{
			name:     "github-script body",
			yaml:     stepsWorkflow("      - uses: actions/github-script@v7\n        with:\n          script: |\n            core.info(\"${{ github.event.comment.body }}\")\n"),
			want:     []string{"untrusted input 'github.event.comment.body'"},
			severity: validation.Warning,
		},
	})
}

func TestValidateScriptInjectionSpan(t *testing.T) {
	source := stepsWorkflow("      - run: echo \"${{ github.event.pull_request.title }}\" && echo ${{ github.event.pull_request.head.ref }}\n")
	diags := validateScriptInjection(parseWorkflow(t, source))
	require.Len(t, diags, 2, "one finding per expression: %v", messagesOf(diags))
	assert.Equal(t, "${{ github.event.pull_request.title }}", source[diags[0].Span.Start:diags[0].Span.End])
	assert.Equal(t, "${{ github.event.pull_request.head.ref }}", source[diags[1].Span.Start:diags[1].Span.End])
}

func TestValidateSecretReferences(t *testing.T) {
	runRuleCases(t, validateSecretReferences, []ruleCase{
		{name: "correct reference", yaml: stepsWorkflow("      - run: deploy\n        env:\n          TOKEN: ${{ secrets.DEPLOY_TOKEN }}\n")},
		{name: "inside a string literal", yaml: stepsWorkflow("      - run: echo ${{ format('secret.{0}', github.ref) }}\n")},
		{
			name:     "singular secret",
			yaml:     stepsWorkflow("      - run: deploy\n        env:\n          TOKEN: ${{ secret.DEPLOY_TOKEN }}\n"),
			want:     []string{"Invalid secret reference: 'secret.DEPLOY_TOKEN' should be 'secrets.DEPLOY_TOKEN' (use plural 'secrets')"},
			severity: validation.Error,
		},
		{
			name:     "missing dot",
			yaml:     stepsWorkflow("      - run: deploy\n        env:\n          TOKEN: ${{ secrets_DEPLOY_TOKEN }}\n"),
			want:     []string{"Invalid secret reference: 'secrets_DEPLOY_TOKEN' should be 'secrets.DEPLOY_TOKEN' (missing dot)"},
			severity: validation.Error,
		},
	})
}

func TestValidateSecretReferencesSpan(t *testing.T) {
	source := "on: push\nenv:\n  A: ${{ secret.API_KEY }}\n"
	diags := validateSecretReferences(parseWorkflow(t, source))
	require.Len(t, diags, 1)
	assert.Equal(t, "secret.API_KEY", source[diags[0].Span.Start:diags[0].Span.End])
}

func TestValidateDeprecatedCommands(t *testing.T) {
	runRuleCases(t, validateDeprecatedCommands, []ruleCase{
		{name: "output file", yaml: stepsWorkflow("      - run: echo \"version=1\" >> $GITHUB_OUTPUT\n")},
		{
			name:     "set-output",
			yaml:     stepsWorkflow("      - run: echo \"::set-output name=version::1\"\n"),
			want:     []string{"Deprecated workflow command '::set-output' detected. Use `echo \"name=value\" >> $GITHUB_OUTPUT` instead"},
			severity: validation.Warning,
		},
		{
			name:     "add-path and set-env",
			yaml:     stepsWorkflow("      - run: |\n          echo \"::add-path::/opt/bin\"\n          echo \"::set-env name=A::1\"\n"),
			want:     []string{"'::add-path'", "'::set-env'"},
			severity: validation.Warning,
		},
	})
}

func TestValidateDeprecatedCommandsSpan(t *testing.T) {
	source := stepsWorkflow("      - run: echo \"::save-state name=pid::42\"\n")
	diags := validateDeprecatedCommands(parseWorkflow(t, source))
	require.Len(t, diags, 1)
	assert.Equal(t, "::save-state", source[diags[0].Span.Start:diags[0].Span.End])
}
