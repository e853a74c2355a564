//go:build !integration

package engine

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/workflow"
)

var fixtures = []string{"simple", "medium", "complex-static", "complex-dynamic"}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "fixtures", name+".yml"))
	require.NoError(t, err, "fixture %s should be readable", name)
	return string(data)
}

func messages(diags []validation.Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Severity.String()+": "+d.Message+" ["+d.RuleID+"]")
	}
	return out
}

func TestFixturesHaveNoErrors(t *testing.T) {
	e := New()
	for _, name := range fixtures {
		t.Run(name, func(t *testing.T) {
			result := e.Analyze(readFixture(t, name))
			assert.Empty(t, result.Errors(), "%s should produce no errors:\n%s", name,
				strings.Join(messages(result.Errors()), "\n"))
			assert.True(t, result.IsOK())
		})
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	sources := []string{
		readFixture(t, "complex-static"),
		readFixture(t, "complex-dynamic"),
		"on: push\njobs:\n  a:\n    needs: b\n    runs-on: ubuntu-lastest\n    steps:\n      - run: echo ${{ github.event.issue.title }}\n  b:\n    needs: a\n    runs-on: ubuntu-latest\n    steps:\n      - uses: actions/checkout\n",
		"on: [push\njobs: {",
	}

	parallel := New()
	sequential := New(WithSequential())
	for i, source := range sources {
		first := parallel.Analyze(source)
		second := parallel.Analyze(source)
		third := sequential.Analyze(source)
		assert.Equal(t, first, second, "source %d: repeated parallel runs differ", i)
		assert.Equal(t, first, third, "source %d: parallel and sequential runs differ", i)
	}
}

func TestRuleOrderDoesNotChangeResult(t *testing.T) {
	source := "on: push\njobs:\n  a:\n    needs: [a, missing]\n    runs-on: windows-3000\n    timeout-minutes: -1\n    steps:\n      - id: x\n        id2: y\n      - run: echo \"::set-output name=v::1\"\n"

	reversed := workflow.DefaultRules()
	slices.Reverse(reversed)

	want := New().Analyze(source)
	got := New(WithRules(reversed...)).Analyze(source)
	require.NotEmpty(t, want.Diagnostics)
	assert.Equal(t, want, got)
}

func TestEmptyDocument(t *testing.T) {
	result := New().Analyze("")
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, validation.Warning, result.Diagnostics[0].Severity)
	assert.Contains(t, result.Diagnostics[0].Message, "empty")
	assert.True(t, result.IsOK())
}

func TestNonWorkflowDocumentSkipsWorkflowRules(t *testing.T) {
	result := New().Analyze("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: demo\n")
	assert.Empty(t, result.Diagnostics, "got %v", messages(result.Diagnostics))
}

func TestCircularNeeds(t *testing.T) {
	source := "on: push\njobs:\n  A:\n    needs: [B]\n    runs-on: ubuntu-latest\n    steps:\n      - run: echo a\n  B:\n    needs: [A]\n    runs-on: ubuntu-latest\n    steps:\n      - run: echo b\n"
	result := New().Analyze(source)

	var found bool
	for _, d := range result.Errors() {
		if strings.Contains(d.Message, "circular dependency") &&
			(strings.Contains(d.Message, "'A'") || strings.Contains(d.Message, "'B'")) {
			found = true
		}
	}
	assert.True(t, found, "expected a circular dependency error, got %v", messages(result.Diagnostics))
	assert.False(t, result.IsOK())
}

func TestCronBounds(t *testing.T) {
	workflowWithCron := func(cron string) string {
		return "on:\n  schedule:\n    - cron: '" + cron + "'\njobs:\n  nightly:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make nightly\n"
	}

	result := New().Analyze(workflowWithCron("60 0 * * *"))
	var found bool
	for _, d := range result.Errors() {
		if strings.Contains(d.Message, "out of range") && strings.Contains(d.Message, "minute") {
			found = true
		}
	}
	assert.True(t, found, "got %v", messages(result.Diagnostics))

	result = New().Analyze(workflowWithCron("*/15 * * * *"))
	for _, d := range result.Diagnostics {
		assert.NotContains(t, strings.ToLower(d.Message), "cron", "unexpected cron diagnostic")
	}
}

func TestConditionsEndingInStringLiterals(t *testing.T) {
	source := `on: push
jobs:
  a:
    runs-on: ubuntu-latest
    steps:
      - run: echo a
  b:
    needs: a
    if: github.ref == 'refs/heads/main'
    runs-on: ubuntu-latest
    steps:
      - run: echo hi
        if: github.event_name == 'push'
      - run: echo quoted
        if: "github.actor != 'dependabot[bot]'"
      - run: echo escaped
        if: 'github.base_ref == ''main'''
`
	result := New().Analyze(source)
	assert.Empty(t, result.Diagnostics, "got %v", messages(result.Diagnostics))
}

func TestStepOutputFromAnotherJob(t *testing.T) {
	source := `on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - id: x
        run: echo "y=1" >> $GITHUB_OUTPUT
  deploy:
    needs: build
    runs-on: ubuntu-latest
    steps:
      - run: echo ${{ steps.x.outputs.y }}
`
	result := New().Analyze(source)

	var found *validation.Diagnostic
	for _, d := range result.Errors() {
		if strings.Contains(d.Message, "is in job 'build'") {
			found = &d
		}
	}
	require.NotNil(t, found, "got %v", messages(result.Diagnostics))
	assert.Equal(t, "step_output_reference", found.RuleID)
	assert.Equal(t, "steps.x.outputs.y", source[found.Span.Start:found.Span.End])
}

func TestConcurrencyRequiresGroup(t *testing.T) {
	const jobs = "jobs:\n  build:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make\n"
	countMissingGroup := func(source string) int {
		n := 0
		for _, d := range New().Analyze(source).Errors() {
			if strings.Contains(d.Message, "missing") && strings.Contains(d.Message, "group") {
				n++
			}
		}
		return n
	}

	assert.Equal(t, 1, countMissingGroup("on: push\nconcurrency: { cancel-in-progress: true }\n"+jobs))
	assert.Equal(t, 0, countMissingGroup("on: push\nconcurrency: { group: g, cancel-in-progress: true }\n"+jobs))
}

func TestScriptInjection(t *testing.T) {
	inRun := "on: pull_request\njobs:\n  greet:\n    runs-on: ubuntu-latest\n    steps:\n      - run: echo \"${{ github.event.pull_request.title }}\"\n"
	inEnv := "on: pull_request\njobs:\n  greet:\n    runs-on: ubuntu-latest\n    steps:\n      - run: echo \"$TITLE\"\n        env:\n          TITLE: ${{ github.event.pull_request.title }}\n"

	var warned bool
	for _, d := range New().Analyze(inRun).Warnings() {
		if strings.Contains(d.Message, "untrusted") {
			warned = true
		}
	}
	assert.True(t, warned, "run script should be flagged")

	for _, d := range New().Analyze(inEnv).Diagnostics {
		assert.NotContains(t, d.Message, "untrusted", "env values are exempt")
	}
}

// staticOverrides disables and re-grades rules by name.
type staticOverrides struct {
	disabled []string
	severity map[string]validation.Severity
}

func (o staticOverrides) RuleEnabled(name string) bool {
	return !slices.Contains(o.disabled, name)
}

func (o staticOverrides) RuleSeverity(name string) (validation.Severity, bool) {
	s, ok := o.severity[name]
	return s, ok
}

func TestOverrides(t *testing.T) {
	source := "on: push\njobs:\n  a:\n    needs: missing\n    runs-on: ubuntu-latest\n    steps:\n      - name: \"\"\n        run: make\n"

	base := New().Analyze(source)
	require.NotEmpty(t, base.Errors())

	overridden := New(WithOverrides(staticOverrides{
		disabled: []string{"job_needs"},
		severity: map[string]validation.Severity{"step_name": validation.Error},
	})).Analyze(source)

	for _, d := range overridden.Diagnostics {
		assert.NotEqual(t, "job_needs", d.RuleID)
		if d.RuleID == "step_name" {
			assert.Equal(t, validation.Error, d.Severity)
		}
	}
	assert.True(t, slices.ContainsFunc(overridden.Diagnostics, func(d validation.Diagnostic) bool {
		return d.RuleID == "step_name"
	}))
}

type panicRule struct{}

func (panicRule) Name() string { return "explodes" }

func (panicRule) Validate(*cst.Document) []validation.Diagnostic { panic("boom") }

func TestPanickingRuleBecomesDiagnostic(t *testing.T) {
	result := New(WithExtraRules(panicRule{})).Analyze("on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make\n")

	var found bool
	for _, d := range result.Errors() {
		if d.RuleID == "explodes" {
			found = true
			assert.Contains(t, d.Message, "internal error in rule 'explodes'")
		}
	}
	assert.True(t, found)
}

func TestRuleNames(t *testing.T) {
	assert.Equal(t, workflow.RuleNames(), New().RuleNames())
	assert.Equal(t, []string{"explodes"}, New(WithRules(panicRule{})).RuleNames())
}

func TestConcurrentAnalyze(t *testing.T) {
	e := New()
	sources := make([]string, 0, len(fixtures))
	want := make([]validation.AnalysisResult, 0, len(fixtures))
	for _, name := range fixtures {
		source := readFixture(t, name)
		sources = append(sources, source)
		want = append(want, e.Analyze(source))
	}

	got := make([][]validation.AnalysisResult, 8)
	var wg conc.WaitGroup
	for i := range got {
		wg.Go(func() {
			for _, source := range sources {
				got[i] = append(got[i], e.Analyze(source))
			}
		})
	}
	wg.Wait()

	for i := range got {
		assert.Equal(t, want, got[i], "worker %d", i)
	}
}
