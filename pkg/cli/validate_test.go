//go:build !integration

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jsonReport struct {
	File        string `json:"file"`
	Valid       bool   `json:"valid"`
	Diagnostics []struct {
		Message  string `json:"message"`
		Severity string `json:"severity"`
		Span     struct {
			Start int `json:"start"`
			End   int `json:"end"`
		} `json:"span"`
		RuleID string `json:"rule_id"`
		Line   int    `json:"line"`
		Column int    `json:"column"`
	} `json:"diagnostics"`
	DurationMS float64 `json:"duration_ms"`
	Metadata   struct {
		FileSize int `json:"file_size"`
		Lines    int `json:"lines"`
	} `json:"metadata"`
	Error string `json:"error"`
}

func runValidate(t *testing.T, opts ValidateOptions) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	opts.Stdout = &out
	opts.Stderr = &errOut
	if opts.Stdin == nil {
		opts.Stdin = strings.NewReader("")
	}
	err = RunValidate(context.Background(), opts)
	return out.String(), errOut.String(), err
}

func TestRunValidateExitCodes(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "valid.yml", validWorkflow)
	broken := writeFile(t, dir, "broken.yml", brokenWorkflow)

	tests := []struct {
		name     string
		opts     ValidateOptions
		wantCode int
	}{
		{name: "valid file", opts: ValidateOptions{Paths: []string{valid}}, wantCode: ExitOK},
		{name: "file with errors", opts: ValidateOptions{Paths: []string{valid, broken}}, wantCode: ExitValidationFailed},
		{name: "quiet output still fails", opts: ValidateOptions{Paths: []string{broken}, Severity: "error", Quiet: true}, wantCode: ExitValidationFailed},
		{name: "missing file", opts: ValidateOptions{Paths: []string{filepath.Join(dir, "missing.yml")}}, wantCode: ExitIO},
		{name: "invalid severity", opts: ValidateOptions{Paths: []string{valid}, Severity: "fatal"}, wantCode: ExitUsage},
		{name: "config conflict", opts: ValidateOptions{Paths: []string{valid}, ConfigPath: "x.yml", NoConfig: true}, wantCode: ExitUsage},
		{name: "watch with stdin", opts: ValidateOptions{Paths: []string{"-"}, Watch: true}, wantCode: ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.opts.ConfigPath == "" {
				tt.opts.NoConfig = true
			}
			_, _, err := runValidate(t, tt.opts)
			assert.Equal(t, tt.wantCode, ExitCode(err), "error: %v", err)
		})
	}
}

func TestRunValidateTextOutput(t *testing.T) {
	dir := t.TempDir()
	broken := writeFile(t, dir, "broken.yml", brokenWorkflow)

	stdout, _, err := runValidate(t, ValidateOptions{Paths: []string{broken}, NoConfig: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)

	assert.Contains(t, stdout, "broken.yml:")
	assert.Contains(t, stdout, "[job_needs]")
	assert.Contains(t, stdout, "missing", "the offending line is shown as context")
	assert.Contains(t, stdout, "1 file checked")
}

func TestRunValidateQuietOutput(t *testing.T) {
	dir := t.TempDir()
	broken := writeFile(t, dir, "broken.yml", brokenWorkflow)

	stdout, _, _ := runValidate(t, ValidateOptions{Paths: []string{broken}, NoConfig: true, Quiet: true})
	assert.Contains(t, stdout, "[job_needs]")
	assert.NotContains(t, stdout, "file checked")
	assert.NotContains(t, stdout, " | ", "quiet output has no source context")
}

func TestRunValidateSeverityFilter(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "deprecated.yml", deprecatedWorkflow)

	stdout, _, err := runValidate(t, ValidateOptions{Paths: []string{path}, NoConfig: true})
	require.NoError(t, err, "warnings do not fail validation")
	assert.Contains(t, stdout, "[deprecated_commands]")

	stdout, _, err = runValidate(t, ValidateOptions{Paths: []string{path}, NoConfig: true, Severity: "error"})
	require.NoError(t, err)
	assert.NotContains(t, stdout, "[deprecated_commands]")
}

func TestRunValidateJSONFromStdin(t *testing.T) {
	stdout, _, err := runValidate(t, ValidateOptions{
		Paths:    []string{"-"},
		JSON:     true,
		NoConfig: true,
		Stdin:    strings.NewReader(brokenWorkflow),
	})
	assert.Equal(t, ExitValidationFailed, ExitCode(err))

	var reports []jsonReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &reports), "stdout must be valid JSON:\n%s", stdout)
	require.Len(t, reports, 1)

	report := reports[0]
	assert.Equal(t, "<stdin>", report.File)
	assert.False(t, report.Valid)
	assert.Equal(t, len(brokenWorkflow), report.Metadata.FileSize)
	assert.Equal(t, 9, report.Metadata.Lines)
	assert.GreaterOrEqual(t, report.DurationMS, 0.0)

	var found bool
	for _, d := range report.Diagnostics {
		if d.RuleID != "job_needs" {
			continue
		}
		found = true
		assert.Equal(t, "Error", d.Severity)
		assert.Greater(t, d.Line, 1)
		assert.GreaterOrEqual(t, d.Column, 1)
		assert.LessOrEqual(t, d.Span.Start, d.Span.End)
	}
	assert.True(t, found, "expected a job_needs diagnostic in %s", stdout)
}

func TestRunValidateJSONValidFile(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "valid.yml", validWorkflow)

	stdout, _, err := runValidate(t, ValidateOptions{Paths: []string{valid}, JSON: true, NoConfig: true, Severity: "error"})
	require.NoError(t, err)

	var reports []jsonReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &reports))
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Valid)
	assert.NotNil(t, reports[0].Diagnostics)
	assert.Empty(t, reports[0].Diagnostics)
	assert.Empty(t, reports[0].Error)
}

func TestRunValidateDirectoryKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yml", validWorkflow)
	writeFile(t, dir, "a.yaml", brokenWorkflow)
	writeFile(t, dir, "nested/c.yml", validWorkflow)
	writeFile(t, dir, "README.md", "# not a workflow")

	stdout, _, err := runValidate(t, ValidateOptions{Paths: []string{dir}, JSON: true, NoConfig: true})
	assert.Equal(t, ExitValidationFailed, ExitCode(err))

	var reports []jsonReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &reports))
	require.Len(t, reports, 3)
	assert.Equal(t, "a.yaml", filepath.Base(reports[0].File))
	assert.Equal(t, "b.yml", filepath.Base(reports[1].File))
	assert.Equal(t, "c.yml", filepath.Base(reports[2].File))
	assert.False(t, reports[0].Valid)
	assert.True(t, reports[1].Valid)
}

func TestRunValidateSequentialMatchesParallel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yml", brokenWorkflow)
	writeFile(t, dir, "b.yml", deprecatedWorkflow)

	parallel, _, _ := runValidate(t, ValidateOptions{Paths: []string{dir}, NoConfig: true, Quiet: true})
	sequential, _, _ := runValidate(t, ValidateOptions{Paths: []string{dir}, NoConfig: true, Quiet: true, Sequential: true})
	assert.Equal(t, parallel, sequential)
}

func TestRunValidateUsesConfig(t *testing.T) {
	dir := t.TempDir()
	broken := writeFile(t, dir, "workflows/broken.yml", brokenWorkflow)
	writeFile(t, dir, "workflows/generated-ci.yml", brokenWorkflow)
	writeFile(t, dir, ".truss.yml", "rules:\n  job_needs:\n    enabled: false\nignore:\n  - \"**/generated-*.yml\"\n")

	stdout, stderr, err := runValidate(t, ValidateOptions{Paths: []string{filepath.Join(dir, "workflows")}})
	require.NoError(t, err, "job_needs is disabled and the generated file is ignored")
	assert.NotContains(t, stdout, "[job_needs]")
	assert.Contains(t, stdout, "1 file checked")
	assert.Contains(t, stderr, ".truss.yml")

	_, _, err = runValidate(t, ValidateOptions{Paths: []string{broken}, NoConfig: true})
	assert.Equal(t, ExitValidationFailed, ExitCode(err), "--no-config skips the discovered file")
}

func TestRunValidateSeverityOverrideFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "deprecated.yml", deprecatedWorkflow)
	cfg := writeFile(t, t.TempDir(), "strict.toml", "[rules.deprecated_commands]\nseverity = \"error\"\n")

	_, _, err := runValidate(t, ValidateOptions{Paths: []string{path}, ConfigPath: cfg})
	assert.Equal(t, ExitValidationFailed, ExitCode(err))
}

func TestRunValidateInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "valid.yml", validWorkflow)
	writeFile(t, dir, ".truss.yml", "rules:\n  no_such_rule: {}\n")

	_, _, err := runValidate(t, ValidateOptions{Paths: []string{path}})
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.Contains(t, err.Error(), "unknown rule 'no_such_rule'")
}

func TestRunValidateAllFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vendor/ci.yml", brokenWorkflow)
	writeFile(t, dir, ".truss.yml", "ignore:\n  - \"vendor/**\"\n")

	_, stderr, err := runValidate(t, ValidateOptions{Paths: []string{path}})
	require.NoError(t, err)
	assert.Contains(t, stderr, "No files to validate")
}

func TestRunValidateStats(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "valid.yml", validWorkflow)

	stdout, _, err := runValidate(t, ValidateOptions{Paths: []string{path}, NoConfig: true, Stats: true})
	require.NoError(t, err)
	assert.Contains(t, stdout, "Validation Statistics")
	assert.Contains(t, stdout, "valid.yml")

	stdout, stderr, err := runValidate(t, ValidateOptions{Paths: []string{path}, NoConfig: true, Stats: true, JSON: true})
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Validation Statistics")
	assert.Contains(t, stderr, "Validation Statistics")
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 1, countLines("on: push"))
	assert.Equal(t, 1, countLines("on: push\n"))
	assert.Equal(t, 2, countLines("on: push\njobs: {}"))
}

func TestRunValidateWatch(t *testing.T) {
	original := watchDebounce
	watchDebounce = 20 * time.Millisecond
	t.Cleanup(func() { watchDebounce = original })

	dir := t.TempDir()
	path := writeFile(t, dir, "ci.yml", validWorkflow)

	var stdout, stderr syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunValidate(ctx, ValidateOptions{
			Paths:    []string{dir},
			Watch:    true,
			Quiet:    true,
			NoConfig: true,
			Stdin:    strings.NewReader(""),
			Stdout:   &stdout,
			Stderr:   &stderr,
		})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "Watching for changes")
	}, 5*time.Second, 10*time.Millisecond)
	assert.NotContains(t, stdout.String(), "[job_needs]")

	writeFile(t, dir, "ci.yml", brokenWorkflow)
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "[job_needs]")
	}, 5*time.Second, 10*time.Millisecond, "changed file should be revalidated; stdout:\n%s", stdout.String())
	assert.Contains(t, stdout.String(), filepath.Base(path))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func TestWatchSetMatches(t *testing.T) {
	dir := t.TempDir()
	single := writeFile(t, dir, "single/ci.yml", validWorkflow)
	writeFile(t, dir, "tree/nested/a.yml", validWorkflow)
	tree := filepath.Join(dir, "tree")

	ws, err := newWatchSet([]string{single, tree}, []string{single, filepath.Join(tree, "nested", "a.yml")})
	require.NoError(t, err)

	assert.Contains(t, ws.dirs, filepath.Join(dir, "single"))
	assert.Contains(t, ws.dirs, tree)
	assert.Contains(t, ws.dirs, filepath.Join(tree, "nested"))

	assert.True(t, ws.matches(single))
	assert.False(t, ws.matches(filepath.Join(dir, "single", "other.yml")), "only the named file in its directory")
	assert.True(t, ws.matches(filepath.Join(tree, "nested", "new.yaml")), "new files under a directory argument")
	assert.False(t, ws.matches(filepath.Join(tree, "notes.md")))
}
