//go:build !integration

package console

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JuanMarchetto/truss/pkg/validation"
)

func TestPositionOf(t *testing.T) {
	const source = "on: push\njobs:\n  ünï: x\n"

	tests := []struct {
		name   string
		offset int
		want   Position
	}{
		{name: "start", offset: 0, want: Position{Line: 1, Column: 1}},
		{name: "mid first line", offset: 4, want: Position{Line: 1, Column: 5}},
		{name: "at newline", offset: 8, want: Position{Line: 1, Column: 9}},
		{name: "second line", offset: 9, want: Position{Line: 2, Column: 1}},
		{name: "after multibyte", offset: 22, want: Position{Line: 3, Column: 6}},
		{name: "negative clamps", offset: -5, want: Position{Line: 1, Column: 1}},
		{name: "past end clamps", offset: 1000, want: Position{Line: 4, Column: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PositionOf(source, tt.offset))
		})
	}
}

func TestFormatDiagnostic(t *testing.T) {
	const source = "on: push\njobs: {}\n"
	d := validation.Diagnostic{
		Message:  "Workflow has no jobs",
		Severity: validation.Error,
		Span:     validation.Span{Start: 9, End: 17},
		RuleID:   "github_actions_schema",
	}

	assert.Equal(t, "ci.yml:2:1: error: Workflow has no jobs [github_actions_schema]\n", FormatDiagnostic("ci.yml", source, d))
	assert.Equal(t, "error: Workflow has no jobs [github_actions_schema]\n", FormatDiagnostic("", source, d))

	d.RuleID = ""
	d.Severity = validation.Info
	assert.Equal(t, "ci.yml:2:1: info: Workflow has no jobs\n", FormatDiagnostic("ci.yml", source, d))
}

func TestFormatDiagnosticWithContextClampsSpan(t *testing.T) {
	d := validation.Diagnostic{Message: "m", Severity: validation.Error, Span: validation.Span{Start: 50, End: 80}}
	assert.Equal(t, "x.yml:2:1: error: m\n2 | \n  | ^\n", FormatDiagnosticWithContext("x.yml", "on: push\n", d))
}

func TestToRelativePath(t *testing.T) {
	assert.Equal(t, "a/b.yml", ToRelativePath("a/b.yml"))

	abs, err := filepath.Abs(filepath.Join("testdata", "ci.yml"))
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "ci.yml"), ToRelativePath(abs))
}

func TestFormatSummary(t *testing.T) {
	assert.Equal(t, "✗ 2 files checked: 1 error, 0 warnings, 3 infos", FormatSummary(2, 1, 0, 3))
	assert.Equal(t, "⚠ 1 file checked: 0 errors, 1 warning, 0 infos", FormatSummary(1, 0, 1, 0))
	assert.Equal(t, "✓ 1 file checked: 0 errors, 0 warnings, 1 info", FormatSummary(1, 0, 0, 1))
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.00k"},
		{12345, "12.3k"},
		{999999, "1000k"},
		{1500000, "1.50M"},
		{2000000000, "2.00B"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.n), "FormatNumber(%d)", tt.n)
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFileSize(tt.size), "FormatFileSize(%d)", tt.size)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250µs", FormatDuration(250*time.Microsecond))
	assert.Equal(t, "1.5ms", FormatDuration(1500*time.Microsecond))
	assert.Equal(t, "2.25s", FormatDuration(2250*time.Millisecond))
}

func TestParseConsoleTag(t *testing.T) {
	tag := parseConsoleTag("header:Size, format:filesize,maxlen:10,default:none")
	assert.Equal(t, consoleTag{header: "Size", format: "filesize", maxLen: 10, defaultVal: "none"}, tag)
	assert.True(t, parseConsoleTag("-").skip)
}

func TestRenderSliceEdgeCases(t *testing.T) {
	assert.Empty(t, RenderSlice("t", nil))
	assert.Empty(t, RenderSlice("t", []fileStat{}))
	assert.Empty(t, RenderSlice("t", 42))

	type row struct {
		Name  string `console:"header:Name,default:none"`
		Count int
		Skip  string `console:"-"`
	}
	out := RenderSlice("", []*row{{Name: "", Count: 1500}})
	assert.Equal(t, "Name | Count\n---- | -----\nnone | 1500\n", out)
}
