package console

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JuanMarchetto/truss/pkg/validation"
)

// Position is a 1-based line and column. Columns count characters, not bytes.
type Position struct {
	Line   int
	Column int
}

// PositionOf maps a byte offset in source to a Position. Offsets outside the
// source are clamped.
func PositionOf(source string, offset int) Position {
	offset = max(0, min(offset, len(source)))
	before := source[:offset]
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return Position{
		Line:   strings.Count(before, "\n") + 1,
		Column: utf8.RuneCountInString(before[lineStart:]) + 1,
	}
}

// lineAt returns the text of the line containing offset, without its line
// terminator, and the byte offset at which that line starts.
func lineAt(source string, offset int) (string, int) {
	offset = max(0, min(offset, len(source)))
	start := strings.LastIndexByte(source[:offset], '\n') + 1
	end := len(source)
	if i := strings.IndexByte(source[start:], '\n'); i >= 0 {
		end = start + i
	}
	return strings.TrimSuffix(source[start:end], "\r"), start
}

// FormatDiagnostic renders d on one IDE-parseable line:
//
//	path:line:col: severity: message [rule]
func FormatDiagnostic(file, source string, d validation.Diagnostic) string {
	var output strings.Builder
	if file != "" {
		pos := PositionOf(source, d.Span.Start)
		location := fmt.Sprintf("%s:%d:%d:", ToRelativePath(file), pos.Line, pos.Column)
		output.WriteString(applyStyle(filePathStyle, location))
		output.WriteString(" ")
	}
	output.WriteString(applyStyle(severityStyle(d.Severity), d.Severity.String()+":"))
	output.WriteString(" ")
	output.WriteString(d.Message)
	if d.RuleID != "" {
		output.WriteString(" ")
		output.WriteString(applyStyle(ruleStyle, "["+d.RuleID+"]"))
	}
	output.WriteString("\n")
	return output.String()
}

// FormatDiagnosticWithContext renders d followed by the source line it starts
// on, with the span underlined. Spans running past the end of the line are
// underlined to the end of the line.
func FormatDiagnosticWithContext(file, source string, d validation.Diagnostic) string {
	var output strings.Builder
	output.WriteString(FormatDiagnostic(file, source, d))

	line, lineStart := lineAt(source, d.Span.Start)
	pos := PositionOf(source, d.Span.Start)
	width := len(strconv.Itoa(pos.Line))

	output.WriteString(applyStyle(lineNumberStyle, fmt.Sprintf("%*d", width, pos.Line)))
	output.WriteString(" | ")
	output.WriteString(applyStyle(contextLineStyle, line))
	output.WriteString("\n")

	spanStart := min(max(0, d.Span.Start-lineStart), len(line))
	spanEnd := max(spanStart, min(d.Span.End-lineStart, len(line)))
	marks := max(1, utf8.RuneCountInString(line[spanStart:spanEnd]))

	output.WriteString(strings.Repeat(" ", width))
	output.WriteString(" | ")
	output.WriteString(strings.Repeat(" ", pos.Column-1))
	output.WriteString(applyStyle(severityStyle(d.Severity), strings.Repeat("^", marks)))
	output.WriteString("\n")
	return output.String()
}

// FormatCount pluralizes noun for n, as in "1 error" or "3 warnings".
func FormatCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

// FormatSummary renders the closing line of a text report.
func FormatSummary(files, errors, warnings, infos int) string {
	message := fmt.Sprintf("%s checked: %s, %s, %s",
		FormatCount(files, "file"),
		FormatCount(errors, "error"),
		FormatCount(warnings, "warning"),
		FormatCount(infos, "info"))
	switch {
	case errors > 0:
		return FormatErrorMessage(message)
	case warnings > 0:
		return FormatWarningMessage(message)
	}
	return FormatSuccessMessage(message)
}
