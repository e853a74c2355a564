package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/console"
	"github.com/JuanMarchetto/truss/pkg/validation"
)

// FormatValidationError formats a command error for console output.
func FormatValidationError(err error) string {
	if err == nil {
		return ""
	}
	return console.FormatErrorMessage(err.Error())
}

// PrintValidationError prints err to w with console formatting.
func PrintValidationError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, FormatValidationError(err))
}

// writeText prints one line per diagnostic at or above threshold, followed
// by the source context and a closing summary unless quiet is set. Read
// failures go to stderr.
func writeText(stdout, stderr io.Writer, results []FileResult, threshold validation.Severity, quiet bool) error {
	var errs, warnings, infos int
	for _, r := range results {
		if r.Err != nil {
			PrintValidationError(stderr, r.Err)
			continue
		}
		name := displayName(r.Path)
		for _, d := range validation.FilterSeverity(r.Result, threshold).Diagnostics {
			switch d.Severity {
			case validation.Error:
				errs++
			case validation.Warning:
				warnings++
			default:
				infos++
			}
			text := console.FormatDiagnosticWithContext(name, r.Source, d)
			if quiet {
				text = console.FormatDiagnostic(name, r.Source, d)
			}
			if _, err := io.WriteString(stdout, text); err != nil {
				return err
			}
		}
	}
	if quiet {
		return nil
	}
	_, err := fmt.Fprintln(stdout, console.FormatSummary(len(results), errs, warnings, infos))
	return err
}

type jsonFileReport struct {
	File        string           `json:"file"`
	Valid       bool             `json:"valid"`
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
	DurationMS  float64          `json:"duration_ms"`
	Metadata    jsonMetadata     `json:"metadata"`
	Error       string           `json:"error,omitempty"`
}

type jsonDiagnostic struct {
	validation.Diagnostic
	Line   int `json:"line"`
	Column int `json:"column"`
}

type jsonMetadata struct {
	FileSize int `json:"file_size"`
	Lines    int `json:"lines"`
}

// writeJSON prints the results as an indented JSON array. Validity ignores
// the severity threshold, which only filters the diagnostics listed.
func writeJSON(w io.Writer, results []FileResult, threshold validation.Severity) error {
	reports := make([]jsonFileReport, 0, len(results))
	for _, r := range results {
		report := jsonFileReport{
			File:        displayName(r.Path),
			Valid:       r.Valid(),
			Diagnostics: []jsonDiagnostic{},
			DurationMS:  float64(r.Duration.Microseconds()) / 1000,
			Metadata:    jsonMetadata{FileSize: len(r.Source), Lines: countLines(r.Source)},
		}
		if r.Err != nil {
			report.Error = r.Err.Error()
		}
		for _, d := range validation.FilterSeverity(r.Result, threshold).Diagnostics {
			pos := console.PositionOf(r.Source, d.Span.Start)
			report.Diagnostics = append(report.Diagnostics, jsonDiagnostic{Diagnostic: d, Line: pos.Line, Column: pos.Column})
		}
		reports = append(reports, report)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(reports)
}

// countLines counts lines the way editors do: a trailing newline does not
// start another line.
func countLines(source string) int {
	if source == "" {
		return 0
	}
	n := strings.Count(source, "\n")
	if !strings.HasSuffix(source, "\n") {
		n++
	}
	return n
}
