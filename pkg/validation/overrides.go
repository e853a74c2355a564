package validation

// Overrides lets a configuration layer disable rules or change the severity
// of their diagnostics after the fact. Rules never see it.
type Overrides interface {
	RuleEnabled(name string) bool
	RuleSeverity(name string) (Severity, bool)
}

// ApplyOverrides drops the diagnostics of disabled rules, rewrites the
// severity of overridden ones and re-sorts. A nil Overrides returns result
// unchanged. The input slice is not modified.
func ApplyOverrides(result AnalysisResult, overrides Overrides) AnalysisResult {
	if overrides == nil {
		return result
	}
	out := make([]Diagnostic, 0, len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		if d.RuleID != "" && !overrides.RuleEnabled(d.RuleID) {
			continue
		}
		if d.RuleID != "" {
			if severity, ok := overrides.RuleSeverity(d.RuleID); ok {
				d.Severity = severity
			}
		}
		out = append(out, d)
	}
	SortDiagnostics(out)
	return AnalysisResult{Diagnostics: out}
}

// FilterSeverity keeps diagnostics at least as severe as threshold, where
// Error is the most severe.
func FilterSeverity(result AnalysisResult, threshold Severity) AnalysisResult {
	out := make([]Diagnostic, 0, len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		if d.Severity <= threshold {
			out = append(out, d)
		}
	}
	return AnalysisResult{Diagnostics: out}
}
