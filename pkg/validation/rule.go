package validation

import (
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
)

var ruleLog = logger.New("validation:rule")

// Rule is one independent check over a parsed document. Validate must be
// deterministic, must not mutate the document and must not depend on any
// other rule's output. The framework stamps RuleID with Name on every
// returned diagnostic.
type Rule interface {
	Name() string
	Validate(doc *cst.Document) []Diagnostic
}

// DocumentScoped is implemented by rules that decide for themselves whether
// they apply to documents that do not look like workflows. Rules that do not
// implement it only run on workflow documents.
type DocumentScoped interface {
	RequiresWorkflow() bool
}

// RuleSet is a reusable collection of rules. It holds no per-document state
// and is safe for concurrent use once built.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet returns a RuleSet holding rules.
func NewRuleSet(rules ...Rule) *RuleSet {
	rs := &RuleSet{}
	for _, r := range rules {
		rs.Add(r)
	}
	return rs
}

// Add registers r. It must not be called concurrently with validation.
func (rs *RuleSet) Add(r Rule) {
	rs.rules = append(rs.rules, r)
}

// Len returns the number of registered rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Names returns the rule names in registration order.
func (rs *RuleSet) Names() []string {
	names := make([]string, 0, len(rs.rules))
	for _, r := range rs.rules {
		names = append(names, r.Name())
	}
	return names
}

// ValidateParallel runs every applicable rule on a worker pool bounded by
// GOMAXPROCS and returns the merged, sorted diagnostics.
func (rs *RuleSet) ValidateParallel(doc *cst.Document) AnalysisResult {
	applicable := rs.applicable(doc)
	ruleLog.Printf("Running %d rules in parallel", len(applicable))

	p := pool.NewWithResults[[]Diagnostic]().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for _, r := range applicable {
		p.Go(func() []Diagnostic {
			return runRule(r, doc)
		})
	}
	return merge(p.Wait())
}

// ValidateSequential runs the same rules as ValidateParallel one after
// another. The result is identical; it exists for debugging and profiling.
func (rs *RuleSet) ValidateSequential(doc *cst.Document) AnalysisResult {
	applicable := rs.applicable(doc)
	ruleLog.Printf("Running %d rules sequentially", len(applicable))

	batches := make([][]Diagnostic, 0, len(applicable))
	for _, r := range applicable {
		batches = append(batches, runRule(r, doc))
	}
	return merge(batches)
}

// applicable filters out workflow-only rules when doc is not a workflow.
func (rs *RuleSet) applicable(doc *cst.Document) []Rule {
	isWorkflow := cst.IsGitHubWorkflow(doc)
	out := make([]Rule, 0, len(rs.rules))
	for _, r := range rs.rules {
		if !isWorkflow && requiresWorkflow(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func requiresWorkflow(r Rule) bool {
	if scoped, ok := r.(DocumentScoped); ok {
		return scoped.RequiresWorkflow()
	}
	return true
}

// runRule invokes r and stamps its name on each diagnostic. A panicking rule
// is reported as a single Error diagnostic instead of aborting the analysis.
func runRule(r Rule, doc *cst.Document) (diags []Diagnostic) {
	name := r.Name()
	defer func() {
		if v := recover(); v != nil {
			ruleLog.Printf("Rule %s panicked: %v", name, v)
			diags = []Diagnostic{{
				Message:  fmt.Sprintf("internal error in rule '%s': %v", name, v),
				Severity: Error,
				Span:     HeadSpan(doc),
				RuleID:   name,
			}}
		}
	}()

	diags = r.Validate(doc)
	for i := range diags {
		diags[i].RuleID = name
	}
	return diags
}

func merge(batches [][]Diagnostic) AnalysisResult {
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	all := make([]Diagnostic, 0, total)
	for _, b := range batches {
		all = append(all, b...)
	}
	SortDiagnostics(all)
	return AnalysisResult{Diagnostics: all}
}
