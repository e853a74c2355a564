// Package engine is the single entry point that turns workflow source text
// into an AnalysisResult: it parses the text into a concrete syntax tree, runs
// the rule catalog over it and applies configuration overrides.
package engine

import (
	"context"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/workflow"
)

var engineLog = logger.New("engine:engine")

// DefaultParallelThreshold is the rule count above which rules run on the
// worker pool. Below it the pool costs more than it saves.
const DefaultParallelThreshold = 3

// ParseFailureMessage is reported when the parser produced no tree at all.
const ParseFailureMessage = "Failed to parse YAML"

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the default rule catalog.
func WithRules(rules ...validation.Rule) Option {
	return func(e *Engine) {
		e.rules = validation.NewRuleSet(rules...)
	}
}

// WithExtraRules adds rules after the ones already configured.
func WithExtraRules(rules ...validation.Rule) Option {
	return func(e *Engine) {
		for _, r := range rules {
			e.rules.Add(r)
		}
	}
}

// WithSequential forces rules to run one after another.
func WithSequential() Option {
	return func(e *Engine) {
		e.sequential = true
	}
}

// WithOverrides applies per-rule enablement and severity changes to every
// result.
func WithOverrides(overrides validation.Overrides) Option {
	return func(e *Engine) {
		e.overrides = overrides
	}
}

// WithParallelThreshold sets the rule count above which rules run in
// parallel.
func WithParallelThreshold(n int) Option {
	return func(e *Engine) {
		e.parallelThreshold = n
	}
}

// Engine analyzes workflow documents. It owns no per-document state, so one
// Engine may serve any number of concurrent Analyze calls.
type Engine struct {
	rules             *validation.RuleSet
	sequential        bool
	overrides         validation.Overrides
	parallelThreshold int
}

// New returns an Engine running workflow.DefaultRules unless WithRules says
// otherwise.
func New(opts ...Option) *Engine {
	e := &Engine{
		rules:             validation.NewRuleSet(workflow.DefaultRules()...),
		parallelThreshold: DefaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	engineLog.Printf("Created engine: rules=%d sequential=%v threshold=%d overrides=%v",
		e.rules.Len(), e.sequential, e.parallelThreshold, e.overrides != nil)
	return e
}

// RuleNames returns the names of the configured rules in registration order.
func (e *Engine) RuleNames() []string {
	return e.rules.Names()
}

// Analyze parses source and runs every configured rule over it.
func (e *Engine) Analyze(source string) validation.AnalysisResult {
	return e.AnalyzeContext(context.Background(), source)
}

// AnalyzeContext is Analyze with a context that can cancel the parse. A
// cancelled or failed parse yields a single Error diagnostic rather than an
// error value, so callers always get a result to report.
func (e *Engine) AnalyzeContext(ctx context.Context, source string) validation.AnalysisResult {
	doc, err := cst.Parse(ctx, []byte(source))
	if err != nil {
		engineLog.Printf("Parse failed: %v", err)
		return validation.AnalysisResult{Diagnostics: []validation.Diagnostic{{
			Message:  ParseFailureMessage,
			Severity: validation.Error,
			Span:     validation.NewSpan(0, min(100, len(source)), len(source)),
		}}}
	}

	var result validation.AnalysisResult
	if e.parallel() {
		result = e.rules.ValidateParallel(doc)
	} else {
		result = e.rules.ValidateSequential(doc)
	}
	engineLog.Printf("Analyzed %d bytes: %d diagnostics", len(source), len(result.Diagnostics))

	return validation.ApplyOverrides(result, e.overrides)
}

func (e *Engine) parallel() bool {
	return !e.sequential && e.rules.Len() > e.parallelThreshold
}
