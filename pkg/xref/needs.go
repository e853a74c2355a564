package xref

import (
	"fmt"
	"maps"
	"slices"

	"github.com/JuanMarchetto/truss/pkg/validation"
)

// CheckNeeds validates the needs graph: every listed job must exist, a job
// may not need itself and the graph must be acyclic.
func (t *Tables) CheckNeeds() []validation.Diagnostic {
	var diags []validation.Diagnostic
	for _, job := range t.Jobs {
		for _, need := range job.Needs {
			if !t.HasJob(need.Name) {
				diags = append(diags, validation.Diagnostic{
					Message:  fmt.Sprintf("Job '%s' references nonexistent job: '%s'", job.Name, need.Name),
					Severity: validation.Error,
					Span:     need.Span,
				})
			}
			if need.Name == job.Name {
				diags = append(diags, validation.Diagnostic{
					Message:  fmt.Sprintf("Job '%s' cannot reference self in 'needs'", job.Name),
					Severity: validation.Error,
					Span:     need.Span,
				})
			}
		}
	}

	for _, name := range t.cycles() {
		diags = append(diags, validation.Diagnostic{
			Message:  fmt.Sprintf("circular dependency detected involving job '%s'", name),
			Severity: validation.Error,
			Span:     validation.HeadSpan(t.doc),
		})
	}
	return diags
}

// cycles runs a depth-first search over the needs graph, starting from jobs
// in sorted order, and returns the job each back edge points to. Self edges
// and edges to unknown jobs are ignored; both are reported on their own.
func (t *Tables) cycles() []string {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int)
	var found []string

	var visit func(name string)
	visit = func(name string) {
		state[name] = active
		job, _ := t.Job(name)
		for _, need := range job.Needs {
			if need.Name == name || !t.HasJob(need.Name) {
				continue
			}
			switch state[need.Name] {
			case active:
				found = append(found, need.Name)
			case unvisited:
				visit(need.Name)
			}
		}
		state[name] = done
	}

	names := slices.Sorted(maps.Keys(t.jobIndex))
	for _, name := range names {
		if state[name] == unvisited {
			visit(name)
		}
	}
	return found
}
