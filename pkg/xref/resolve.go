package xref

import (
	"slices"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/expression"
)

// ResolutionKind classifies the outcome of resolving a step output reference.
type ResolutionKind int

const (
	// Resolved means the step exists in the job and the output is declared
	// or the step's outputs are unknown.
	Resolved ResolutionKind = iota
	// OtherJob means the step id exists, but only in another job.
	OtherJob
	// MissingID means the id was not found and the job has steps without an
	// id, one of which was probably meant.
	MissingID
	// NotFound means no step in the job has the id.
	NotFound
	// UnknownOutput means the step exists and its outputs are known, but the
	// output is not among them.
	UnknownOutput
)

// Resolution is the result of ResolveStepOutput.
type Resolution struct {
	Kind ResolutionKind
	// Job is the job holding the step when Kind is OtherJob.
	Job string
	// Available lists the step's known outputs when Kind is UnknownOutput.
	Available []string
}

// ResolveStepOutput resolves steps.<id>.outputs.<output> as seen from job.
// Lookups stay within the job; other jobs are consulted only to explain a
// miss.
func (t *Tables) ResolveStepOutput(job, id, output string) Resolution {
	j, ok := t.Job(job)
	if !ok {
		return Resolution{Kind: NotFound}
	}
	if step, ok := j.StepByID(id); ok {
		if step.Outputs != nil && !slices.Contains(step.Outputs, output) {
			return Resolution{Kind: UnknownOutput, Available: step.Outputs}
		}
		return Resolution{Kind: Resolved}
	}
	for i := range t.Jobs {
		other := &t.Jobs[i]
		if other.Name == job {
			continue
		}
		if _, ok := other.StepByID(id); ok {
			return Resolution{Kind: OtherJob, Job: other.Name}
		}
	}
	if j.HasIDlessStep() {
		return Resolution{Kind: MissingID}
	}
	return Resolution{Kind: NotFound}
}

// References returns every reference rooted at context inside the scalars of
// the subtree n. Offsets are absolute within the document. Each scalar is
// scanned once, so keys and values both count.
func References(doc *cst.Document, n *cst.Node, context string) []expression.Reference {
	var refs []expression.Reference
	cst.Walk(n, func(node *cst.Node) bool {
		if !cst.IsScalar(node) || node.Kind == cst.KindBlockNode || node.Kind == cst.KindFlowNode {
			return true
		}
		for _, ref := range expression.FindReferences(doc.Text(node), context) {
			ref.Start += node.Start
			ref.End += node.Start
			refs = append(refs, ref)
		}
		return false
	})
	return refs
}

// StepReferences returns the steps.* references inside job j.
func (t *Tables) StepReferences(j *Job) []expression.Reference {
	if j.Node == nil {
		return nil
	}
	return References(t.doc, j.Node, "steps")
}
