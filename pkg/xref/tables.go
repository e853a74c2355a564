// Package xref builds the per-document symbol tables of a workflow (jobs,
// steps, step outputs, the needs graph and the workflow_call contract) and
// answers the scoped lookups rules need.
//
// Tables are built fresh for every analysis and never cached; building them
// only reads the document, so rules running in parallel may each build
// their own.
package xref

import (
	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
)

var tablesLog = logger.New("xref:tables")

// Job is one entry under the top-level jobs mapping.
type Job struct {
	Name    string
	Key     *cst.Node
	KeySpan validation.Span
	// Node is the job's mapping, or nil when the job value is not a mapping.
	Node *cst.Node

	Needs     []NeedRef
	NeedsNode *cst.Node

	Steps []Step
	// OutputsNode is the unwrapped outputs mapping, or nil.
	OutputsNode *cst.Node
}

// NeedRef is one job name listed in a job's needs.
type NeedRef struct {
	Name string
	Span validation.Span
}

// Step is one entry of a job's steps sequence.
type Step struct {
	Index int
	// Node is the step mapping, or nil when the entry is not a mapping.
	Node   *cst.Node
	ID     string
	IDNode *cst.Node
	IDSpan validation.Span
	Name   string
	Uses   string

	Run     string
	RunNode *cst.Node

	// Outputs are the inferred output names in sorted order. nil means the
	// outputs are unknown and must not be checked.
	Outputs []string
}

// HasID reports whether the step declares a non-empty id.
func (s *Step) HasID() bool {
	return s.ID != ""
}

// StepByID returns the step of j with the given id.
func (j *Job) StepByID(id string) (*Step, bool) {
	for i := range j.Steps {
		if j.Steps[i].ID == id {
			return &j.Steps[i], true
		}
	}
	return nil, false
}

// StepIDs returns the declared step ids in document order.
func (j *Job) StepIDs() []string {
	var ids []string
	for _, s := range j.Steps {
		if s.HasID() {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// HasIDlessStep reports whether any mapping step lacks an id.
func (j *Job) HasIDlessStep() bool {
	for _, s := range j.Steps {
		if s.Node != nil && !s.HasID() {
			return true
		}
	}
	return false
}

// Tables holds the symbol tables of one document.
type Tables struct {
	doc      *cst.Document
	Jobs     []Job
	jobIndex map[string]int

	// On is the unwrapped value of the top-level "on" key, or nil.
	On *cst.Node

	WorkflowCall
}

// Build builds the tables of doc with the default shell output inferrer.
func Build(doc *cst.Document) *Tables {
	return BuildWith(doc, ShellOutputInferrer{})
}

// BuildWith builds the tables of doc, using inferrer to derive step outputs
// from run scripts.
func BuildWith(doc *cst.Document, inferrer OutputInferrer) *Tables {
	t := &Tables{doc: doc, jobIndex: make(map[string]int)}

	if on, found := cst.TopLevel(doc, "on"); found {
		t.On = cst.Unwrap(on)
	}
	t.WorkflowCall = buildWorkflowCall(doc, t.On)

	for _, pair := range cst.Pairs(cst.JobsNode(doc)) {
		key := cst.PairKey(pair)
		name := cst.CleanKey(doc, key)
		if name == "" {
			continue
		}
		job := Job{
			Name:    name,
			Key:     key,
			KeySpan: validation.NodeSpan(doc, key),
		}
		if value := cst.Unwrap(cst.PairValue(pair)); cst.IsMapping(value) {
			job.Node = value
			buildJob(doc, &job, inferrer)
		}
		if _, dup := t.jobIndex[name]; !dup {
			t.jobIndex[name] = len(t.Jobs)
		}
		t.Jobs = append(t.Jobs, job)
	}

	tablesLog.Printf("Built tables: %d jobs, %d inputs, %d secrets", len(t.Jobs), len(t.Inputs), len(t.Secrets))
	return t
}

func buildJob(doc *cst.Document, job *Job, inferrer OutputInferrer) {
	if needs, found := cst.MappingValue(doc, job.Node, "needs"); found && needs != nil {
		job.NeedsNode = needs
		job.Needs = needRefs(doc, needs)
	}
	if outputs, found := cst.MappingValue(doc, job.Node, "outputs"); found && cst.IsMapping(outputs) {
		job.OutputsNode = cst.Unwrap(outputs)
	}

	steps, found := cst.MappingValue(doc, job.Node, "steps")
	if !found {
		return
	}
	for i, item := range cst.Items(steps) {
		step := Step{Index: i}
		if node := cst.Unwrap(item); cst.IsMapping(node) {
			step.Node = node
			buildStep(doc, &step, inferrer)
		}
		job.Steps = append(job.Steps, step)
	}
}

func buildStep(doc *cst.Document, step *Step, inferrer OutputInferrer) {
	if id, found := cst.MappingValue(doc, step.Node, "id"); found && id != nil {
		step.IDNode = id
		step.IDSpan = validation.NodeSpan(doc, id)
		step.ID = cst.CleanText(doc, id)
	}
	if name, found := cst.MappingValue(doc, step.Node, "name"); found {
		step.Name = cst.CleanText(doc, name)
	}
	if uses, found := cst.MappingValue(doc, step.Node, "uses"); found {
		step.Uses = cst.CleanText(doc, uses)
	}
	if run, found := cst.MappingValue(doc, step.Node, "run"); found && run != nil {
		step.RunNode = run
		step.Run = doc.Text(run)
	}
	if step.HasID() && step.Run != "" && inferrer != nil {
		step.Outputs = normalize(inferrer.InferOutputs(step.Run))
	}
}

// needRefs normalizes the scalar and sequence forms of needs.
func needRefs(doc *cst.Document, needs *cst.Node) []NeedRef {
	var nodes []*cst.Node
	if cst.IsSequence(needs) {
		nodes = cst.Items(needs)
	} else if cst.IsScalar(needs) {
		nodes = []*cst.Node{needs}
	}
	var refs []NeedRef
	for _, n := range nodes {
		name := cst.CleanText(doc, n)
		if name == "" {
			continue
		}
		refs = append(refs, NeedRef{Name: name, Span: validation.NodeSpan(doc, n)})
	}
	return refs
}

// Document returns the document the tables were built from.
func (t *Tables) Document() *cst.Document {
	return t.doc
}

// Job returns the first job named name.
func (t *Tables) Job(name string) (*Job, bool) {
	i, ok := t.jobIndex[name]
	if !ok {
		return nil, false
	}
	return &t.Jobs[i], true
}

// HasJob reports whether a job named name exists.
func (t *Tables) HasJob(name string) bool {
	_, ok := t.jobIndex[name]
	return ok
}

// JobNames returns job names in document order, duplicates included.
func (t *Tables) JobNames() []string {
	names := make([]string, 0, len(t.Jobs))
	for _, j := range t.Jobs {
		names = append(names, j.Name)
	}
	return names
}

// JobOutputs returns the outputs declared by job name, keyed by output name
// with the span of each key. It returns nil when the job does not exist or
// declares no outputs mapping.
func (t *Tables) JobOutputs(name string) map[string]validation.Span {
	job, ok := t.Job(name)
	if !ok || job.OutputsNode == nil {
		return nil
	}
	outputs := make(map[string]validation.Span)
	for _, pair := range cst.Pairs(job.OutputsNode) {
		key := cst.PairKey(pair)
		outputs[cst.CleanKey(t.doc, key)] = validation.NodeSpan(t.doc, key)
	}
	return outputs
}
