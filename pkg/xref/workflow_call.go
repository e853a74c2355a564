package xref

import (
	"maps"
	"slices"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/validation"
)

// InputSource names the trigger an input was declared under.
type InputSource string

const (
	SourceWorkflowCall     InputSource = "workflow_call"
	SourceWorkflowDispatch InputSource = "workflow_dispatch"
)

// Input is a declared workflow_call or workflow_dispatch input.
type Input struct {
	Name    string
	Type    string
	HasType bool
	Source  InputSource
	KeySpan validation.Span
	// TypeNode is the value node of "type", or nil.
	TypeNode *cst.Node
	// Node is the input's definition mapping, or nil.
	Node *cst.Node
}

// Secret is a secret declared under on.workflow_call.secrets.
type Secret struct {
	Name    string
	KeySpan validation.Span
	Node    *cst.Node
}

// CallOutput is an output declared under on.workflow_call.outputs.
type CallOutput struct {
	Name      string
	KeySpan   validation.Span
	Value     string
	ValueNode *cst.Node
	// Node is the output's definition mapping, or nil.
	Node *cst.Node
}

// WorkflowCall describes the reusable-workflow contract and the manual
// dispatch inputs of a workflow.
type WorkflowCall struct {
	HasWorkflowCall     bool
	HasWorkflowDispatch bool
	// CallNode and DispatchNode are the unwrapped trigger values; either may
	// be nil when the trigger is listed without configuration.
	CallNode     *cst.Node
	DispatchNode *cst.Node

	Inputs         map[string]Input
	DispatchInputs map[string]Input
	Secrets        map[string]Secret
	CallOutputs    []CallOutput
}

// InputNames returns the names of every declared input, sorted.
func (w *WorkflowCall) InputNames() []string {
	return slices.Sorted(maps.Keys(w.Inputs))
}

// SecretNames returns the declared workflow_call secret names, sorted.
func (w *WorkflowCall) SecretNames() []string {
	return slices.Sorted(maps.Keys(w.Secrets))
}

// HasInput reports whether name is declared under either trigger.
func (w *WorkflowCall) HasInput(name string) bool {
	_, ok := w.Inputs[name]
	return ok
}

func buildWorkflowCall(doc *cst.Document, on *cst.Node) WorkflowCall {
	w := WorkflowCall{
		Inputs:         make(map[string]Input),
		DispatchInputs: make(map[string]Input),
		Secrets:        make(map[string]Secret),
	}
	switch {
	case on == nil:
		return w
	case cst.IsScalar(on):
		w.markTrigger(cst.CleanText(doc, on), nil)
	case cst.IsSequence(on):
		for _, item := range cst.Items(on) {
			w.markTrigger(cst.CleanText(doc, item), nil)
		}
	case cst.IsMapping(on):
		for _, pair := range cst.Pairs(on) {
			w.markTrigger(cst.CleanKey(doc, cst.PairKey(pair)), cst.Unwrap(cst.PairValue(pair)))
		}
	}

	if w.CallNode != nil {
		w.collectInputs(doc, w.CallNode, SourceWorkflowCall, w.Inputs)
		if secrets, found := cst.MappingValue(doc, w.CallNode, "secrets"); found {
			for _, pair := range cst.Pairs(secrets) {
				key := cst.PairKey(pair)
				name := cst.CleanKey(doc, key)
				w.Secrets[name] = Secret{
					Name:    name,
					KeySpan: validation.NodeSpan(doc, key),
					Node:    mappingOrNil(cst.PairValue(pair)),
				}
			}
		}
		if outputs, found := cst.MappingValue(doc, w.CallNode, "outputs"); found {
			for _, pair := range cst.Pairs(outputs) {
				w.CallOutputs = append(w.CallOutputs, callOutput(doc, pair))
			}
		}
	}
	if w.DispatchNode != nil {
		w.collectInputs(doc, w.DispatchNode, SourceWorkflowDispatch, w.DispatchInputs)
		for name, input := range w.DispatchInputs {
			if _, dup := w.Inputs[name]; !dup {
				w.Inputs[name] = input
			}
		}
	}
	return w
}

func (w *WorkflowCall) markTrigger(event string, value *cst.Node) {
	switch event {
	case "workflow_call":
		w.HasWorkflowCall = true
		w.CallNode = mappingOrNil(value)
	case "workflow_dispatch":
		w.HasWorkflowDispatch = true
		w.DispatchNode = mappingOrNil(value)
	}
}

func (w *WorkflowCall) collectInputs(doc *cst.Document, trigger *cst.Node, source InputSource, into map[string]Input) {
	inputs, found := cst.MappingValue(doc, trigger, "inputs")
	if !found {
		return
	}
	for _, pair := range cst.Pairs(inputs) {
		key := cst.PairKey(pair)
		name := cst.CleanKey(doc, key)
		input := Input{
			Name:    name,
			Type:    "string",
			Source:  source,
			KeySpan: validation.NodeSpan(doc, key),
			Node:    mappingOrNil(cst.PairValue(pair)),
		}
		if input.Node != nil {
			if typ, ok := cst.MappingValue(doc, input.Node, "type"); ok && typ != nil {
				input.Type = cst.CleanText(doc, typ)
				input.HasType = true
				input.TypeNode = typ
			}
		}
		into[name] = input
	}
}

func callOutput(doc *cst.Document, pair *cst.Node) CallOutput {
	key := cst.PairKey(pair)
	out := CallOutput{
		Name:    cst.CleanKey(doc, key),
		KeySpan: validation.NodeSpan(doc, key),
		Node:    mappingOrNil(cst.PairValue(pair)),
	}
	if out.Node != nil {
		if value, ok := cst.MappingValue(doc, out.Node, "value"); ok && value != nil {
			out.ValueNode = value
			out.Value = cst.CleanText(doc, value)
		}
	}
	return out
}

func mappingOrNil(n *cst.Node) *cst.Node {
	n = cst.Unwrap(n)
	if !cst.IsMapping(n) {
		return nil
	}
	return n
}
