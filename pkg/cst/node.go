// Package cst holds the concrete syntax tree that every rule walks, the
// tree-sitter adapter that produces it and the navigation helpers rules use to
// query it.
//
// # Tree model
//
// The tree mirrors the tree-sitter YAML grammar. Content nodes are mappings
// (block_mapping, flow_mapping), sequences (block_sequence, flow_sequence) and
// scalars (plain_scalar, double_quote_scalar, single_quote_scalar,
// block_scalar). They are wrapped by transparent block_node and flow_node
// kinds, and comment nodes may appear as children almost anywhere.
//
// A Node is immutable once Parse returns, so a Document can be shared by any
// number of goroutines.
package cst

// Node kinds produced by the YAML grammar that the navigation layer relies on.
const (
	KindStream            = "stream"
	KindDocument          = "document"
	KindBlockNode         = "block_node"
	KindFlowNode          = "flow_node"
	KindBlockMapping      = "block_mapping"
	KindFlowMapping       = "flow_mapping"
	KindBlockMappingPair  = "block_mapping_pair"
	KindFlowPair          = "flow_pair"
	KindBlockSequence     = "block_sequence"
	KindFlowSequence      = "flow_sequence"
	KindBlockSequenceItem = "block_sequence_item"
	KindPlainScalar       = "plain_scalar"
	KindDoubleQuoteScalar = "double_quote_scalar"
	KindSingleQuoteScalar = "single_quote_scalar"
	KindBlockScalar       = "block_scalar"
	KindComment           = "comment"
	KindColon             = ":"
	KindError             = "ERROR"
)

// Node is one node of the concrete syntax tree.
type Node struct {
	Kind     string
	Start    int // byte offset, inclusive
	End      int // byte offset, exclusive
	Children []*Node

	// Named is false for anonymous tokens such as ":" or "-".
	Named bool
	// Missing marks a node the parser inserted to recover from an error.
	Missing bool
	// HasError is set when the node or any descendant is an error or missing node.
	HasError bool
}

// IsError reports whether n is an ERROR node produced by error recovery.
func (n *Node) IsError() bool {
	return n != nil && n.Kind == KindError
}

// IsComment reports whether n is a comment.
func (n *Node) IsComment() bool {
	return n != nil && n.Kind == KindComment
}

// Child returns the i-th child or nil when i is out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Len returns the byte length of n.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return n.End - n.Start
}

// Document is a parsed source together with its syntax tree.
type Document struct {
	Root   *Node
	Source string
}

// Text returns the source slice covered by n, or "" when n is nil or its
// offsets fall outside the source.
func (d *Document) Text(n *Node) string {
	if d == nil || n == nil {
		return ""
	}
	start, end := n.Start, n.End
	if start < 0 || end > len(d.Source) || start > end {
		return ""
	}
	return d.Source[start:end]
}

// HasError reports whether the parser had to recover from a syntax error
// anywhere in the document.
func (d *Document) HasError() bool {
	return d != nil && d.Root != nil && d.Root.HasError
}

// Len returns the length of the source in bytes.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Source)
}
