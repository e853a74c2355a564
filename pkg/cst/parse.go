package cst

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/yaml"

	"github.com/JuanMarchetto/truss/pkg/logger"
)

var parseLog = logger.New("cst:parse")

// ErrNoTree is returned when the parser produced no tree at all. Syntax errors
// do not cause it: they are recorded as ERROR and missing nodes instead.
var ErrNoTree = errors.New("parser returned no syntax tree")

// Parse parses source with the tree-sitter YAML grammar and converts the
// result into an immutable Document.
//
// The tree-sitter node cache is not safe for concurrent use, so the
// conversion walks it exactly once here and the returned tree owns no
// reference to the parser.
func Parse(ctx context.Context, source []byte) (*Document, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(yaml.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if tree == nil {
		return nil, ErrNoTree
	}
	root := tree.RootNode()
	if root == nil {
		return nil, ErrNoTree
	}

	doc := &Document{
		Root:   convert(root, len(source)),
		Source: string(source),
	}
	parseLog.Printf("Parsed %d bytes, root=%s has_error=%v", len(source), doc.Root.Kind, doc.Root.HasError)
	return doc, nil
}

// convert copies a tree-sitter node and its subtree. Offsets are clamped to
// the source length so later slicing never goes out of bounds.
func convert(n *sitter.Node, sourceLen int) *Node {
	start := clamp(int(n.StartByte()), sourceLen)
	end := clamp(int(n.EndByte()), sourceLen)
	if end < start {
		end = start
	}

	node := &Node{
		Kind:     n.Type(),
		Start:    start,
		End:      end,
		Named:    n.IsNamed(),
		Missing:  n.IsMissing(),
		HasError: n.HasError() || n.IsMissing() || n.Type() == KindError,
	}

	count := int(n.ChildCount())
	if count == 0 {
		return node
	}
	node.Children = make([]*Node, 0, count)
	for i := range count {
		child := n.Child(i)
		if child == nil {
			continue
		}
		node.Children = append(node.Children, convert(child, sourceLen))
	}
	return node
}

func clamp(v, upper int) int {
	if v < 0 {
		return 0
	}
	if v > upper {
		return upper
	}
	return v
}
